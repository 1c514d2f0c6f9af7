// Package services sequences the processing pipeline for one media
// input: cache gate, segmentation, chunked transcription, then the
// optional text stages, with retry policy and cost accounting owned
// here and nowhere else.
package services

import (
	"context"
	"fmt"
	"os"

	"github.com/cenkalti/backoff/v4"
	"github.com/mudler/xlog"

	"github.com/mudler/recap/core/clients"
	"github.com/mudler/recap/core/config"
	"github.com/mudler/recap/core/schema"
	"github.com/mudler/recap/core/templates"
	"github.com/mudler/recap/pkg/artifacts"
	"github.com/mudler/recap/pkg/cost"
	"github.com/mudler/recap/pkg/media"
	"github.com/mudler/recap/pkg/transcriber"
)

// Capability is the external speech-to-text and language-model service.
// *clients.OpenAI implements it.
type Capability interface {
	Transcribe(ctx context.Context, path, language string) (string, error)
	Complete(ctx context.Context, system, prompt string) (string, schema.Usage, error)
}

// StageStatus tracks the per-kind state machine.
type StageStatus string

const (
	StageNotStarted   StageStatus = "not_started"
	StageCacheChecked StageStatus = "cache_checked"
	StageComputing    StageStatus = "computing"
	StageDone         StageStatus = "done"
	StageFailed       StageStatus = "failed"
)

// StageError attaches the artifact kind to the underlying cause.
type StageError struct {
	Kind schema.ArtifactKind
	Err  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Result reports what one run produced. It is returned even when the run
// fails so the caller can still see stage states and accumulated cost.
type Result struct {
	Input     schema.MediaInput
	Artifacts map[schema.ArtifactKind]schema.Artifact
	States    map[schema.ArtifactKind]StageStatus
	CacheHits map[schema.ArtifactKind]bool
	Cost      *cost.Record
}

// Pipeline owns artifact and cost lifecycles for the duration of one
// invocation. It holds no state across runs.
type Pipeline struct {
	cfg    *config.ApplicationConfig
	store  *artifacts.Store
	client Capability
}

func NewPipeline(cfg *config.ApplicationConfig, store *artifacts.Store, client Capability) *Pipeline {
	return &Pipeline{cfg: cfg, store: store, client: client}
}

// Run processes one file into the requested artifacts. Artifacts already
// cached are reused without any external call; a failed stage stops its
// dependents but leaves earlier artifacts usable for the next run.
func (p *Pipeline) Run(ctx context.Context, path string) (*Result, error) {
	res := &Result{
		Artifacts: map[schema.ArtifactKind]schema.Artifact{},
		States:    map[schema.ArtifactKind]StageStatus{},
		CacheHits: map[schema.ArtifactKind]bool{},
		Cost:      cost.NewRecord(),
	}
	for _, kind := range p.requestedKinds() {
		res.States[kind] = StageNotStarted
	}

	// A table miss must surface before any spend.
	if err := cost.Validate(p.cfg.ChatModel); err != nil {
		return res, err
	}
	if err := cost.ValidateAudio(p.cfg.TranscribeModel); err != nil {
		return res, err
	}

	input, err := media.Probe(ctx, path)
	if err != nil {
		return res, err
	}
	res.Input = input

	runDir, err := os.MkdirTemp(p.cfg.TempDir, "recap-run-")
	if err != nil {
		return res, err
	}
	defer os.RemoveAll(runDir)

	transcription, err := p.transcription(ctx, res, input, runDir)
	if err != nil {
		return res, err
	}

	source := transcription
	if p.cfg.Translate {
		prompt, err := templates.Translation(transcription, p.cfg.TargetLanguage)
		if err != nil {
			return res, &StageError{Kind: schema.ArtifactTranslation, Err: err}
		}
		translation, err := p.textStage(ctx, res, input, schema.ArtifactTranslation, prompt)
		if err != nil {
			return res, err
		}
		source = translation
	}

	summaryPrompt, err := templates.Summary(source, p.cfg.SummaryLength)
	if err != nil {
		return res, &StageError{Kind: schema.ArtifactSummary, Err: err}
	}
	if _, err := p.textStage(ctx, res, input, schema.ArtifactSummary, summaryPrompt); err != nil {
		return res, err
	}

	actionsPrompt, err := templates.ActionItems(source)
	if err != nil {
		return res, &StageError{Kind: schema.ArtifactActionItems, Err: err}
	}
	if _, err := p.textStage(ctx, res, input, schema.ArtifactActionItems, actionsPrompt); err != nil {
		return res, err
	}

	if p.cfg.Topics {
		topicsPrompt, err := templates.Topics(source)
		if err != nil {
			return res, &StageError{Kind: schema.ArtifactTopics, Err: err}
		}
		if _, err := p.textStage(ctx, res, input, schema.ArtifactTopics, topicsPrompt); err != nil {
			return res, err
		}
	}

	return res, nil
}

func (p *Pipeline) requestedKinds() []schema.ArtifactKind {
	kinds := []schema.ArtifactKind{schema.ArtifactTranscription}
	if p.cfg.Translate {
		kinds = append(kinds, schema.ArtifactTranslation)
	}
	kinds = append(kinds, schema.ArtifactSummary, schema.ArtifactActionItems)
	if p.cfg.Topics {
		kinds = append(kinds, schema.ArtifactTopics)
	}
	return kinds
}

// transcription runs the cache gate and, on a miss, the segment-and-
// transcribe path. identity stays the original file even when a video's
// audio track is extracted first.
func (p *Pipeline) transcription(ctx context.Context, res *Result, input schema.MediaInput, runDir string) (string, error) {
	kind := schema.ArtifactTranscription
	res.States[kind] = StageCacheChecked

	if content, ok, err := p.store.Load(input, kind); err != nil {
		res.States[kind] = StageFailed
		return "", &StageError{Kind: kind, Err: err}
	} else if ok {
		xlog.Info("transcription cached, skipping external calls", "path", p.store.Path(input, kind))
		res.States[kind] = StageDone
		res.CacheHits[kind] = true
		res.Artifacts[kind] = schema.Artifact{Kind: kind, Input: input.BaseName(), Path: p.store.Path(input, kind), Content: content}
		return content, nil
	}

	res.States[kind] = StageComputing

	audio := input
	if input.IsVideo {
		xlog.Info("video input, extracting audio track", "path", input.Path)
		audioPath, err := media.ExtractAudio(ctx, input.Path, runDir)
		if err != nil {
			res.States[kind] = StageFailed
			return "", &StageError{Kind: kind, Err: err}
		}
		if audio, err = media.Probe(ctx, audioPath); err != nil {
			res.States[kind] = StageFailed
			return "", &StageError{Kind: kind, Err: err}
		}
	}

	plan, err := media.PlanSegments(audio, p.cfg.Limits)
	if err != nil {
		res.States[kind] = StageFailed
		return "", &StageError{Kind: kind, Err: err}
	}
	xlog.Info("segmentation planned", "chunks", len(plan.Spans), "duration", audio.Duration, "size", audio.Size)

	seg, err := media.NewSegmenter(plan, p.cfg.Limits, runDir)
	if err != nil {
		res.States[kind] = StageFailed
		return "", &StageError{Kind: kind, Err: err}
	}
	defer seg.Close()

	stt := &meteredSTT{
		client:     p.client,
		record:     res.Cost,
		model:      p.cfg.TranscribeModel,
		maxRetries: p.cfg.MaxRetries,
	}
	text, _, err := transcriber.New(stt, p.cfg.Language, p.cfg.Progress).Run(ctx, seg)
	if err != nil {
		res.States[kind] = StageFailed
		return "", &StageError{Kind: kind, Err: err}
	}

	artifact, err := p.store.Save(input, kind, text)
	if err != nil {
		res.States[kind] = StageFailed
		return "", &StageError{Kind: kind, Err: err}
	}
	res.States[kind] = StageDone
	res.Artifacts[kind] = artifact
	return text, nil
}

// textStage is the shared cache-gate-then-compute path for translation,
// summary, action items and topics.
func (p *Pipeline) textStage(ctx context.Context, res *Result, input schema.MediaInput, kind schema.ArtifactKind, prompt templates.Prompt) (string, error) {
	res.States[kind] = StageCacheChecked

	if content, ok, err := p.store.Load(input, kind); err != nil {
		res.States[kind] = StageFailed
		return "", &StageError{Kind: kind, Err: err}
	} else if ok {
		xlog.Info("artifact cached, skipping external call", "kind", kind, "path", p.store.Path(input, kind))
		res.States[kind] = StageDone
		res.CacheHits[kind] = true
		res.Artifacts[kind] = schema.Artifact{Kind: kind, Input: input.BaseName(), Path: p.store.Path(input, kind), Content: content}
		return content, nil
	}

	res.States[kind] = StageComputing

	text, err := p.completeWithRetry(ctx, res.Cost, prompt)
	if err != nil {
		res.States[kind] = StageFailed
		return "", &StageError{Kind: kind, Err: err}
	}

	artifact, err := p.store.Save(input, kind, text)
	if err != nil {
		res.States[kind] = StageFailed
		return "", &StageError{Kind: kind, Err: err}
	}
	res.States[kind] = StageDone
	res.Artifacts[kind] = artifact
	return text, nil
}

// completeWithRetry wraps a single completion call in bounded exponential
// backoff. Only transient provider errors are retried; every attempt is
// recorded before the error is evaluated so partial cost is never lost.
func (p *Pipeline) completeWithRetry(ctx context.Context, record *cost.Record, prompt templates.Prompt) (string, error) {
	op := func() (string, error) {
		text, usage, err := p.client.Complete(ctx, prompt.System, prompt.User)
		if recErr := record.AddUsage(usage); recErr != nil {
			return "", backoff.Permanent(recErr)
		}
		if err != nil {
			if !clients.IsTransient(err) {
				return "", backoff.Permanent(err)
			}
			xlog.Warn("transient completion failure, retrying", "error", err)
			return "", err
		}
		return text, nil
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), p.cfg.MaxRetries), ctx)
	return backoff.RetryWithData(op, bo)
}

// meteredSTT decorates the capability's speech-to-text call with the
// retry policy and per-attempt cost recording. The transcriber itself
// never retries.
type meteredSTT struct {
	client     Capability
	record     *cost.Record
	model      string
	maxRetries uint64
}

func (m *meteredSTT) Transcribe(ctx context.Context, chunk media.Chunk, language string) (string, error) {
	op := func() (string, error) {
		text, err := m.client.Transcribe(ctx, chunk.Path, language)
		if recErr := m.record.AddAudio(m.model, chunk.Duration()); recErr != nil {
			return "", backoff.Permanent(recErr)
		}
		if err != nil {
			if !clients.IsTransient(err) {
				return "", backoff.Permanent(err)
			}
			xlog.Warn("transient transcription failure, retrying", "chunk", chunk.Index, "error", err)
			return "", err
		}
		return text, nil
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), m.maxRetries), ctx)
	return backoff.RetryWithData(op, bo)
}
