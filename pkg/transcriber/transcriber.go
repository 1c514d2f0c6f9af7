// Package transcriber drives speech-to-text over an ordered chunk
// sequence and stitches the fragments back into one transcript.
package transcriber

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mudler/xlog"
	"github.com/schollz/progressbar/v3"

	"github.com/mudler/recap/core/schema"
	"github.com/mudler/recap/pkg/media"
)

// SpeechToText is the external capability invoked once per chunk.
// Implementations must not retry on their own; retry policy belongs to
// the caller so cost accounting stays accurate.
type SpeechToText interface {
	Transcribe(ctx context.Context, chunk media.Chunk, language string) (string, error)
}

// ChunkSource yields chunks in index order. *media.Segmenter is the
// production implementation.
type ChunkSource interface {
	Len() int
	Chunk(ctx context.Context, i int) (media.Chunk, error)
	Discard(i int) error
}

// TranscriptionError reports the chunk whose transcription failed. A
// single failing chunk aborts the whole transcript; no partial result is
// returned.
type TranscriptionError struct {
	Chunk int
	Err   error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcribing chunk %d: %v", e.Chunk, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// Transcriber walks a chunk source sequentially. Chunk i+1 is only
// requested once chunk i's outcome is known, so a failure stops further
// spending.
type Transcriber struct {
	stt      SpeechToText
	language string
	progress bool
}

func New(stt SpeechToText, language string, progress bool) *Transcriber {
	return &Transcriber{stt: stt, language: language, progress: progress}
}

// Run transcribes every chunk in order and returns the stitched
// transcript. The run is cancellable between chunks: ctx is checked
// before each chunk call, never mid-call.
func (t *Transcriber) Run(ctx context.Context, src ChunkSource) (string, []schema.TranscriptFragment, error) {
	total := src.Len()
	fragments := make([]schema.TranscriptFragment, 0, total)

	var bar *progressbar.ProgressBar
	if t.progress && total > 1 {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription(fmt.Sprintf("transcribing %d chunks", total)),
			progressbar.OptionShowBytes(false),
			progressbar.OptionClearOnFinish(),
		)
	}

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}

		chunk, err := src.Chunk(ctx, i)
		if err != nil {
			return "", nil, fmt.Errorf("materializing chunk %d: %w", i, err)
		}

		xlog.Debug("transcribing chunk", "index", i, "total", total, "start", chunk.Start, "end", chunk.End)
		text, err := t.stt.Transcribe(ctx, chunk, t.language)
		if err != nil {
			return "", nil, &TranscriptionError{Chunk: i, Err: err}
		}
		fragments = append(fragments, schema.TranscriptFragment{Chunk: i, Text: text})

		if err := src.Discard(i); err != nil {
			xlog.Warn("could not discard chunk file", "index", i, "error", err)
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	return Stitch(fragments), fragments, nil
}

// Stitch joins fragment text in ascending chunk-index order with a single
// space, regardless of the order fragments arrive in. Fragment text is
// trimmed so the separator stays deterministic.
func Stitch(fragments []schema.TranscriptFragment) string {
	ordered := make([]schema.TranscriptFragment, len(fragments))
	copy(ordered, fragments)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Chunk < ordered[j].Chunk })

	parts := make([]string, 0, len(ordered))
	for _, f := range ordered {
		if text := strings.TrimSpace(f.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
