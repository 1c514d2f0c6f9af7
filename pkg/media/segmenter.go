package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mudler/recap/core/schema"
)

// Limits are the hard caps the transcription provider puts on one request.
type Limits struct {
	MaxPayloadBytes  int64
	MaxChunkDuration time.Duration
}

// DefaultLimits matches the OpenAI transcription endpoint: 25MB per
// upload, chunks capped at 10 minutes.
var DefaultLimits = Limits{
	MaxPayloadBytes:  25 << 20,
	MaxChunkDuration: 10 * time.Minute,
}

// sizeMargin keeps planned chunks below the payload limit so container
// overhead from the cut cannot push a chunk over it.
const sizeMargin = 0.95

// minChunkDuration is the smallest slice worth sending; if even this
// exceeds the size limit the input bitrate is too high to split.
const minChunkDuration = time.Second

// Span is a half-open [Start, End) slice of the input timeline.
type Span struct {
	Start time.Duration
	End   time.Duration
}

func (s Span) Duration() time.Duration { return s.End - s.Start }

// Chunk is a materialized span, written to its own file.
type Chunk struct {
	Index int
	Span
	Path string
	Size int64
}

// Plan is the ordered set of spans that partition the input timeline.
// Spans are contiguous, non-overlapping, and their union is exactly
// [0, input duration].
type Plan struct {
	Input schema.MediaInput
	Spans []Span
}

// Whole reports whether the plan is a single span covering the entire
// input, in which case no cutting happens at all.
func (p *Plan) Whole() bool { return len(p.Spans) == 1 }

// PlanSegments computes the smallest number of equal spans satisfying
// both limits. Input already within both limits yields exactly one span
// equal to the whole file.
func PlanSegments(in schema.MediaInput, lim Limits) (*Plan, error) {
	if in.Duration <= 0 {
		return nil, fmt.Errorf("%w: zero duration", ErrInvalidInput)
	}

	if in.Duration <= lim.MaxChunkDuration && in.Size <= lim.MaxPayloadBytes {
		return &Plan{Input: in, Spans: []Span{{Start: 0, End: in.Duration}}}, nil
	}

	bytesPerSec := float64(in.Size) / in.Duration.Seconds()
	maxSpan := lim.MaxChunkDuration
	if bySize := time.Duration(sizeMargin * float64(lim.MaxPayloadBytes) / bytesPerSec * float64(time.Second)); bySize < maxSpan {
		maxSpan = bySize
	}
	if maxSpan < minChunkDuration {
		return nil, fmt.Errorf("%w: bitrate %.0f B/s leaves no legal slice under %d bytes",
			ErrUnsplittable, bytesPerSec, lim.MaxPayloadBytes)
	}

	n := int(in.Duration / maxSpan)
	if in.Duration%maxSpan != 0 {
		n++
	}

	spans := make([]Span, n)
	for i := 0; i < n; i++ {
		spans[i] = Span{
			Start: in.Duration * time.Duration(i) / time.Duration(n),
			End:   in.Duration * time.Duration(i+1) / time.Duration(n),
		}
	}
	return &Plan{Input: in, Spans: spans}, nil
}

// Segmenter materializes a plan's chunks lazily, one at a time, so a
// caller can process and discard each without holding every slice on
// disk. Chunk files live in a run-scoped temp directory removed by Close
// regardless of how the run ends.
type Segmenter struct {
	plan   *Plan
	limits Limits
	dir    string
}

// NewSegmenter prepares a chunk working directory under tmpRoot (the
// system temp dir when empty).
func NewSegmenter(plan *Plan, lim Limits, tmpRoot string) (*Segmenter, error) {
	if tmpRoot == "" {
		tmpRoot = os.TempDir()
	}
	dir, err := os.MkdirTemp(tmpRoot, "recap-chunks-")
	if err != nil {
		return nil, err
	}
	return &Segmenter{plan: plan, limits: lim, dir: dir}, nil
}

// Len returns the number of chunks in the plan.
func (s *Segmenter) Len() int { return len(s.plan.Spans) }

// Chunk materializes chunk i. A whole-input plan hands back the original
// file untouched; anything else is cut with a stream copy. A chunk that
// still lands over the payload limit fails with ErrUnsplittable rather
// than being sent oversized. Calling Chunk again after Discard re-cuts
// the same span.
func (s *Segmenter) Chunk(ctx context.Context, i int) (Chunk, error) {
	if i < 0 || i >= len(s.plan.Spans) {
		return Chunk{}, fmt.Errorf("chunk index %d out of range [0,%d)", i, len(s.plan.Spans))
	}
	span := s.plan.Spans[i]

	if s.plan.Whole() {
		return Chunk{Index: 0, Span: span, Path: s.plan.Input.Path, Size: s.plan.Input.Size}, nil
	}

	ext := filepath.Ext(s.plan.Input.Path)
	dst := filepath.Join(s.dir, fmt.Sprintf("%s_part%d%s", s.plan.Input.BaseName(), i+1, ext))
	if err := cutChunk(ctx, s.plan.Input.Path, dst, span.Start.Seconds(), span.Duration().Seconds()); err != nil {
		return Chunk{}, err
	}

	info, err := os.Stat(dst)
	if err != nil {
		return Chunk{}, err
	}
	if info.Size() > s.limits.MaxPayloadBytes {
		return Chunk{}, fmt.Errorf("%w: chunk %d is %d bytes, limit %d",
			ErrUnsplittable, i, info.Size(), s.limits.MaxPayloadBytes)
	}
	return Chunk{Index: i, Span: span, Path: dst, Size: info.Size()}, nil
}

// Discard deletes chunk i's file. The original input is never deleted.
func (s *Segmenter) Discard(i int) error {
	if s.plan.Whole() {
		return nil
	}
	ext := filepath.Ext(s.plan.Input.Path)
	dst := filepath.Join(s.dir, fmt.Sprintf("%s_part%d%s", s.plan.Input.BaseName(), i+1, ext))
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Close removes the chunk working directory and everything in it.
func (s *Segmenter) Close() error {
	return os.RemoveAll(s.dir)
}
