package cost

import (
	"errors"
	"fmt"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/mudler/recap/core/schema"
)

// ErrUnknownModel is returned when a model has no entry in the price table.
// Estimates never silently fall back to zero.
var ErrUnknownModel = errors.New("no pricing known for model")

// Price holds USD rates per 1K tokens.
type Price struct {
	Input  float64
	Output float64
}

// Prices per 1K tokens. https://openai.com/pricing
var modelPrices = map[string]Price{
	"gpt-4":         {Input: 0.03, Output: 0.06},
	"gpt-4o":        {Input: 0.0025, Output: 0.01},
	"gpt-4o-mini":   {Input: 0.00015, Output: 0.0006},
	"gpt-3.5-turbo": {Input: 0.0015, Output: 0.002},
}

// USD per minute of transcribed audio.
var audioPrices = map[string]float64{
	"whisper-1": 0.006,
}

// Validate reports whether the price table covers the given chat model.
// Called before any spend so a table miss surfaces up front.
func Validate(model string) error {
	if _, ok := modelPrices[model]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	return nil
}

// ValidateAudio reports whether the audio price table covers the given
// transcription model.
func ValidateAudio(model string) error {
	if _, ok := audioPrices[model]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	return nil
}

// Estimate computes the cost of a single completion call.
func Estimate(model string, promptTokens, completionTokens int) (float64, error) {
	p, ok := modelPrices[model]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	return float64(promptTokens)/1000*p.Input + float64(completionTokens)/1000*p.Output, nil
}

// EstimateAudio computes the cost of transcribing the given duration.
func EstimateAudio(model string, d time.Duration) (float64, error) {
	perMinute, ok := audioPrices[model]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	return d.Minutes() * perMinute, nil
}

// CountTokens counts the tokens tiktoken assigns to text for the given
// model. Models tiktoken does not know by name fall back to cl100k_base.
func CountTokens(model, text string) (int, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return 0, err
		}
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// Entry is one recorded external call.
type Entry struct {
	Model            string
	PromptTokens     int
	CompletionTokens int
	AudioSeconds     float64
	Cost             float64
}

// Record accumulates the estimated cost of one pipeline run. It is
// append-only while the run is in flight and read once it finishes.
type Record struct {
	entries []Entry
}

func NewRecord() *Record {
	return &Record{}
}

// AddUsage records a completion call. A zero Usage (failed call that
// reported nothing) is recorded as a zero-cost entry so the call count
// stays honest.
func (r *Record) AddUsage(u schema.Usage) error {
	e := Entry{Model: u.Model, PromptTokens: u.PromptTokens, CompletionTokens: u.CompletionTokens}
	if u.PromptTokens > 0 || u.CompletionTokens > 0 {
		c, err := Estimate(u.Model, u.PromptTokens, u.CompletionTokens)
		if err != nil {
			return err
		}
		e.Cost = c
	}
	r.entries = append(r.entries, e)
	return nil
}

// AddAudio records a transcription call of the given duration.
func (r *Record) AddAudio(model string, d time.Duration) error {
	c, err := EstimateAudio(model, d)
	if err != nil {
		return err
	}
	r.entries = append(r.entries, Entry{Model: model, AudioSeconds: d.Seconds(), Cost: c})
	return nil
}

// Calls returns the number of recorded external calls.
func (r *Record) Calls() int {
	return len(r.entries)
}

// Entries returns a copy of the recorded calls.
func (r *Record) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Total sums the per-call estimates. Order of recording does not matter.
func (r *Record) Total() float64 {
	var total float64
	for _, e := range r.entries {
		total += e.Cost
	}
	return total
}
