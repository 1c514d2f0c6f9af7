package config

import (
	"context"
	"time"

	"github.com/mudler/recap/pkg/media"
)

// ApplicationConfig carries everything one pipeline invocation needs.
// Nothing here is global; the config is passed explicitly.
type ApplicationConfig struct {
	Context context.Context

	OutputDir string
	TempDir   string

	ChatModel       string
	TranscribeModel string
	MaxTokens       int

	Language       string // language hint for the audio
	Translate      bool
	TargetLanguage string
	Topics         bool

	SummaryLength int

	Limits     media.Limits
	MaxRetries uint64
	Progress   bool
}

type AppOption func(*ApplicationConfig)

func NewApplicationConfig(o ...AppOption) *ApplicationConfig {
	opt := &ApplicationConfig{
		Context:         context.Background(),
		OutputDir:       "output",
		ChatModel:       "gpt-4o-mini",
		TranscribeModel: "whisper-1",
		MaxTokens:       4000,
		TargetLanguage:  "en",
		SummaryLength:   500,
		Limits:          media.DefaultLimits,
		MaxRetries:      3,
	}
	for _, oo := range o {
		oo(opt)
	}
	return opt
}

func WithContext(ctx context.Context) AppOption {
	return func(o *ApplicationConfig) {
		o.Context = ctx
	}
}

func WithOutputDir(dir string) AppOption {
	return func(o *ApplicationConfig) {
		o.OutputDir = dir
	}
}

func WithTempDir(dir string) AppOption {
	return func(o *ApplicationConfig) {
		o.TempDir = dir
	}
}

func WithChatModel(model string) AppOption {
	return func(o *ApplicationConfig) {
		o.ChatModel = model
	}
}

func WithTranscribeModel(model string) AppOption {
	return func(o *ApplicationConfig) {
		o.TranscribeModel = model
	}
}

func WithMaxTokens(n int) AppOption {
	return func(o *ApplicationConfig) {
		o.MaxTokens = n
	}
}

func WithLanguage(lang string) AppOption {
	return func(o *ApplicationConfig) {
		o.Language = lang
	}
}

func WithTranslation(target string) AppOption {
	return func(o *ApplicationConfig) {
		o.Translate = true
		if target != "" {
			o.TargetLanguage = target
		}
	}
}

func WithTopics(enabled bool) AppOption {
	return func(o *ApplicationConfig) {
		o.Topics = enabled
	}
}

func WithSummaryLength(n int) AppOption {
	return func(o *ApplicationConfig) {
		o.SummaryLength = n
	}
}

func WithLimits(maxPayloadBytes int64, maxChunk time.Duration) AppOption {
	return func(o *ApplicationConfig) {
		o.Limits = media.Limits{MaxPayloadBytes: maxPayloadBytes, MaxChunkDuration: maxChunk}
	}
}

func WithMaxRetries(n uint64) AppOption {
	return func(o *ApplicationConfig) {
		o.MaxRetries = n
	}
}

func WithProgress(enabled bool) AppOption {
	return func(o *ApplicationConfig) {
		o.Progress = enabled
	}
}
