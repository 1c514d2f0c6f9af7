package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mudler/xlog"

	cliContext "github.com/mudler/recap/core/cli/context"
	"github.com/mudler/recap/core/clients"
	"github.com/mudler/recap/core/config"
	"github.com/mudler/recap/core/schema"
	"github.com/mudler/recap/core/services"
	"github.com/mudler/recap/pkg/artifacts"
	"github.com/mudler/recap/pkg/media"
)

type ProcessCMD struct {
	Filename string `arg:"" type:"existingfile" help:"Audio or video file to process"`

	OutputDir string `env:"RECAP_OUTPUT_DIR" default:"output" help:"Directory artifacts are written to" group:"storage"`
	TempDir   string `env:"RECAP_TMPDIR" help:"Directory for temporary audio chunks (default system temp)" group:"storage"`

	APIKey  string `env:"OPENAI_API_KEY" help:"OpenAI API key (or set OPENAI_API_KEY)"`
	BaseURL string `env:"OPENAI_BASE_URL" help:"Override the OpenAI-compatible API base URL"`

	Model           string `short:"m" env:"RECAP_MODEL" default:"gpt-4o-mini" help:"Chat model used for translation, summary and action items"`
	TranscribeModel string `env:"RECAP_TRANSCRIBE_MODEL" default:"whisper-1" help:"Speech-to-text model"`
	MaxTokens       int    `env:"RECAP_MAX_TOKENS" default:"4000" help:"Maximum completion tokens per call"`

	Language       string `short:"l" env:"RECAP_LANGUAGE" help:"ISO language hint for the audio"`
	Translate      bool   `short:"t" help:"Also produce a translation of the transcript"`
	TargetLanguage string `env:"RECAP_TARGET_LANGUAGE" default:"en" help:"Language translations are produced in"`
	Topics         bool   `help:"Also extract the main topics discussed"`
	SummaryLength  int    `default:"500" help:"Approximate summary length in characters"`

	MaxChunkMinutes int   `env:"RECAP_MAX_CHUNK_MINUTES" default:"10" help:"Maximum duration per transcription chunk" group:"limits"`
	MaxPayloadMB    int64 `env:"RECAP_MAX_PAYLOAD_MB" default:"25" help:"Maximum upload size per transcription chunk" group:"limits"`
	Retries         uint  `default:"3" help:"Retry budget for transient provider errors"`

	NoProgress bool `help:"Disable the chunk progress bar"`
}

func (p *ProcessCMD) Run(ctx *cliContext.Context) error {
	if !media.CheckFFmpeg() {
		return fmt.Errorf("ffmpeg is not installed, install it before processing media files")
	}

	client, err := clients.NewOpenAI(clients.Options{
		APIKey:          p.APIKey,
		BaseURL:         p.BaseURL,
		ChatModel:       p.Model,
		TranscribeModel: p.TranscribeModel,
		MaxTokens:       p.MaxTokens,
	})
	if err != nil {
		return err
	}

	store, err := artifacts.NewStore(p.OutputDir)
	if err != nil {
		return err
	}

	opts := []config.AppOption{
		config.WithOutputDir(p.OutputDir),
		config.WithTempDir(p.TempDir),
		config.WithChatModel(p.Model),
		config.WithTranscribeModel(p.TranscribeModel),
		config.WithMaxTokens(p.MaxTokens),
		config.WithLanguage(p.Language),
		config.WithTopics(p.Topics),
		config.WithSummaryLength(p.SummaryLength),
		config.WithLimits(p.MaxPayloadMB<<20, time.Duration(p.MaxChunkMinutes)*time.Minute),
		config.WithMaxRetries(uint64(p.Retries)),
		config.WithProgress(!p.NoProgress),
	}
	if p.Translate {
		opts = append(opts, config.WithTranslation(p.TargetLanguage))
	}
	cfg := config.NewApplicationConfig(opts...)

	// Interrupts cancel the run between chunks; completed work stays cached.
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline := services.NewPipeline(cfg, store, client)
	res, err := pipeline.Run(runCtx, p.Filename)

	if res != nil && res.Cost != nil && res.Cost.Calls() > 0 {
		xlog.Info("external usage", "calls", res.Cost.Calls(), "estimatedCost", fmt.Sprintf("$%.4f", res.Cost.Total()))
	}
	if err != nil {
		return err
	}

	order := []schema.ArtifactKind{
		schema.ArtifactTranscription,
		schema.ArtifactTranslation,
		schema.ArtifactSummary,
		schema.ArtifactActionItems,
		schema.ArtifactTopics,
	}
	for _, kind := range order {
		artifact, ok := res.Artifacts[kind]
		if !ok {
			continue
		}
		cached := ""
		if res.CacheHits[kind] {
			cached = " (cached)"
		}
		fmt.Printf(" * %s: %s%s\n", kind, artifact.Path, cached)
	}
	return nil
}
