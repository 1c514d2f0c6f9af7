package cli

import (
	"context"
	"fmt"
	"time"

	cliContext "github.com/mudler/recap/core/cli/context"
	"github.com/mudler/recap/pkg/media"
)

type InspectCMD struct {
	Filename string `arg:"" type:"existingfile" help:"Audio or video file to inspect"`

	MaxChunkMinutes int   `env:"RECAP_MAX_CHUNK_MINUTES" default:"10" help:"Maximum duration per transcription chunk" group:"limits"`
	MaxPayloadMB    int64 `env:"RECAP_MAX_PAYLOAD_MB" default:"25" help:"Maximum upload size per transcription chunk" group:"limits"`
}

func (i *InspectCMD) Run(ctx *cliContext.Context) error {
	input, err := media.Probe(context.Background(), i.Filename)
	if err != nil {
		return err
	}

	fmt.Printf("file:     %s\n", input.Path)
	fmt.Printf("format:   %s\n", input.Format)
	fmt.Printf("duration: %s\n", input.Duration.Round(time.Millisecond))
	fmt.Printf("size:     %d bytes\n", input.Size)
	fmt.Printf("modified: %s\n", input.ModTime.Format(time.RFC3339))

	limits := media.Limits{
		MaxPayloadBytes:  i.MaxPayloadMB << 20,
		MaxChunkDuration: time.Duration(i.MaxChunkMinutes) * time.Minute,
	}
	plan, err := media.PlanSegments(input, limits)
	if err != nil {
		return err
	}

	if plan.Whole() {
		fmt.Println("segmentation: not needed, the file fits in a single request")
		return nil
	}
	fmt.Printf("segmentation: %d chunks\n", len(plan.Spans))
	for idx, span := range plan.Spans {
		fmt.Printf(" %3d: %s - %s\n", idx, span.Start.Round(time.Millisecond), span.End.Round(time.Millisecond))
	}
	return nil
}
