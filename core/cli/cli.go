package cli

import (
	cliContext "github.com/mudler/recap/core/cli/context"
)

var CLI struct {
	cliContext.Context `embed:""`

	Process ProcessCMD `cmd:"" help:"Transcribe, summarize and extract action items from a recording. This is the default command if no other command is specified" default:"withargs"`
	Inspect InspectCMD `cmd:"" help:"Probe a media file and show how it would be segmented"`
	Cost    CostCMD    `cmd:"" help:"Estimate the token count and cost of processing a text with a model, without calling the API"`
}
