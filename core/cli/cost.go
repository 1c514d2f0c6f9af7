package cli

import (
	"fmt"
	"os"

	cliContext "github.com/mudler/recap/core/cli/context"
	"github.com/mudler/recap/pkg/cost"
)

type CostCMD struct {
	Filename string `arg:"" type:"existingfile" help:"Text file to estimate"`

	Model           string `short:"m" env:"RECAP_MODEL" default:"gpt-4o-mini" help:"Model to price the text against"`
	MaxOutputTokens int    `default:"4000" help:"Assumed maximum completion tokens"`
}

func (c *CostCMD) Run(ctx *cliContext.Context) error {
	data, err := os.ReadFile(c.Filename)
	if err != nil {
		return err
	}

	tokens, err := cost.CountTokens(c.Model, string(data))
	if err != nil {
		return err
	}
	estimate, err := cost.Estimate(c.Model, tokens, c.MaxOutputTokens)
	if err != nil {
		return err
	}

	fmt.Printf("model:          %s\n", c.Model)
	fmt.Printf("input tokens:   %d\n", tokens)
	fmt.Printf("output tokens:  %d (assumed)\n", c.MaxOutputTokens)
	fmt.Printf("estimated cost: $%.4f\n", estimate)
	return nil
}
