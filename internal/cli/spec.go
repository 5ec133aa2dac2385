package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devagent/orchestrator/config"
	"github.com/devagent/orchestrator/specpipeline"
)

var specCmd = &cobra.Command{
	Use:   "spec",
	Short: "Run the Spec Orchestrator: discovery through validation, producing spec.md and a plan",
	RunE:  runSpec,
}

func runSpec(cmd *cobra.Command, _ []string) error {
	opts, err := readRunOptions(cmd)
	if err != nil {
		return err
	}

	settings, err := config.Load()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	notifyCancel(ctx, cancel)

	h, cleanup, err := newHost(ctx, settings, opts.project, opts.specDir, opts)
	if err != nil {
		return fmt.Errorf("wire host: %w", err)
	}
	defer cleanup()

	pipeline := specpipeline.New(specpipeline.Options{Dir: h.Dir, Runner: h})
	outcome := pipeline.Run(ctx)

	fmt.Printf("spec pipeline finished: kind=%s phases=%v duration_ms=%d\n", outcome.Kind, outcome.PhasesExecuted, outcome.DurationMs)
	if outcome.Kind != specpipeline.OutcomeSuccess {
		if outcome.Error != nil {
			return outcome.Error
		}
		return fmt.Errorf("spec pipeline did not succeed: %s", outcome.Kind)
	}
	return nil
}
