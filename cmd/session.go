package cmd

import (
	"context"
	"fmt"

	outcomeadapter "github.com/bnema/opsbot/internal/adapters/render/outcome"
	"github.com/bnema/opsbot/internal/application"
	"github.com/bnema/opsbot/internal/domain"
	"github.com/bnema/opsbot/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
)

const connectLabel = "Connecting to Discord..."

// runManifest runs manifest in one session, or prints its plan on --dry-run.
func (a *app) runManifest(cmd *cobra.Command, manifest domain.Manifest) error {
	if a.flags.dryRun {
		return a.printPlan(cmd, manifest)
	}

	var result application.Result
	err := a.withSpinner(cmd, func(ctx context.Context, progress func(application.StepProgress)) error {
		var err error
		result, err = a.runner.Run(ctx, manifest, application.RunOptions{Progress: progress})
		return err
	})
	if err != nil {
		return err
	}

	return a.writeResult(cmd, result)
}

// runSteps runs prepared steps; plan describes them for --dry-run.
func (a *app) runSteps(cmd *cobra.Command, plan domain.Manifest, steps []application.Step) error {
	if a.flags.dryRun {
		return a.printPlan(cmd, plan)
	}
	if err := plan.Validate(); err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}

	var result application.Result
	err := a.withSpinner(cmd, func(ctx context.Context, progress func(application.StepProgress)) error {
		var err error
		opts := application.RunOptions{ContinueOnError: plan.ContinueOnError, Progress: progress}
		result, err = a.runner.RunSteps(ctx, plan.Identity, plan.RequiredIntents(), opts, steps...)
		return err
	})
	if err != nil {
		return err
	}

	return a.writeResult(cmd, result)
}

// withSpinner runs work behind the session spinner. Log lines below error
// level are held back while it draws on stderr.
func (a *app) withSpinner(cmd *cobra.Command, work func(context.Context, func(application.StepProgress)) error) error {
	if !a.spinner {
		return work(cmd.Context(), nil)
	}
	restore := logger.Quiet(a.log, zapcore.ErrorLevel)
	defer restore()

	return runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), connectLabel, work)
}

func (a *app) printPlan(cmd *cobra.Command, manifest domain.Manifest) error {
	plan, err := application.PlanManifest(manifest)
	if err != nil {
		return err
	}

	if a.flags.json {
		return outcomeadapter.WriteJSON(cmd.OutOrStdout(), plan)
	}

	rendered, err := outcomeadapter.RenderPlan(plan)
	if err != nil {
		return fmt.Errorf("render plan: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

// writeResult prints result and returns its failures marked as reported.
func (a *app) writeResult(cmd *cobra.Command, result application.Result) error {
	if a.flags.json {
		if err := outcomeadapter.WriteJSON(cmd.OutOrStdout(), outcomeadapter.NewResultDocument(result)); err != nil {
			return err
		}
	} else {
		rendered, err := a.renderer(result, outcomeadapter.RenderOptions{Now: a.clock.Now()})
		if err != nil {
			return fmt.Errorf("render result: %w", err)
		}
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), rendered); err != nil {
			return err
		}
	}

	if err := result.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrReported, err)
	}
	return nil
}

func singleActionManifest(identity domain.Identity, action domain.Action) domain.Manifest {
	return domain.Manifest{Identity: identity, Actions: []domain.Action{action}}
}
