package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newPublishDueCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "publish-due",
		Short: "Publish every scheduled post that is due, then exit",
		Long: `Run a single publication scan. Use this from cron instead of the
in-process trigger. The configuration must have trigger.enabled set to false,
otherwise a running server and cron would scan at the same time; the command
refuses to run when the trigger is enabled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return publishDue(cmd.Context(), opts)
		},
	}
}

func publishDue(ctx context.Context, opts *rootOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.cfg.Trigger.Enabled {
		return errors.New("publish-due requires trigger.enabled to be false")
	}

	a, err := newApp(opts.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to gracefully close application")
		}
	}()

	stats, err := a.trigger.RunOnce(ctx)
	if err != nil {
		return err
	}

	log.Info().
		Int("due", stats.Due).
		Int("published", stats.Published).
		Int("skipped", stats.Skipped).
		Int("errors", stats.Errors).
		Msg("Publication scan finished")

	if stats.Errors > 0 {
		return fmt.Errorf("failed to publish %d of %d due posts", stats.Errors, stats.Due)
	}
	return nil
}
