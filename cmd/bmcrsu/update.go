// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/foundriesio/bmcrsu/pkg/api"
	"github.com/foundriesio/bmcrsu/pkg/rsu"
	"github.com/foundriesio/bmcrsu/pkg/state"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type updateOptions struct {
	noProgress bool
}

func init() {
	opts := updateOptions{}
	cmd := &cobra.Command{
		Use:   "update <image>",
		Short: "Stream an image into the BMC staging area and wait until the BMC programmed it",
		Long: `Stream an image into the BMC staging area and wait until the BMC programmed it.

SIGINT, SIGTERM or "bmcrsu cancel" abort the update as long as the BMC has not
started to authenticate the image.`,
		Run: func(cmd *cobra.Command, args []string) {
			doUpdate(cmd, args[0], &opts)
		},
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Do not render a progress bar while staging the image.")
	rootCmd.AddCommand(cmd)
}

func doUpdate(cmd *cobra.Command, image string, opts *updateOptions) {
	ctrl, err := api.NewController(config)
	DieNotNil(err, "Failed to attach to the BMC")
	DieNotNil(api.WritePidFile(config), "Failed to register the update")

	err = runUpdate(cmd.Context(), ctrl, image, opts)
	api.RemovePidFile(config)
	DieNotNil(err, "Update failed")
	log.Info().Msg("BMC update completed")
}

// runUpdate drives the update in one goroutine while another turns termination
// signals into a session cancel request.
func runUpdate(ctx context.Context, ctrl *rsu.Controller, image string, opts *updateOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	// Registered before any goroutine starts so an early signal is not lost to
	// the default handler.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, api.CancelSignal)
	defer signal.Stop(sigs)

	watchCtx, stopWatch := context.WithCancel(ctx)
	g, watchCtx := errgroup.WithContext(watchCtx)
	g.Go(func() error {
		watchSignals(watchCtx, sigs, ctrl.Session())
		return nil
	})
	g.Go(func() error {
		defer stopWatch()
		// The update runs on ctx, not watchCtx, so a signal goes through the
		// session cancel sequence instead of aborting a poll midway.
		return api.Update(ctx, config, ctrl, image, updateProgressOptions(opts)...)
	})
	return g.Wait()
}

func watchSignals(ctx context.Context, sigs <-chan os.Signal, session *rsu.Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-sigs:
			if session.CancelRequested() {
				log.Warn().Msg("cancel already requested; waiting for the BMC")
				continue
			}
			log.Info().Str("signal", s.String()).Msg("cancel requested")
			session.Cancel()
		}
	}
}

func updateProgressOptions(opts *updateOptions) []api.UpdateOpt {
	options := []api.UpdateOpt{
		api.WithPreStateHandler(func(name state.ActionName, u *state.UpdateContext) {
			log.Info().Msgf("[%d/%d] %s", u.CurrentStateNum, u.TotalStates, name)
		}),
	}
	if opts.noProgress {
		return options
	}
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		lastQuarter := 0
		return append(options, api.WithProgressHandler(func(staged, total int) {
			if q := staged * 4 / total; q > lastQuarter {
				lastQuarter = q
				log.Info().Msgf("staged %d of %d bytes", staged, total)
			}
		}))
	}
	var bar *progressbar.ProgressBar
	return append(options, api.WithProgressHandler(func(staged, total int) {
		if bar == nil {
			bar = progressbar.DefaultBytes(int64(total), "staging")
		}
		if err := bar.Set(staged); err != nil {
			log.Err(err).Msg("Error setting progress bar")
		}
		if staged >= total {
			_ = bar.Close()
		}
	}))
}
