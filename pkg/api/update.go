// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package api

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/foundriesio/bmcrsu/internal/db"
	"github.com/foundriesio/bmcrsu/internal/events"
	"github.com/foundriesio/bmcrsu/internal/hostinfo"
	"github.com/foundriesio/bmcrsu/internal/metrics"
	"github.com/foundriesio/bmcrsu/pkg/config"
	"github.com/foundriesio/bmcrsu/pkg/regport"
	"github.com/foundriesio/bmcrsu/pkg/rsu"
	"github.com/foundriesio/bmcrsu/pkg/state"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type (
	UpdateOpts struct {
		ProgressHandler  state.ProgressHandler
		PreStateHandler  state.StateHandler
		PostStateHandler state.StateHandler
		Journal          state.EventJournal
		Metrics          *metrics.Metrics
		OSRelease        string
	}
	UpdateOpt func(*UpdateOpts)

	StateName = state.ActionName
)

func WithProgressHandler(h state.ProgressHandler) UpdateOpt {
	return func(o *UpdateOpts) {
		o.ProgressHandler = h
	}
}

func WithPreStateHandler(h state.StateHandler) UpdateOpt {
	return func(o *UpdateOpts) {
		o.PreStateHandler = h
	}
}

func WithPostStateHandler(h state.StateHandler) UpdateOpt {
	return func(o *UpdateOpts) {
		o.PostStateHandler = h
	}
}

// WithEventJournal replaces the sqlite journal configured by storage.sqldb_path.
func WithEventJournal(j state.EventJournal) UpdateOpt {
	return func(o *UpdateOpts) {
		o.Journal = j
	}
}

// WithMetrics collects the outcome into m. The metrics.textfile, when configured,
// is written from m once the operation finished.
func WithMetrics(m *metrics.Metrics) UpdateOpt {
	return func(o *UpdateOpts) {
		o.Metrics = m
	}
}

func WithOSRelease(path string) UpdateOpt {
	return func(o *UpdateOpts) {
		o.OSRelease = path
	}
}

func getUpdateOpts(options ...UpdateOpt) *UpdateOpts {
	opts := &UpdateOpts{
		OSRelease: hostinfo.OS_RELEASE,
	}
	for _, o := range options {
		o(opts)
	}
	return opts
}

// NewController attaches to the BMC described by cfg.
func NewController(cfg *config.Config, options ...rsu.ControllerOpt) (*rsu.Controller, error) {
	port, err := regport.Open(cfg.GetTransport(), cfg.GetCSRMap())
	if err != nil {
		return nil, err
	}
	options = append([]rsu.ControllerOpt{rsu.WithTimeouts(cfg.GetTimeouts())}, options...)
	return rsu.NewController(port, cfg.GetCSRMap(), options...), nil
}

func (opts *UpdateOpts) journal(cfg *config.Config) state.EventJournal {
	if opts.Journal != nil {
		return opts.Journal
	}
	if err := db.InitializeDatabase(cfg.GetDBPath()); err != nil {
		log.Warn().Err(err).Msg("event journal disabled")
		return nil
	}
	j, err := events.NewJournal(cfg.GetDBPath())
	if err != nil {
		log.Warn().Err(err).Msg("event journal disabled")
		return nil
	}
	return j
}

func (opts *UpdateOpts) metrics(cfg *config.Config) (*metrics.Metrics, func()) {
	m := opts.Metrics
	path := cfg.GetMetricsTextfile()
	if m == nil && path != "" {
		m = metrics.New()
	}
	return m, func() {
		if m == nil || path == "" {
			return
		}
		if err := m.WriteTextfile(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to write metrics textfile")
		}
	}
}

// Update streams the image file at imagePath into the BMC staging area and waits
// until the device programmed it.
func Update(ctx context.Context, cfg *config.Config, ctrl *rsu.Controller, imagePath string, options ...UpdateOpt) error {
	opts := getUpdateOpts(options...)
	image, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	m, flush := opts.metrics(cfg)
	defer flush()
	updateCtx := &state.UpdateContext{
		UpdateInfo: state.UpdateInfo{
			ImageName: filepath.Base(imagePath),
			Size:      len(image),
		},
		Config:        cfg,
		Controller:    ctrl,
		Journal:       opts.journal(cfg),
		Metrics:       m,
		Host:          hostinfo.Read(opts.OSRelease).String(),
		CorrelationId: uuid.New().String(),
		Image:         image,
	}
	ctrl.Session().SetActiveFlow("update")
	log.Info().Str("image", updateCtx.ImageName).Int("size", len(image)).
		Str("correlation", updateCtx.CorrelationId).Msg("starting BMC update")

	return state.NewUpdateRunner([]state.ActionState{
		&state.Prepare{},
		&state.Stage{ProgressHandler: opts.ProgressHandler},
		&state.Complete{},
	}, state.WithPreStateHandler(opts.PreStateHandler), state.WithPostStateHandler(opts.PostStateHandler)).Run(ctx, updateCtx)
}
