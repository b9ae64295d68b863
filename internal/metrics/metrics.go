// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the update collectors of one bmcrsu run. The command exits after
// each operation, so they are exported through a node-exporter textfile rather
// than an HTTP endpoint.
type Metrics struct {
	Registry *prometheus.Registry

	UpdatesTotal       *prometheus.CounterVec
	UpdateDuration     *prometheus.GaugeVec
	StagedBytesTotal   *prometheus.CounterVec
	ImageLoadsTotal    *prometheus.CounterVec
	DoorbellRaw        *prometheus.GaugeVec
	LastUpdateTimeSecs *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		UpdatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bmcrsu_updates_total",
				Help: "Number of RSU update attempts by result code",
			},
			[]string{"board", "code"},
		),
		UpdateDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bmcrsu_update_duration_seconds",
				Help: "Duration of the last RSU update",
			},
			[]string{"board"},
		),
		StagedBytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bmcrsu_staged_bytes_total",
				Help: "Number of image bytes written into the staging area",
			},
			[]string{"board"},
		),
		ImageLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bmcrsu_image_loads_total",
				Help: "Number of image load requests by image and result code",
			},
			[]string{"board", "image", "code"},
		),
		DoorbellRaw: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bmcrsu_doorbell_raw",
				Help: "Last doorbell register value read at the end of an operation",
			},
			[]string{"board"},
		),
		LastUpdateTimeSecs: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bmcrsu_last_update_timestamp_seconds",
				Help: "Unix time the last RSU update finished",
			},
			[]string{"board"},
		),
	}
	m.Registry.MustRegister(m.UpdatesTotal)
	m.Registry.MustRegister(m.UpdateDuration)
	m.Registry.MustRegister(m.StagedBytesTotal)
	m.Registry.MustRegister(m.ImageLoadsTotal)
	m.Registry.MustRegister(m.DoorbellRaw)
	m.Registry.MustRegister(m.LastUpdateTimeSecs)
	return m
}

// ObserveUpdate records the outcome of one update. code is empty on success.
func (m *Metrics) ObserveUpdate(board, code string, started time.Time, staged int) {
	if code == "" {
		code = "ok"
	}
	now := time.Now()
	m.UpdatesTotal.WithLabelValues(board, code).Inc()
	m.UpdateDuration.WithLabelValues(board).Set(now.Sub(started).Seconds())
	m.StagedBytesTotal.WithLabelValues(board).Add(float64(staged))
	m.LastUpdateTimeSecs.WithLabelValues(board).Set(float64(now.Unix()))
}

func (m *Metrics) ObserveImageLoad(board, image, code string) {
	if code == "" {
		code = "ok"
	}
	m.ImageLoadsTotal.WithLabelValues(board, image, code).Inc()
}

func (m *Metrics) SetDoorbell(board string, raw uint32) {
	m.DoorbellRaw.WithLabelValues(board).Set(float64(raw))
}

// WriteTextfile atomically replaces path with the current metric values.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
