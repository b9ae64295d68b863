// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package main

import (
	"encoding/json"
	"fmt"

	"github.com/foundriesio/bmcrsu/pkg/api"
	"github.com/spf13/cobra"
)

type historyOptions struct {
	correlationId string
	format        string
	pruneUpTo     int
}

func init() {
	opts := historyOptions{pruneUpTo: -1}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the journal of update and image load operations",
		Run: func(cmd *cobra.Command, args []string) {
			doHistory(&opts)
		},
		Args: cobra.NoArgs,
	}
	cmd.Flags().StringVar(&opts.correlationId, "update", "", "Only show the events of this update.")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text or json.")
	cmd.Flags().IntVar(&opts.pruneUpTo, "prune", -1, "Delete the journal entries up to and including this row id.")
	rootCmd.AddCommand(cmd)
}

func doHistory(opts *historyOptions) {
	if opts.pruneUpTo >= 0 {
		DieNotNil(api.PruneHistory(config, opts.pruneUpTo), "Failed to prune history")
	}
	evts, err := api.History(config, opts.correlationId)
	DieNotNil(err, "Failed to read history")

	if opts.format == "json" {
		b, err := json.MarshalIndent(evts, "", "  ")
		DieNotNil(err)
		fmt.Println(string(b))
		return
	}
	for _, e := range evts {
		result := "-"
		if e.Event.Success != nil {
			result = "ok"
			if !*e.Event.Success {
				result = "failed"
				if e.Event.Code != "" {
					result = e.Event.Code
				}
			}
		}
		fmt.Printf("%s  %-20s %-8s %-14s %s\n", e.DeviceTime, e.EventType.Id, e.Event.Board, result, e.Event.Image)
	}
}
