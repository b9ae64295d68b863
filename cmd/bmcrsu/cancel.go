// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package main

import (
	"github.com/foundriesio/bmcrsu/pkg/api"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the running update operation",
		Run: func(cmd *cobra.Command, args []string) {
			doCancel(cmd)
		},
		Args: cobra.NoArgs,
	}
	rootCmd.AddCommand(cmd)
}

func doCancel(_ *cobra.Command) {
	pid, err := api.Cancel(config)
	DieNotNil(err, "Failed to perform cancel")
	log.Info().Msgf("Cancel requested from update process %d", pid)
}
