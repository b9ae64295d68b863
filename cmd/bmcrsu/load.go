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
		Use:   "load <image>",
		Short: "Make an image active, e.g. reboot the BMC into its user image",
		Run: func(cmd *cobra.Command, args []string) {
			doLoad(cmd, args[0])
		},
		Args: cobra.ExactArgs(1),
	}
	rootCmd.AddCommand(cmd)
}

func doLoad(cmd *cobra.Command, name string) {
	ctrl, err := api.NewController(config)
	DieNotNil(err, "Failed to attach to the BMC")
	DieNotNil(api.Load(cmd.Context(), config, ctrl, name), "Failed to load "+name)
	log.Info().Msgf("Image %s loaded", name)
}
