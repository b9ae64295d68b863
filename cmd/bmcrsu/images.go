// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package main

import (
	"fmt"

	"github.com/foundriesio/bmcrsu/pkg/api"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "List the images the BMC can be asked to load",
		Run: func(cmd *cobra.Command, args []string) {
			doImages()
		},
		Args: cobra.NoArgs,
	}
	rootCmd.AddCommand(cmd)
}

func doImages() {
	ctrl, err := api.NewController(config)
	DieNotNil(err, "Failed to attach to the BMC")
	for _, name := range api.Images(ctrl) {
		fmt.Println(name)
	}
}
