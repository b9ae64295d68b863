// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type configExtractOpts struct {
	out string
}

func init() {
	opts := configExtractOpts{}
	cmd := &cobra.Command{
		Use:   "config-extract",
		Short: "Write the merged configuration of all --cfg-dirs into a single TOML file",
		Run: func(cmd *cobra.Command, args []string) {
			doConfigExtract(cmd, &opts)
		},
		Args: cobra.NoArgs,
	}
	cmd.Flags().StringVar(&opts.out, "out", "bmcrsu.toml", "Path of the merged configuration file.")
	rootCmd.AddCommand(cmd)
}

func doConfigExtract(_ *cobra.Command, opts *configExtractOpts) {
	cobra.CheckErr(config.TomlConfig().Write(opts.out))
	for _, f := range config.TomlConfig().Files() {
		fmt.Println("merged", f)
	}
}
