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
		Use:   "status",
		Short: "Decode the BMC doorbell register",
		Run: func(cmd *cobra.Command, args []string) {
			doStatus()
		},
		Args: cobra.NoArgs,
	}
	rootCmd.AddCommand(cmd)
}

func doStatus() {
	ctrl, err := api.NewController(config)
	DieNotNil(err, "Failed to attach to the BMC")
	snap, err := api.Status(ctrl)
	DieNotNil(err, "Failed to get status infomation")

	fmt.Printf("Board:           %s\n", ctrl.CSRMap().Board)
	fmt.Printf("Doorbell:        0x%08x\n", snap.Raw)
	fmt.Printf("Progress:        %s\n", snap.Progress)
	fmt.Printf("Status:          %s\n", snap.Status)
	fmt.Printf("Host status:     %s\n", snap.HostStatus)
	fmt.Printf("RSU request:     %t\n", snap.RSURequest)
	fmt.Printf("Boot config:     %d\n", snap.ConfigSel)
	fmt.Printf("Reboot disabled: %t\n", snap.RebootDisabled)
	if auth, err := ctrl.ReadAuthResult(); err == nil {
		fmt.Printf("Auth result:     0x%08x\n", auth)
	}
}
