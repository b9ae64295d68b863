// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package main

import (
	"fmt"
	"os"

	"github.com/foundriesio/bmcrsu/pkg/rsu"
)

const (
	exitFailure  = 1
	exitCanceled = 2
	exitBusy     = 3
	exitTimeout  = 4
)

// exitCode maps an RSU error class onto the process exit status.
func exitCode(err error) int {
	switch rsu.CodeOf(err) {
	case rsu.CodeCanceled:
		return exitCanceled
	case rsu.CodeBusy:
		return exitBusy
	case rsu.CodeTimeout:
		return exitTimeout
	default:
		return exitFailure
	}
}

// DieNotNil logs the error and exits with the code of its RSU error class.
func DieNotNil(err error, message ...string) {
	DieNotNilWithCode(err, exitCode(err), message...)
}

// DieNotNilWithCode logs the error and exits with the given code.
func DieNotNilWithCode(err error, exitCode int, message ...string) {
	if err != nil {
		parts := []interface{}{"ERROR:"}
		for _, p := range message {
			parts = append(parts, p)
		}
		parts = append(parts, err)
		fmt.Println(parts...)
		os.Exit(exitCode)
	}
}
