// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package hostinfo

import (
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	ini "gopkg.in/ini.v1"
)

const (
	OS_RELEASE = "/etc/os-release"

	OS_ID         = "ID"
	OS_VERSION_ID = "VERSION_ID"
	OS_PRETTY     = "PRETTY_NAME"
	OS_MACHINE    = "LMP_MACHINE"
)

type HostInfo struct {
	Hostname  string
	OSID      string
	OSVersion string
	Pretty    string
	Machine   string
}

// Read collects the host identity attached to journal entries. Missing or
// unparsable sources leave the corresponding fields empty.
func Read(osRelease string) HostInfo {
	var h HostInfo
	if name, err := os.Hostname(); err == nil {
		h.Hostname = name
	}
	if _, err := os.Stat(osRelease); err != nil {
		return h
	}
	cfg, err := ini.Load(osRelease)
	if err != nil {
		log.Warn().Msgf("Can't parse file %s", osRelease)
		return h
	}
	get := func(key string) string {
		return strings.ReplaceAll(cfg.Section("").Key(key).String(), "\"", "")
	}
	h.OSID = get(OS_ID)
	h.OSVersion = get(OS_VERSION_ID)
	h.Pretty = get(OS_PRETTY)
	h.Machine = get(OS_MACHINE)
	return h
}

func (h HostInfo) String() string {
	parts := []string{h.Hostname}
	switch {
	case h.Pretty != "":
		parts = append(parts, h.Pretty)
	case h.OSID != "":
		parts = append(parts, strings.TrimSpace(h.OSID+" "+h.OSVersion))
	}
	if h.Machine != "" {
		parts = append(parts, h.Machine)
	}
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "/")
}
