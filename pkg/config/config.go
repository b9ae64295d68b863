// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/foundriesio/bmcrsu/pkg/doorbell"
	"github.com/foundriesio/bmcrsu/pkg/poll"
	"github.com/foundriesio/bmcrsu/pkg/regport"
	"github.com/foundriesio/bmcrsu/pkg/rsu"
	"github.com/rs/zerolog/log"
)

type (
	Config struct {
		tomlConfig *AppConfig
		csr        doorbell.CSRMap
		timeouts   rsu.Timeouts
	}
)

const (
	BoardKey          = "device.board"
	TransportKey      = "device.transport"
	StagingSizeKey    = "device.staging_size"
	WriteBlockSizeKey = "device.write_block_size"
	StorageDirKey     = "storage.path"
	SQLDBPathKey      = "storage.sqldb_path"
	MetricsTextfile   = "metrics.textfile"

	StorageDefaultDir = "/var/bmcrsu"
	SQLDBDefaultPath  = "sql.db"
	PidFilename       = "update.pid"
)

var DefaultConfigOrder = []string{"/usr/lib/bmcrsu", "/var/bmcrsu", "/etc/bmcrsu"}

func NewConfig(tomlConfigPaths []string) (*Config, error) {
	var err error
	cfg := &Config{}

	if len(tomlConfigPaths) == 0 {
		return nil, fmt.Errorf("config: no TOML paths provided")
	}
	if cfg.tomlConfig, err = NewAppConfig(tomlConfigPaths); err != nil {
		return nil, fmt.Errorf("config: failed to load TOML from paths %q: %w",
			strings.Join(tomlConfigPaths, ", "), err)
	}
	// Check mandatory fields in the TOML config
	if !cfg.tomlConfig.Has(BoardKey) {
		return nil, fmt.Errorf("no %q is found in the TOML config;"+
			" it defines the board family, one of: %s", BoardKey, strings.Join(doorbell.Boards(), ", "))
	}
	if cfg.csr, err = doorbell.LookupCSRMap(doorbell.Board(cfg.tomlConfig.Get(BoardKey))); err != nil {
		return nil, fmt.Errorf("invalid value of %q: %w", BoardKey, err)
	}
	if err := cfg.loadStagingGeometry(); err != nil {
		return nil, err
	}
	cfg.timeouts = cfg.loadTimeouts()
	return cfg, nil
}

func (c *Config) loadStagingGeometry() error {
	size, err := c.getUint32(StagingSizeKey, c.csr.StagingSize)
	if err != nil {
		return err
	}
	if size == 0 || size%c.csr.Stride != 0 {
		return fmt.Errorf("invalid value of %q: %d is not a non-zero multiple of %d", StagingSizeKey, size, c.csr.Stride)
	}
	blk, err := c.getUint32(WriteBlockSizeKey, c.csr.WriteBlockSize)
	if err != nil {
		return err
	}
	if blk == 0 || blk%c.csr.Stride != 0 {
		return fmt.Errorf("invalid value of %q: %d is not a non-zero multiple of %d", WriteBlockSizeKey, blk, c.csr.Stride)
	}
	c.csr.StagingSize = size
	c.csr.WriteBlockSize = blk
	return nil
}

func (c *Config) getUint32(key string, def uint32) (uint32, error) {
	if !c.tomlConfig.Has(key) {
		return def, nil
	}
	v, err := strconv.ParseUint(c.tomlConfig.Get(key), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value of %q: %w", key, err)
	}
	return uint32(v), nil
}

// loadTimeouts reads the polling classes. Unparsable or non-positive durations
// fall back to the defaults with a warning.
func (c *Config) loadTimeouts() rsu.Timeouts {
	t := rsu.DefaultTimeouts()
	for name, iv := range map[string]*poll.Interval{
		"handshake":       &t.Handshake,
		"prepare":         &t.Prepare,
		"complete":        &t.Complete,
		"retimer_trigger": &t.RetimerTrigger,
		"retimer_preload": &t.RetimerPreload,
	} {
		iv.Every = c.getDuration("timeouts."+name+"_interval", iv.Every)
		iv.Timeout = c.getDuration("timeouts."+name+"_timeout", iv.Timeout)
		log.Debug().Str("class", name).Str("interval", iv.String()).Msg("poll class set")
	}
	return t
}

func (c *Config) getDuration(key string, def time.Duration) time.Duration {
	if !c.tomlConfig.Has(key) {
		return def
	}
	s := c.tomlConfig.Get(key)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		log.Warn().Str("key", key).Str("value", s).Dur("default", def).Msg("invalid duration; using default")
		return def
	}
	return d
}

func (c *Config) GetBoard() doorbell.Board {
	return c.csr.Board
}

// GetCSRMap returns the board register map with the configured staging geometry applied.
func (c *Config) GetCSRMap() doorbell.CSRMap {
	return c.csr
}

func (c *Config) GetTransport() string {
	return c.tomlConfig.GetDefault(TransportKey, regport.TransportSim)
}

func (c *Config) GetTimeouts() rsu.Timeouts {
	return c.timeouts
}

func (c *Config) GetStorageDir() string {
	return c.tomlConfig.GetDefault(StorageDirKey, StorageDefaultDir)
}

func (c *Config) GetDBPath() string {
	p := c.tomlConfig.GetDefault(SQLDBPathKey, SQLDBDefaultPath)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.GetStorageDir(), p)
}

func (c *Config) GetPidPath() string {
	return filepath.Join(c.GetStorageDir(), PidFilename)
}

// GetMetricsTextfile returns the node-exporter textfile to write metrics to, empty if disabled.
func (c *Config) GetMetricsTextfile() string {
	return c.tomlConfig.Get(MetricsTextfile)
}

func (c *Config) TomlConfig() *AppConfig {
	return c.tomlConfig
}
