// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// AppConfig is the merged view of every .toml file found in the configuration
// directories. Files are applied in directory order, then by name; a key set in a
// later file overrides the same key from an earlier one.
type AppConfig struct {
	trees []*toml.Tree
	files []string
}

func NewAppConfig(dirs []string) (*AppConfig, error) {
	cfg := &AppConfig{}
	for _, dir := range dirs {
		matches, err := filepath.Glob(filepath.Join(dir, "*.toml"))
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)
		for _, path := range matches {
			tree, err := toml.LoadFile(path)
			if err != nil {
				return nil, errors.Wrapf(err, "unable to parse %s", path)
			}
			log.Debug().Str("file", path).Msg("loaded configuration")
			cfg.trees = append(cfg.trees, tree)
			cfg.files = append(cfg.files, path)
		}
	}
	if len(cfg.trees) == 0 {
		return nil, fmt.Errorf("no .toml files found in %s", strings.Join(dirs, ", "))
	}
	return cfg, nil
}

// Files lists the loaded configuration files in the order they were applied.
func (c *AppConfig) Files() []string {
	return c.files
}

func (c *AppConfig) lookup(key string) (any, bool) {
	for i := len(c.trees) - 1; i >= 0; i-- {
		if v := c.trees[i].Get(key); v != nil {
			if _, isTable := v.(*toml.Tree); isTable {
				continue
			}
			return v, true
		}
	}
	return nil, false
}

func (c *AppConfig) Has(key string) bool {
	_, ok := c.lookup(key)
	return ok
}

// Get returns the string form of key, or "" when it is not set.
func (c *AppConfig) Get(key string) string {
	v, ok := c.lookup(key)
	if !ok {
		return ""
	}
	return fmt.Sprint(v)
}

func (c *AppConfig) GetDefault(key, def string) string {
	if !c.Has(key) {
		return def
	}
	return c.Get(key)
}

// Write stores the merged configuration as a single TOML document.
func (c *AppConfig) Write(path string) error {
	merged, err := toml.TreeFromMap(map[string]any{})
	if err != nil {
		return err
	}
	for _, tree := range c.trees {
		mergeTree(merged, tree, "")
	}
	b, err := merged.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func mergeTree(dst, src *toml.Tree, prefix string) {
	for _, k := range src.Keys() {
		v := src.Get(k)
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(*toml.Tree); ok {
			mergeTree(dst, sub, key)
			continue
		}
		dst.SetPath(strings.Split(key, "."), v)
	}
}
