// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/gomlx/trtexport/pkg/support/fsutil"
	"github.com/gomlx/trtexport/pkg/support/sets"
	"github.com/pkg/errors"
)

// fields maps each setting key to a pointer to the corresponding field of s.
func (s *CompilationSettings) fields() map[string]any {
	return map[string]any{
		"enabled_precisions":          &s.EnabledPrecisions,
		"debug":                       &s.Debug,
		"workspace_size":              &s.WorkspaceSize,
		"min_block_size":              &s.MinBlockSize,
		"torch_executed_ops":          &s.TorchExecutedOps,
		"pass_through_build_failures": &s.PassThroughBuildFailures,
		"version_compatible":          &s.VersionCompatible,
		"optimization_level":          &s.OptimizationLevel,
		"truncate_double":             &s.TruncateDouble,
		"use_fast_partitioner":        &s.UseFastPartitioner,
		"require_full_compilation":    &s.RequireFullCompilation,
		"num_avg_timing_iters":        &s.NumAvgTimingIters,
		"device":                      &s.Device,
		"hardware_compatible":         &s.HardwareCompatible,
		"output_format":               &s.OutputFormat,
	}
}

// Keys returns the names of all settings accepted by Parse, sorted.
func Keys() []string {
	var s CompilationSettings
	keys := make([]string, 0, 16)
	for key := range s.fields() {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

func (s *CompilationSettings) format(key string) string {
	switch v := s.fields()[key].(type) {
	case *[]string:
		return strings.Join(*v, ",")
	case *sets.Set[string]:
		return strings.Join(sets.Sorted(*v), ",")
	case *Device:
		return v.String()
	case *string:
		return *v
	case *bool:
		return fmt.Sprintf("%v", *v)
	case *int:
		return fmt.Sprintf("%d", *v)
	case *int64:
		return fmt.Sprintf("%d", *v)
	}
	return ""
}

// Parse updates s from settings, a list separated by ";": e.g.: "min_block_size=3;debug=true".
//
// A "file:<path>" entry reads more settings from the file, one or more per line, where empty lines and
// lines starting with "#" are ignored.
//
// For integer settings "_" is removed, so large numbers can be written as 1_000_000.
// List settings (enabled_precisions, torch_executed_ops) take comma-separated values.
//
// It returns the keys that were set, in order.
func (s *CompilationSettings) Parse(settings string) (keysSet []string, err error) {
	for _, setting := range strings.Split(settings, ";") {
		keysSet, err = s.parseSetting(setting, keysSet)
		if err != nil {
			return
		}
	}
	return
}

func (s *CompilationSettings) parseSetting(setting string, keysSet []string) (newKeysSet []string, err error) {
	newKeysSet = keysSet
	setting = strings.TrimSpace(setting)
	if setting == "" {
		return
	}
	if strings.HasPrefix(setting, "file:") {
		var filePath string
		filePath, err = fsutil.ExpandPath(strings.TrimPrefix(setting, "file:"))
		if err != nil {
			return
		}
		var contents []byte
		contents, err = os.ReadFile(filePath)
		if err != nil {
			err = errors.Wrapf(err, "failed to read settings from file %q", filePath)
			return
		}
		for _, line := range strings.Split(string(contents), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			for _, lineSetting := range strings.Split(line, ";") {
				newKeysSet, err = s.parseSetting(lineSetting, newKeysSet)
				if err != nil {
					return
				}
			}
		}
		return
	}

	key, valueStr, found := strings.Cut(setting, "=")
	if !found {
		err = errors.Errorf("can't parse setting %q: each setting requires the format \"<key>=<value>\"", setting)
		return
	}
	key, valueStr = strings.TrimSpace(key), strings.TrimSpace(valueStr)
	field, known := s.fields()[key]
	if !known {
		err = errors.Errorf("unknown setting %q, valid settings are: %s", key, strings.Join(Keys(), ", "))
		return
	}

	switch v := field.(type) {
	case *int:
		err = json.Unmarshal([]byte(strings.ReplaceAll(valueStr, "_", "")), v)
	case *int64:
		err = json.Unmarshal([]byte(strings.ReplaceAll(valueStr, "_", "")), v)
	case *bool:
		err = json.Unmarshal([]byte(valueStr), v)
	case *string:
		*v = valueStr
	case *[]string:
		*v = splitList(valueStr)
	case *sets.Set[string]:
		*v = sets.MakeWith(splitList(valueStr)...)
	case *Device:
		*v, err = ParseDevice(valueStr)
	default:
		err = errors.Errorf("don't know how to parse type %T for setting %q", field, key)
	}
	if err != nil {
		err = errors.Wrapf(err, "failed to parse value %q for setting %q", valueStr, key)
		return
	}
	newKeysSet = append(newKeysSet, key)
	return
}

func splitList(valueStr string) []string {
	var values []string
	for _, value := range strings.Split(valueStr, ",") {
		if value = strings.TrimSpace(value); value != "" {
			values = append(values, value)
		}
	}
	return values
}

// Parse returns the Default settings updated with settings. See CompilationSettings.Parse.
func Parse(settings string) (*CompilationSettings, error) {
	s := Default()
	if _, err := s.Parse(settings); err != nil {
		return nil, err
	}
	return s, nil
}
