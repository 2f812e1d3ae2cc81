// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package configutil loads YAML configuration files the way every cmd
// package in this repo does: a leaf file may declare "extends: <path>" to
// inherit from a base file (resolved relative to the declaring file's own
// directory), and the merged result is validated exactly once.
package configutil

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/validator.v2"
	"gopkg.in/yaml.v2"
)

// ValidationError wraps a struct validation failure, letting callers
// inspect which fields failed and how.
type ValidationError struct {
	errs validator.ErrorMap
}

// Error implements error.
func (v ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %v", map[string]validator.ErrorArray(v.errs))
}

// ErrForField returns the validation errors recorded for field, or nil if
// field passed validation.
func (v ValidationError) ErrForField(field string) validator.ErrorArray {
	return v.errs[field]
}

// Load reads filename, follows its "extends" chain back to its root base
// file, merges every file in the chain (base first, so more specific files
// override it) into config, and validates the merged result.
func Load(filename string, config interface{}) error {
	filenames, err := resolveExtends(filename, readExtendsField)
	if err != nil {
		return err
	}
	if err := loadFiles(config, filenames); err != nil {
		return err
	}
	if err := validator.Validate(config); err != nil {
		if errMap, ok := err.(validator.ErrorMap); ok {
			return ValidationError{errs: errMap}
		}
		return err
	}
	return nil
}

// loadFiles merges filenames into config in order, without validating --
// used directly by tests that want to observe intermediate merge state.
func loadFiles(config interface{}, filenames []string) error {
	for _, fn := range filenames {
		data, err := os.ReadFile(fn)
		if err != nil {
			return fmt.Errorf("configutil: reading %s: %w", fn, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("configutil: parsing %s: %w", fn, err)
		}
	}
	return nil
}

// ErrCycleRef is returned when a chain of "extends" references loops back
// on itself.
var ErrCycleRef = fmt.Errorf("cyclic reference in configuration extends detected")

// resolveExtends walks fpath's "extends" chain (as reported by readExtends)
// and returns the files to merge, ordered from the root base file to fpath
// itself.
func resolveExtends(fpath string, readExtends func(string) (string, error)) ([]string, error) {
	var chain []string
	seen := make(map[string]bool)
	cur := fpath
	for {
		if seen[cur] {
			return nil, ErrCycleRef
		}
		seen[cur] = true
		chain = append(chain, cur)

		ext, err := readExtends(cur)
		if err != nil {
			return nil, err
		}
		if ext == "" {
			break
		}
		if !filepath.IsAbs(ext) {
			ext = filepath.Join(filepath.Dir(cur), ext)
		}
		cur = ext
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

func readExtendsField(filename string) (string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	var probe struct {
		Extends string `yaml:"extends"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return "", err
	}
	return probe.Extends, nil
}
