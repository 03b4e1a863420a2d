// Copyright 2026 The Privesc Authors
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

package policy

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// document is the on-disk shape a policy snapshot YAML file takes:
//
//	rules:
//	  secret/app/prod:
//	    - read
//	  secret/app/*:
//	    - read
//	    - write
//
// This is the reference adapter for spec.md §6's policy-source-parsing
// collaborator — a real deployment's configuration language is out of
// core scope, but something has to turn a file on disk into a Policy for
// the CLI and watch mode to operate on.
type document struct {
	Rules map[string][]string `yaml:"rules"`
}

// FileStore loads a Policy snapshot from a YAML file on disk.
type FileStore struct {
	path string
}

// NewFileStore creates a policy store that reads from the given file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file path this store reads from.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads and parses the policy file, then validates it. If the
// source format groups multiple capability lists under one pattern (not
// possible with this document shape, but a contract spec.md §6 calls
// out for other formats), the collaborator is responsible for merging
// them set-wise before the Policy reaches this package.
func (s *FileStore) Load() (Policy, error) {
	absPath, err := filepath.Abs(s.path)
	if err != nil {
		return nil, fmt.Errorf("policy: resolve path %q: %w", s.path, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("policy: read policy file: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("policy: parse policy file %q: %w", s.path, err)
	}

	p := Policy(doc.Rules)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Save writes p to path as YAML, in the document shape Load reads.
func Save(path string, p Policy) error {
	doc := document{Rules: p}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("policy: marshal policy: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("policy: write policy file %q: %w", path, err)
	}
	return nil
}
