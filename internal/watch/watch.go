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

// Package watch watches a directory of proposed-policy snapshot files
// (spec.md §6's policy-PR workflow) and checks each one against a fixed
// baseline the moment it's written, so a reviewer sees the escalation
// verdict before the change ever reaches a CI gate.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/peg/privesc/internal/policy"
	"github.com/peg/privesc/pkg/sdk"
)

// defaultDebounce coalesces the Create+Write pair most editors and `git
// checkout` produce for a single logical save into one check.
const defaultDebounce = 200 * time.Millisecond

// Config holds settings for watch mode.
type Config struct {
	// Dir is the directory of proposed-policy snapshot files to watch.
	Dir string

	// Baseline is the policy every snapshot in Dir is checked against.
	Baseline policy.Policy

	// Checker runs and records each check. Defaults to sdk.NewChecker().
	Checker *sdk.Checker

	// Logger receives per-file check outcomes. Defaults to slog.Default().
	Logger *slog.Logger

	// Debounce coalesces rapid successive writes to the same file.
	// Defaults to 200ms.
	Debounce time.Duration
}

// Run watches cfg.Dir until ctx is canceled, checking cfg.Baseline against
// every policy snapshot file created or modified inside it. It returns nil
// on a clean shutdown via context cancellation.
func Run(ctx context.Context, cfg Config) error {
	if strings.TrimSpace(cfg.Dir) == "" {
		return errors.New("watch: directory is empty")
	}
	if cfg.Checker == nil {
		cfg.Checker = sdk.NewChecker()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(cfg.Dir); err != nil {
		return fmt.Errorf("watch: watch directory %s: %w", cfg.Dir, err)
	}

	logger.Info("watch: watching directory for policy snapshots", "dir", cfg.Dir)

	pending := make(map[string]*time.Timer)
	fire := make(chan string, 16)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isPolicySnapshot(evt.Name) || !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Write) {
				continue
			}

			path := evt.Name
			if t, exists := pending[path]; exists {
				t.Stop()
			}
			pending[path] = time.AfterFunc(debounce, func() {
				fire <- path
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch: watcher error", "error", err)

		case path := <-fire:
			delete(pending, path)
			checkSnapshot(ctx, cfg, logger, path)
		}
	}
}

// isPolicySnapshot reports whether path looks like a policy.FileStore
// document rather than an editor swap file or unrelated artifact.
func isPolicySnapshot(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func checkSnapshot(ctx context.Context, cfg Config, logger *slog.Logger, path string) {
	proposed, err := policy.NewFileStore(path).Load()
	if err != nil {
		logger.Error("watch: failed to load policy snapshot", "path", path, "error", err)
		return
	}

	result, err := cfg.Checker.Check(ctx, cfg.Baseline, proposed)
	if err != nil {
		logger.Error("watch: check failed", "path", path, "error", err)
		return
	}

	if result.Escalated {
		logger.Warn("watch: escalation detected",
			"path", path,
			"witness_path", result.Witness.Path,
			"witness_capability", result.Witness.Capability,
		)
		return
	}

	logger.Info("watch: no escalation", "path", path)
}
