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

package audit

import (
	"bufio"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/peg/privesc/internal/policy"
	"github.com/peg/privesc/internal/solver"
	"github.com/peg/privesc/pkg/sdk"
)

const anchorFilename = "audit-anchor.json"

// readLastLineHash reads the last non-empty line of a JSONL file and
// extracts its "hash" field. Returns the hash and true if successful.
func readLastLineHash(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	var lastLine string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lastLine = line
		}
	}
	if lastLine == "" {
		return "", false
	}
	var partial struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal([]byte(lastLine), &partial); err != nil {
		return "", false
	}
	return partial.Hash, partial.Hash != ""
}

// countLinesInDir counts non-empty lines across all .jsonl files in dir,
// streaming each file rather than loading it whole.
func countLinesInDir(dir string) int64 {
	var count int64
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		f, err := os.Open(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if len(scanner.Bytes()) > 0 {
				count++
			}
		}
		_ = f.Close()
	}
	return count
}

// JSONLSink is an append-only, hash-chained JSONL audit sink: one file
// per UTC day, no size-based rotation. A Check call is a CI-rate event —
// one per policy-change review, not one per request — so the daily file
// a long-running service accumulates stays small without needing the
// size-rotation machinery a per-request audit trail would.
type JSONLSink struct {
	mu sync.Mutex

	dir            string
	file           *os.File
	currentFile    string
	lastHash       string
	eventCount     int64
	fsync          bool
	anchorInterval int
	closed         bool
	logger         *slog.Logger
}

// NewJSONLSink creates a JSONL-backed audit sink in dir.
func NewJSONLSink(dir string, opts ...SinkOption) (*JSONLSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("audit: sink dir is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("audit: create sink dir: %w", err)
	}

	cfg := defaultSinkConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	sink := &JSONLSink{
		dir:            dir,
		fsync:          cfg.fsync,
		anchorInterval: cfg.anchorInterval,
		logger:         logger,
	}

	anchorPath := filepath.Join(dir, anchorFilename)
	anchorTrusted := false
	if data, err := os.ReadFile(anchorPath); err == nil {
		var anchor ChainAnchor
		if err := json.Unmarshal(data, &anchor); err == nil {
			if anchor.File != "" {
				if lastHash, ok := readLastLineHash(filepath.Join(dir, anchor.File)); ok {
					if lastHash == anchor.Hash {
						anchorTrusted = true
					} else {
						logger.Warn("audit: anchor hash mismatch, possible tampering — falling back to line count",
							"anchor_hash", anchor.Hash,
							"file_hash", lastHash,
							"file", anchor.File,
						)
					}
				}
			}
			if anchorTrusted {
				sink.lastHash = anchor.Hash
				sink.eventCount = anchor.EventCount
				logger.Info("audit: recovered state from anchor",
					"event_count", anchor.EventCount,
					"hash", anchor.Hash,
				)
			}
		}
	}
	if !anchorTrusted {
		sink.eventCount = countLinesInDir(dir)
		if sink.eventCount > 0 {
			logger.Info("audit: recovered event count from log files", "event_count", sink.eventCount)
		}
	}

	if err := sink.openTodaysFileLocked(); err != nil {
		return nil, err
	}
	return sink, nil
}

// NewEventID returns a new ULID event identifier.
func NewEventID() string {
	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), rand.Reader)
	if err == nil {
		return id.String()
	}
	slog.Error("audit: generate event id", "error", err)
	return ulid.Make().String()
}

// NewEvent builds an Event recording one Check call's outcome. result is
// the zero Result when checkErr is non-nil.
func NewEvent(current, proposed policy.Policy, result solver.Result, checkErr error, duration time.Duration) Event {
	event := Event{
		ID:            NewEventID(),
		Timestamp:     time.Now().UTC(),
		CurrentDigest: PolicyDigest(current),
		NewDigest:     PolicyDigest(proposed),
		Escalated:     result.Escalated,
		DurationUS:    duration.Microseconds(),
	}
	if checkErr != nil {
		event.Err = checkErr.Error()
	}
	if result.Witness != nil {
		event.Witness = &Witness{Path: result.Witness.Path, Capability: result.Witness.Capability}
	}
	return event
}

// Write appends a single event to the JSONL audit trail, chaining it to
// the previous event's hash.
func (s *JSONLSink) Write(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("audit: write on closed sink")
	}
	if event.ID == "" {
		event.ID = NewEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	event.PrevHash = s.lastHash
	if err := event.ComputeHash(); err != nil {
		return fmt.Errorf("audit: compute hash: %w", err)
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit: marshal event: %w", err)
	}
	line = append(line, '\n')

	if s.dayChangedLocked() {
		if err := s.openTodaysFileLocked(); err != nil {
			return err
		}
	}
	if _, err := s.file.Write(line); err != nil {
		return fmt.Errorf("audit: write event: %w", err)
	}

	if s.fsync {
		if err := s.file.Sync(); err != nil {
			return fmt.Errorf("audit: fsync event: %w", err)
		}
	}

	s.lastHash = event.Hash
	s.eventCount++
	if s.shouldAnchorLocked() {
		if err := s.writeAnchorLocked(event); err != nil {
			return err
		}
	}

	s.logger.Debug("audit: wrote event",
		"event_id", event.ID,
		"event_count", s.eventCount,
		"file", s.currentFile,
	)

	return nil
}

// WriteCheck implements sdk.AuditSink, so a JSONLSink can be passed
// directly to sdk.WithAuditSink without an adapter type at the call
// site.
func (s *JSONLSink) WriteCheck(record sdk.AuditRecord) error {
	event := Event{
		Timestamp:     record.CheckedAt,
		CurrentDigest: PolicyDigest(record.Current),
		NewDigest:     PolicyDigest(record.Proposed),
		Escalated:     record.Escalated,
		DurationUS:    record.Duration.Microseconds(),
	}
	if record.Err != nil {
		event.Err = record.Err.Error()
	}
	if record.Witness != nil {
		event.Witness = &Witness{Path: record.Witness.Path, Capability: record.Witness.Capability}
	}
	return s.Write(event)
}

// Flush flushes pending data to disk.
func (s *JSONLSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.file == nil {
		return nil
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("audit: flush sink: %w", err)
	}
	return nil
}

// Close flushes and closes the sink.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.file == nil {
		return nil
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("audit: close sync: %w", err)
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("audit: close sink file: %w", err)
	}
	s.file = nil
	return nil
}

func (s *JSONLSink) filePath() string {
	return filepath.Join(s.dir, s.currentFile)
}

// openTodaysFileLocked opens (creating if needed) today's daily JSONL
// file, closing whatever file was previously open.
func (s *JSONLSink) openTodaysFileLocked() error {
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			return fmt.Errorf("audit: close previous jsonl file: %w", err)
		}
		s.file = nil
	}

	name := time.Now().UTC().Format("2006-01-02") + ".jsonl"
	path := filepath.Join(s.dir, name)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("audit: open jsonl file: %w", err)
	}

	s.file = file
	s.currentFile = name
	return nil
}

// dayChangedLocked reports whether the current UTC date differs from the
// date encoded in the open file's name.
func (s *JSONLSink) dayChangedLocked() bool {
	today := time.Now().UTC().Format("2006-01-02")
	return !strings.HasPrefix(s.currentFile, today)
}
