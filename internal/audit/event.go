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

// Package audit provides a tamper-evident trail of escalation checks.
//
// Every Check call a Checker makes is recorded as an Event with a
// cryptographic hash chain: each event's hash folds in the previous
// event's hash, so an append-only JSONL file of Events makes tampering
// with any past entry detectable from the chain alone.
package audit

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/peg/privesc/internal/policy"
)

// Event is one audited Check call.
type Event struct {
	// ID is a ULID — time-ordered, lexicographically sortable, globally
	// unique.
	ID string `json:"id"`

	// Timestamp is when the check was run (UTC).
	Timestamp time.Time `json:"timestamp"`

	// CurrentDigest and NewDigest are content digests of the two policies
	// compared (see PolicyDigest), not the policies themselves — a check
	// log should not need to carry every secret path a policy ever
	// mentioned just to prove which policies were compared.
	CurrentDigest string `json:"current_digest"`
	NewDigest     string `json:"new_digest"`

	// Escalated is the check's verdict.
	Escalated bool `json:"escalated"`

	// Witness is the admitted (path, capability) pair, present iff
	// Escalated.
	Witness *Witness `json:"witness,omitempty"`

	// Err is the check error's message, if the check itself failed
	// (invalid pattern, solver unknown, internal error). A failed check
	// is recorded like any other event — never silently dropped from the
	// trail — so Escalated is always false and Witness always nil here.
	Err string `json:"error,omitempty"`

	// DurationUS is how long the check took, in microseconds.
	DurationUS int64 `json:"duration_us"`

	// PrevHash is the hash of the preceding event in the chain. Empty for
	// the first event.
	PrevHash string `json:"prev_hash"`

	// Hash is the SHA-256 hash of this event, excluding the Hash field
	// itself. Computed by ComputeHash after every other field is set.
	Hash string `json:"hash"`
}

// Witness mirrors sdk.Witness so this package does not need to import
// pkg/sdk.
type Witness struct {
	Path       string `json:"path"`
	Capability string `json:"capability"`
}

// ComputeHash calculates the SHA-256 hash for e.
//
// The hash covers every field except Hash itself: Hash is cleared, e is
// marshaled to JSON, PrevHash is prepended to the payload, and the
// result is hashed:
//
//	hash(event_N) = SHA-256(prev_hash + json(event_N without hash))
func (e *Event) ComputeHash() error {
	e.Hash = ""

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: marshal event for hashing: %w", err)
	}

	payload := append([]byte(e.PrevHash), data...)
	h := sha256.Sum256(payload)
	e.Hash = "sha256:" + hex.EncodeToString(h[:])
	return nil
}

// VerifyHash reports whether e.Hash is the value ComputeHash would
// produce for e's current fields.
func (e *Event) VerifyHash() (bool, error) {
	expected := e.Hash
	if err := e.ComputeHash(); err != nil {
		return false, err
	}
	computed := e.Hash
	e.Hash = expected
	return subtle.ConstantTimeCompare([]byte(computed), []byte(expected)) == 1, nil
}

// ChainAnchor records the hash chain state at a checkpoint, written to a
// separate file every N events as a tamper-detection anchor independent
// of the JSONL file's own contents.
type ChainAnchor struct {
	EventID    string    `json:"event_id"`
	Hash       string    `json:"hash"`
	EventCount int64     `json:"event_count"`
	Timestamp  time.Time `json:"timestamp"`
	File       string    `json:"file"`
}

// PolicyDigest computes a content digest of p that is stable under map
// iteration order: rules are sorted by pattern (and each rule's
// capabilities sorted) before marshaling, so two policy.Policy values
// with identical (pattern, capabilities) pairs always digest to the same
// string regardless of how they were built.
func PolicyDigest(p policy.Policy) string {
	rules := p.Rules()
	sort.Slice(rules, func(i, j int) bool { return rules[i].Pattern < rules[j].Pattern })
	for i := range rules {
		sort.Strings(rules[i].Capabilities)
	}

	data, err := json.Marshal(rules)
	if err != nil {
		panic(fmt.Sprintf("audit: marshal policy digest input: %v", err))
	}
	h := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(h[:])
}
