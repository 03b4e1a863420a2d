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

// Package sdk is the public API for embedding the escalation checker
// into another program: a CI policy gate, the watch/serve commands in
// cmd/privesc, or a third party's own release pipeline.
//
// Basic usage:
//
//	result, err := sdk.Check(ctx, currentPolicy, proposedPolicy)
//	if err != nil {
//	    // InvalidPattern, solver.ErrUnknown, or solver.InternalError
//	}
//	if result.Escalated {
//	    fmt.Printf("escalation: %s can now %s\n", result.Witness.Path, result.Witness.Capability)
//	}
package sdk

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/peg/privesc/internal/policy"
	"github.com/peg/privesc/internal/solver"
)

// Policy is the public alias for the policy map spec.md §3 defines:
// path pattern -> capability list.
type Policy = policy.Policy

// Witness is a concrete (path, capability) pair admitted by the new
// policy but not the current one.
type Witness = solver.Witness

// Result is the outcome of a Check call.
type Result = solver.Result

// Check validates current and proposed, then runs the escalation query
// between them (spec.md §4.4). Validation runs before any solver work
// begins — an InvalidPattern error from either policy is returned
// immediately, per spec.md §7's propagation policy.
func Check(ctx context.Context, current, proposed Policy) (Result, error) {
	if err := current.Validate(); err != nil {
		return Result{}, fmt.Errorf("sdk: current policy: %w", err)
	}
	if err := proposed.Validate(); err != nil {
		return Result{}, fmt.Errorf("sdk: proposed policy: %w", err)
	}
	return solver.Check(ctx, current, proposed)
}

// AuditSink receives a record of every Check call a Checker makes.
// Implemented by audit.JSONLSink.
type AuditSink interface {
	WriteCheck(record AuditRecord) error
}

// AuditRecord is what a Checker hands to its AuditSink after each check.
// It carries the two compared policies themselves (rather than a digest)
// so an AuditSink can choose its own digest or retention scheme without
// pkg/sdk needing to import internal/audit to agree on one.
type AuditRecord struct {
	Current   Policy
	Proposed  Policy
	Escalated bool
	Witness   *Witness
	Err       error
	Duration  time.Duration
	CheckedAt time.Time
}

// Notifier is told about escalations a Checker finds. Implemented by
// notify.WebhookNotifier, which adapts a notify.Notifier.
type Notifier interface {
	NotifyEscalation(witness Witness) error
}

// Checker composes Check with logging, an optional audit sink, and an
// optional notifier — the wiring cmd/privesc's check/watch/serve
// commands all share, grounded on pkg/sdk.SDK's Wrap in the teacher
// (construct once, reuse across many calls, log + audit + notify around
// the pure operation).
type Checker struct {
	logger   *slog.Logger
	sink     AuditSink
	notifier Notifier
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the logger a Checker uses. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) { c.logger = logger }
}

// WithAuditSink sets the sink every Check call's outcome is recorded to.
func WithAuditSink(sink AuditSink) Option {
	return func(c *Checker) { c.sink = sink }
}

// WithNotifier sets the notifier invoked when a Check call finds an
// escalation.
func WithNotifier(notifier Notifier) Option {
	return func(c *Checker) { c.notifier = notifier }
}

// NewChecker creates a Checker with the given options applied.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check runs Check(ctx, current, proposed), then logs the outcome,
// records it to the audit sink (if set), and notifies (if set and an
// escalation was found). The audit record is written even on error, so a
// failed check is never silently indistinguishable from "no escalation"
// in the trail (spec.md §7's "a failed check must never be silently
// reported as safe").
func (c *Checker) Check(ctx context.Context, current, proposed Policy) (Result, error) {
	start := time.Now()
	result, err := Check(ctx, current, proposed)
	duration := time.Since(start)

	record := AuditRecord{
		Current:   current,
		Proposed:  proposed,
		Escalated: result.Escalated,
		Witness:   result.Witness,
		Err:       err,
		Duration:  duration,
		CheckedAt: start.UTC(),
	}

	if c.sink != nil {
		if sinkErr := c.sink.WriteCheck(record); sinkErr != nil {
			c.logger.Error("sdk: failed to write audit record", "error", sinkErr)
		}
	}

	if err != nil {
		c.logger.Error("sdk: check failed", "error", err, "duration", duration)
		return result, err
	}

	c.logger.Info("sdk: check completed",
		"escalated", result.Escalated,
		"duration", duration,
	)

	if result.Escalated && c.notifier != nil {
		if notifyErr := c.notifier.NotifyEscalation(*result.Witness); notifyErr != nil {
			c.logger.Error("sdk: failed to send escalation notification", "error", notifyErr)
		}
	}

	return result, nil
}
