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

package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/peg/privesc/internal/audit"
	"github.com/peg/privesc/internal/notify"
	"github.com/peg/privesc/pkg/sdk"
)

// buildChecker assembles a sdk.Checker wired to a JSONL audit sink and,
// if webhookURL is non-empty, a webhook notifier — the wiring every
// subcommand that runs checks (check, watch, serve) shares.
func buildChecker(auditDir, webhookURL string, logger *slog.Logger) (*sdk.Checker, *audit.JSONLSink, error) {
	sink, err := audit.NewJSONLSink(auditDir, audit.WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("cli: create audit sink: %w", err)
	}

	checkerOpts := []sdk.Option{
		sdk.WithLogger(logger),
		sdk.WithAuditSink(sink),
	}
	if webhookURL != "" {
		checkerOpts = append(checkerOpts, sdk.WithNotifier(notify.NewWebhookNotifier(notify.NewNotifier(webhookURL, "auto"))))
	}

	return sdk.NewChecker(checkerOpts...), sink, nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
