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
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/peg/privesc/internal/policy"
	"github.com/peg/privesc/internal/report"
	"github.com/peg/privesc/internal/signing"
	"github.com/peg/privesc/pkg/sdk"
)

type exitCodeError struct {
	code int
}

func (e exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func (e exitCodeError) ExitCode() int {
	if e.code < 1 {
		return 1
	}
	return e.code
}

// escalationExitCode is returned by `privesc check` when an escalation is
// found, so a CI pipeline's exit-code gate fails the build without
// needing to parse output.
const escalationExitCode = 1

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var currentPath string
	var proposedPath string
	var format string
	var webhookURL string
	var signingKeyPath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether a proposed policy escalates privilege beyond the current one",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("check: invalid --format %q (must be text or json)", format)
			}

			current, err := policy.NewFileStore(currentPath).Load()
			if err != nil {
				return fmt.Errorf("check: load current policy: %w", err)
			}
			proposed, err := policy.NewFileStore(proposedPath).Load()
			if err != nil {
				return fmt.Errorf("check: load proposed policy: %w", err)
			}

			logger := newLogger(opts.verbose)
			checker, sink, err := buildChecker(opts.auditDir, webhookURL, logger)
			if err != nil {
				return err
			}
			defer sink.Close()

			result, checkErr := checker.Check(cmd.Context(), current, proposed)
			if checkErr != nil {
				return fmt.Errorf("check: %w", checkErr)
			}

			if signingKeyPath != "" {
				key, keyErr := signing.LoadOrCreateKey(signingKeyPath)
				if keyErr != nil {
					return fmt.Errorf("check: load signing key: %w", keyErr)
				}
				signed, buildErr := report.BuildSignedReport(signing.NewSigner(key), result, time.Now().UTC())
				if buildErr != nil {
					return fmt.Errorf("check: build signed report: %w", buildErr)
				}
				if err := writeJSONReport(cmd, signed); err != nil {
					return err
				}
			} else if format == "json" {
				if err := writeJSONReport(cmd, result); err != nil {
					return err
				}
			} else {
				printCheckResultText(cmd, result)
			}

			if result.Escalated {
				return exitCodeError{code: escalationExitCode}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&currentPath, "current", "", "Path to the current policy snapshot (required)")
	cmd.Flags().StringVar(&proposedPath, "proposed", "", "Path to the proposed policy snapshot (required)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text | json")
	cmd.Flags().StringVar(&webhookURL, "webhook", "", "Webhook URL to notify on escalation (Slack, Discord, Teams, or generic)")
	cmd.Flags().StringVar(&signingKeyPath, "sign-key", "", "HMAC-sign the result as JSON with the key at this path (auto-generated if missing)")
	_ = cmd.MarkFlagRequired("current")
	_ = cmd.MarkFlagRequired("proposed")

	return cmd
}

func writeJSONReport(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("check: write json output: %w", err)
	}
	return nil
}

func printCheckResultText(cmd *cobra.Command, result sdk.Result) {
	out := cmd.OutOrStdout()
	if !result.Escalated {
		fmt.Fprintln(out, "no escalation: the proposed policy grants nothing the current policy does not")
		return
	}
	fmt.Fprintf(out, "escalation detected: %s gains %q\n", result.Witness.Path, result.Witness.Capability)
}
