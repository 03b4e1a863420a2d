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
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/peg/privesc/internal/report"
)

type reportOptions struct {
	output string
	last   string
}

// newReportCmd creates the `privesc report` command.
func newReportCmd(opts *rootOptions) *cobra.Command {
	reportOpts := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate an HTML check report from the audit trail",
		Long: `Generate a self-contained HTML report from JSONL check audit files.

The report includes event summaries, a timeline, the top escalating paths,
and a sortable check log. The HTML is completely self-contained with
inline CSS and JavaScript.

Examples:
  privesc report                                 # Last 24 hours
  privesc report --last 7d                       # Last 7 days
  privesc report --output weekly.html --last 7d  # Custom output`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport(cmd, opts.auditDir, reportOpts)
		},
	}

	cmd.Flags().StringVar(&reportOpts.output, "output", "report.html", "Output HTML file path")
	cmd.Flags().StringVar(&reportOpts.last, "last", "24h", "Time window (e.g., 24h, 7d, 30d)")

	return cmd
}

func runReport(cmd *cobra.Command, auditDir string, opts *reportOptions) error {
	duration, err := parseReportDuration(opts.last)
	if err != nil {
		return fmt.Errorf("report: invalid --last %q: %w", opts.last, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Reading check events from %s...\n", auditDir)
	events, err := report.ReadEventsFromDir(auditDir)
	if err != nil {
		return fmt.Errorf("report: read check events: %w", err)
	}
	if len(events) == 0 {
		return fmt.Errorf("report: no check events found in %s", auditDir)
	}
	fmt.Fprintf(out, "Found %d total events\n", len(events))

	filtered := report.FilterEventsByTime(events, duration)
	fmt.Fprintf(out, "Filtered to %d events within %s\n", len(filtered), opts.last)
	if len(filtered) == 0 {
		return fmt.Errorf("report: no events found within the last %s", opts.last)
	}

	endTime := time.Now()
	startTime := endTime.Add(-duration)

	outputFile, err := os.Create(opts.output)
	if err != nil {
		return fmt.Errorf("report: create output file: %w", err)
	}
	defer outputFile.Close()

	fmt.Fprintln(out, "Generating HTML report...")
	if err := report.GenerateHTMLReport(filtered, startTime, endTime, outputFile); err != nil {
		return fmt.Errorf("report: generate HTML report: %w", err)
	}

	absPath, _ := filepath.Abs(opts.output)
	fmt.Fprintf(out, "report generated: %s\n", absPath)
	return nil
}

// parseReportDuration parses durations with support for a "d" (days) suffix
// on top of what time.ParseDuration already accepts.
func parseReportDuration(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		daysStr := strings.TrimSuffix(s, "d")
		duration, err := time.ParseDuration(daysStr + "h")
		if err != nil {
			return 0, err
		}
		return duration * 24, nil
	}
	return time.ParseDuration(s)
}
