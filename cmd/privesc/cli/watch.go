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

	"github.com/spf13/cobra"

	"github.com/peg/privesc/internal/policy"
	"github.com/peg/privesc/internal/watch"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var dir string
	var baselinePath string
	var webhookURL string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a directory of proposed-policy snapshots and check each against a baseline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			baseline, err := policy.NewFileStore(baselinePath).Load()
			if err != nil {
				return fmt.Errorf("watch: load baseline policy: %w", err)
			}

			logger := newLogger(opts.verbose)
			checker, sink, err := buildChecker(opts.auditDir, webhookURL, logger)
			if err != nil {
				return err
			}
			defer sink.Close()

			logger.Info("watch: starting", "dir", dir, "baseline", baselinePath)

			return watch.Run(cmd.Context(), watch.Config{
				Dir:      dir,
				Baseline: baseline,
				Checker:  checker,
				Logger:   logger,
			})
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Directory of proposed-policy snapshot files to watch (required)")
	cmd.Flags().StringVar(&baselinePath, "baseline", "", "Path to the baseline policy every snapshot is checked against (required)")
	cmd.Flags().StringVar(&webhookURL, "webhook", "", "Webhook URL to notify on escalation")
	_ = cmd.MarkFlagRequired("dir")
	_ = cmd.MarkFlagRequired("baseline")

	return cmd
}
