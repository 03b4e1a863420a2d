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

// Package cli contains the privesc command-line subcommands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	auditDir string
	verbose  bool
}

// Execute runs the privesc CLI command tree.
func Execute() error {
	cmd := NewRootCmd(context.Background(), os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		var ec interface{ ExitCode() int }
		if !errors.As(err, &ec) {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
		return err
	}
	return nil
}

// ExitCode returns the process exit code implied by err.
// Non-nil errors default to exit code 1 unless they expose ExitCode().
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var ec interface{ ExitCode() int }
	if errors.As(err, &ec) {
		code := ec.ExitCode()
		if code > 0 {
			return code
		}
	}

	return 1
}

func defaultAuditDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.privesc/audit"
	}
	return "./audit"
}

// NewRootCmd builds the privesc root command.
func NewRootCmd(ctx context.Context, outWriter, errWriter io.Writer) *cobra.Command {
	opts := &rootOptions{}
	if ctx == nil {
		ctx = context.Background()
	}

	cmd := &cobra.Command{
		Use:           "privesc",
		Short:         "Detect privilege escalation between two secret-access policies",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.SetContext(ctx)
	cmd.SetOut(outWriter)
	cmd.SetErr(errWriter)

	cmd.PersistentFlags().StringVar(&opts.auditDir, "audit-dir", defaultAuditDir(), "Directory for the tamper-evident check audit trail")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")

	const (
		groupCore    = "core"
		groupRuntime = "runtime"
	)
	cmd.AddGroup(
		&cobra.Group{ID: groupCore, Title: "Core"},
		&cobra.Group{ID: groupRuntime, Title: "Runtime"},
	)

	versionCmd := newVersionCmd()
	checkCmd := newCheckCmd(opts)
	watchCmd := newWatchCmd(opts)
	serveCmd := newServeCmd(opts, nil)
	reportCmd := newReportCmd(opts)

	checkCmd.GroupID = groupCore
	reportCmd.GroupID = groupCore

	watchCmd.GroupID = groupRuntime
	serveCmd.GroupID = groupRuntime

	cmd.AddCommand(versionCmd)
	cmd.AddCommand(checkCmd)
	cmd.AddCommand(watchCmd)
	cmd.AddCommand(serveCmd)
	cmd.AddCommand(reportCmd)

	return cmd
}
