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
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/peg/privesc/internal/server"
)

type serveDeps struct {
	notifyContext func(context.Context, ...os.Signal) (context.Context, context.CancelFunc)
}

func defaultServeDeps() serveDeps {
	return serveDeps{notifyContext: signal.NotifyContext}
}

func newServeCmd(opts *rootOptions, deps *serveDeps) *cobra.Command {
	var addr string
	var token string
	var webhookURL string

	resolvedDeps := defaultServeDeps()
	if deps != nil && deps.notifyContext != nil {
		resolvedDeps.notifyContext = deps.notifyContext
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the escalation checker as an HTTP/websocket service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(opts.verbose)

			checker, sink, err := buildChecker(opts.auditDir, webhookURL, logger)
			if err != nil {
				return err
			}
			defer sink.Close()

			srv := server.New(checker, token, logger)
			httpServer := &http.Server{
				Addr:    addr,
				Handler: srv.Handler(),
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- httpServer.ListenAndServe()
			}()

			tokenDisplay := token
			if len(tokenDisplay) > 8 {
				tokenDisplay = tokenDisplay[:8] + "..."
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "serve: listening on %s (token=%s)\n", addr, tokenDisplay)

			sigCtx, stop := resolvedDeps.notifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			select {
			case <-sigCtx.Done():
				logger.Info("serve: shutting down...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("serve: shutdown: %w", err)
				}
				return nil
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serve: http server failed: %w", err)
				}
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8443", "Address to listen on")
	cmd.Flags().StringVar(&token, "token", os.Getenv("PRIVESC_TOKEN"), "Bearer token required on /v1/check and /v1/stream (default: $PRIVESC_TOKEN, empty disables auth)")
	cmd.Flags().StringVar(&webhookURL, "webhook", "", "Webhook URL to notify on escalation")

	return cmd
}
