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
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCommand_StartsAndShutsDownOnContextCancel(t *testing.T) {
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	out := new(bytes.Buffer)
	cmd := NewRootCmd(ctx, out, out)
	cmd.SetArgs([]string{
		"--audit-dir", filepath.Join(dir, "audit"),
		"serve", "--addr", "127.0.0.1:0",
	})

	done := make(chan error, 1)
	go func() { done <- cmd.Execute() }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve command did not shut down after context cancellation")
	}
}

func TestNewServeCmd_RegistersFlags(t *testing.T) {
	cmd := newServeCmd(&rootOptions{}, nil)
	require.NotNil(t, cmd.Flags().Lookup("addr"))
	require.NotNil(t, cmd.Flags().Lookup("token"))
	require.NotNil(t, cmd.Flags().Lookup("webhook"))
}
