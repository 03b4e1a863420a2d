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
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peg/privesc/pkg/sdk"
)

func TestJSONLSinkWrite_ValidJSONLine(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewJSONLSink(dir, WithFsync(false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })

	event := sampleEvent(true)
	require.NoError(t, sink.Write(event))

	lines := readJSONLLines(t, sink.filePath())
	require.Len(t, lines, 1)

	var parsed Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &parsed))
	assert.NotEmpty(t, parsed.Hash)
	assert.True(t, parsed.Escalated)
}

func TestJSONLSinkWrite_HashChainValid(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewJSONLSink(dir, WithFsync(false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })

	for i := 0; i < 3; i++ {
		require.NoError(t, sink.Write(sampleEvent(i%2 == 0)))
	}

	lines := readJSONLLines(t, sink.filePath())
	require.Len(t, lines, 3)

	prev := ""
	for i, line := range lines {
		var event Event
		require.NoError(t, json.Unmarshal([]byte(line), &event))
		assert.Equal(t, prev, event.PrevHash, "line %d prev_hash mismatch", i)
		ok, err := event.VerifyHash()
		require.NoError(t, err)
		assert.True(t, ok, "line %d hash should verify", i)
		prev = event.Hash
	}
}

func TestJSONLSinkWrite_TamperDetected(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewJSONLSink(dir, WithFsync(false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })

	require.NoError(t, sink.Write(sampleEvent(true)))
	require.NoError(t, sink.Write(sampleEvent(false)))

	lines := readJSONLLines(t, sink.filePath())
	require.Len(t, lines, 2)

	var event Event
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &event))
	event.Escalated = !event.Escalated

	ok, err := event.VerifyHash()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJSONLSinkWrite_AnchorEveryN(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewJSONLSink(dir, WithFsync(false), WithAnchorInterval(2))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })

	require.NoError(t, sink.Write(sampleEvent(false)))
	require.NoError(t, sink.Write(sampleEvent(false)))
	require.NoError(t, sink.Write(sampleEvent(false)))

	anchorPath := filepath.Join(dir, anchorFilename)
	data, err := os.ReadFile(anchorPath)
	require.NoError(t, err)

	var anchor ChainAnchor
	require.NoError(t, json.Unmarshal(data, &anchor))
	assert.EqualValues(t, 2, anchor.EventCount)
	assert.Equal(t, sink.currentFile, anchor.File)
	assert.NotEmpty(t, anchor.Hash)
}

func TestJSONLSinkWrite_ConcurrentNoCorruption(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewJSONLSink(dir, WithFsync(false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })

	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				require.NoError(t, sink.Write(sampleEvent(worker%2 == 0)))
			}
		}(i)
	}
	wg.Wait()

	lines := readJSONLLines(t, sink.filePath())
	require.Len(t, lines, workers*perWorker)

	for _, line := range lines {
		var event Event
		require.NoError(t, json.Unmarshal([]byte(line), &event))
		ok, err := event.VerifyHash()
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestJSONLSinkWrite_ClosedSinkReturnsError(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewJSONLSink(dir,
		WithFsync(false),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	err = sink.Write(sampleEvent(true))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestJSONLSinkWriteCheck_RecordsErrorWithoutEscalation(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewJSONLSink(dir, WithFsync(false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })

	record := sdk.AuditRecord{
		Current:   sdk.Policy{"secret/app one": {"read"}},
		Proposed:  sdk.Policy{"secret/app": {"read"}},
		Escalated: false,
		Err:       assertErr{},
		Duration:  2 * time.Millisecond,
		CheckedAt: time.Now().UTC(),
	}
	require.NoError(t, sink.WriteCheck(record))

	lines := readJSONLLines(t, sink.filePath())
	require.Len(t, lines, 1)

	var event Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &event))
	assert.False(t, event.Escalated)
	assert.Equal(t, "boom", event.Err)
	assert.NotEmpty(t, event.CurrentDigest)
	assert.NotEmpty(t, event.NewDigest)
}

func TestNewEventID_ValidULID(t *testing.T) {
	for i := 0; i < 50; i++ {
		id := NewEventID()
		parsed, err := ulid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, id, parsed.String())
	}
}

func BenchmarkWrite(b *testing.B) {
	dir := b.TempDir()
	sink, err := NewJSONLSink(dir,
		WithFsync(false),
		WithAnchorInterval(1000000),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(b, err)
	b.Cleanup(func() { _ = sink.Close() })

	event := sampleEvent(false)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e := event
		e.ID = ""
		require.NoError(b, sink.Write(e))
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func sampleEvent(escalated bool) Event {
	e := Event{
		ID:            "",
		Timestamp:     time.Now().UTC(),
		CurrentDigest: "sha256:current",
		NewDigest:     "sha256:new",
		Escalated:     escalated,
		DurationUS:    42,
	}
	if escalated {
		e.Witness = &Witness{Path: "secret/app/stage", Capability: "read"}
	}
	return e
}

func readJSONLLines(t *testing.T, path string) []string {
	t.Helper()

	file, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	var lines []string
	s := bufio.NewScanner(file)
	for s.Scan() {
		line := s.Text()
		if line != "" {
			lines = append(lines, line)
		}
	}
	require.NoError(t, s.Err())
	return lines
}
