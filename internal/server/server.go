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

// Package server exposes the escalation checker over HTTP: a synchronous
// POST /v1/check for one-off policy-pair checks, and a GET /v1/stream
// websocket feed so a non-Go front-end (spec.md §6) can watch checks as
// they happen.
package server

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/peg/privesc/internal/metrics"
	"github.com/peg/privesc/pkg/sdk"
)

// Server serves the privesc check API over HTTP and websocket.
type Server struct {
	checker *sdk.Checker
	token   string
	logger  *slog.Logger
	started time.Time

	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[chan streamEvent]struct{}
}

// New creates a Server that runs checks through checker.
// If token is non-empty, /v1/check and /v1/stream require Bearer auth.
func New(checker *sdk.Checker, token string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		checker:     checker,
		token:       token,
		logger:      logger,
		started:     time.Now(),
		subscribers: make(map[chan streamEvent]struct{}),
	}
}

// Handler returns the HTTP handler for the check API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/check", s.handleCheck)
	mux.HandleFunc("GET /v1/stream", s.handleStream)
	mux.HandleFunc("GET /v1/healthz", s.handleHealthz)
	mux.Handle("GET /metrics", metrics.Handler())
	return http.MaxBytesHandler(mux, 1<<20) // 1MB limit
}

func (s *Server) checkAuth(w http.ResponseWriter, r *http.Request) bool {
	if s.token == "" {
		return true
	}
	auth := r.Header.Get("Authorization")
	expected := "Bearer " + s.token
	if auth == "" || subtle.ConstantTimeCompare([]byte(auth), []byte(expected)) != 1 {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return false
	}
	return true
}

// checkRequest is the POST /v1/check request body.
type checkRequest struct {
	Current  sdk.Policy `json:"current"`
	Proposed sdk.Policy `json:"proposed"`
}

// checkResponse is the POST /v1/check response body.
type checkResponse struct {
	Escalated  bool         `json:"escalated"`
	Witness    *sdk.Witness `json:"witness,omitempty"`
	DurationUS int64        `json:"duration_us"`
	Error      string       `json:"error,omitempty"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if !s.checkAuth(w, r) {
		return
	}

	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("invalid body: %v", err),
		})
		return
	}

	start := time.Now()
	result, err := s.checker.Check(r.Context(), req.Current, req.Proposed)
	duration := time.Since(start)
	metrics.RecordCheck(result.Escalated, err, duration)

	resp := checkResponse{DurationUS: duration.Microseconds()}
	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		status = http.StatusBadRequest
	} else {
		resp.Escalated = result.Escalated
		resp.Witness = result.Witness
	}

	s.broadcast(streamEvent{
		Escalated:  resp.Escalated,
		Witness:    resp.Witness,
		Error:      resp.Error,
		DurationUS: resp.DurationUS,
		Timestamp:  time.Now().UTC(),
	})

	writeJSON(w, status, resp)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).String(),
	})
}

// streamEvent is one check result pushed to /v1/stream subscribers.
type streamEvent struct {
	Escalated  bool         `json:"escalated"`
	Witness    *sdk.Witness `json:"witness,omitempty"`
	Error      string       `json:"error,omitempty"`
	DurationUS int64        `json:"duration_us"`
	Timestamp  time.Time    `json:"timestamp"`
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if !s.checkAuth(w, r) {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("server: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch := make(chan streamEvent, 16)
	s.subscribe(ch)
	defer s.unsubscribe(ch)

	const pongWait = 60 * time.Second
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Drain and discard client reads so pong handling and close detection
	// keep working; this endpoint only pushes, it doesn't accept input.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.unsubscribe(ch)
				return
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) subscribe(ch chan streamEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers[ch] = struct{}{}
	metrics.SetStreamSubscribers(len(s.subscribers))
}

func (s *Server) unsubscribe(ch chan streamEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[ch]; ok {
		delete(s.subscribers, ch)
		close(ch)
		metrics.SetStreamSubscribers(len(s.subscribers))
	}
}

func (s *Server) broadcast(ev streamEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Subscriber too slow — drop the event rather than block the
			// request path.
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
