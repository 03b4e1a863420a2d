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

// Package notify sends webhook notifications when a Check call finds an
// escalation.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/peg/privesc/pkg/sdk"
)

// NotifyEvent is the data sent to a webhook for one escalation.
type NotifyEvent struct {
	Path       string `json:"path"`
	Capability string `json:"capability"`
	Timestamp  string `json:"timestamp"` // ISO 8601
}

// Notifier sends a single notification.
type Notifier interface {
	Send(event NotifyEvent) error
}

// WebhookNotifier adapts a Notifier to sdk.Notifier, so it can be passed
// directly to sdk.WithNotifier.
type WebhookNotifier struct {
	inner Notifier
}

// NewWebhookNotifier wraps inner as an sdk.Notifier.
func NewWebhookNotifier(inner Notifier) *WebhookNotifier {
	return &WebhookNotifier{inner: inner}
}

// NotifyEscalation implements sdk.Notifier.
func (w *WebhookNotifier) NotifyEscalation(witness sdk.Witness) error {
	return w.inner.Send(NotifyEvent{
		Path:       witness.Path,
		Capability: witness.Capability,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}

// GenericNotifier sends notifications to any webhook URL by POSTing the
// event as JSON.
type GenericNotifier struct {
	url    string
	client *http.Client
}

// NewGenericNotifier creates a new generic webhook notifier.
func NewGenericNotifier(url string) *GenericNotifier {
	return &GenericNotifier{
		url: url,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Send posts the event as JSON to the webhook URL.
func (n *GenericNotifier) Send(event NotifyEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notify: marshal event: %w", err)
	}

	resp, err := n.client.Post(n.url, "application/json", bytes.NewBuffer(data))
	if err != nil {
		return fmt.Errorf("notify: post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}

	return nil
}
