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

package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DiscordNotifier sends notifications to Discord using webhook embeds.
type DiscordNotifier struct {
	url    string
	client *http.Client
}

// NewDiscordNotifier creates a new Discord notifier.
func NewDiscordNotifier(url string) *DiscordNotifier {
	return &DiscordNotifier{
		url: url,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title     string         `json:"title"`
	Color     int            `json:"color"`
	Fields    []discordField `json:"fields"`
	Timestamp string         `json:"timestamp"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Send sends an escalation notification to Discord using embeds format.
func (n *DiscordNotifier) Send(event NotifyEvent) error {
	embed := discordEmbed{
		Title: "Privilege escalation detected",
		Color: 0xf85149,
		Fields: []discordField{
			{Name: "Path", Value: event.Path, Inline: false},
			{Name: "Capability", Value: event.Capability, Inline: true},
		},
		Timestamp: event.Timestamp,
	}

	payload := discordPayload{Embeds: []discordEmbed{embed}}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshal discord payload: %w", err)
	}

	resp, err := n.client.Post(n.url, "application/json", bytes.NewBuffer(data))
	if err != nil {
		return fmt.Errorf("notify: post discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: discord webhook returned status %d", resp.StatusCode)
	}

	return nil
}
