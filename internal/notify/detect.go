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

import "strings"

// platformHosts maps a substring found in a webhook URL to the escalation
// notifier that understands it. Checked in order; the first match wins.
var platformHosts = []struct {
	platform string
	hosts    []string
}{
	{"slack", []string{"hooks.slack.com"}},
	{"discord", []string{"discord.com/api/webhooks"}},
	{"teams", []string{"webhook.office.com", "outlook.office.com"}},
}

// DetectPlatform detects the webhook platform an escalation notification
// should target, based on the destination URL. Returns "slack", "discord",
// "teams", or "webhook" for anything else (POSTed as a generic JSON body).
func DetectPlatform(url string) string {
	for _, p := range platformHosts {
		for _, host := range p.hosts {
			if strings.Contains(url, host) {
				return p.platform
			}
		}
	}
	return "webhook"
}

// NewNotifier creates a notifier for the specified platform.
// If platform is "auto" or empty, it will auto-detect based on the URL.
func NewNotifier(url, platform string) Notifier {
	if platform == "auto" || platform == "" {
		platform = DetectPlatform(url)
	}

	switch platform {
	case "slack":
		return NewSlackNotifier(url)
	case "discord":
		return NewDiscordNotifier(url)
	case "teams":
		return NewTeamsNotifier(url)
	default:
		return NewGenericNotifier(url)
	}
}