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

package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/peg/privesc/internal/signing"
	"github.com/peg/privesc/pkg/sdk"
)

// SignedReport is the canonical, signable JSON form of one Check call's
// result — what a deploy gate consumes to decide whether to block a
// policy-PR merge.
type SignedReport struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Escalated   bool         `json:"escalated"`
	Witness     *sdk.Witness `json:"witness,omitempty"`
	Signature   string       `json:"signature"`
}

// BuildSignedReport renders result as canonical JSON, signs it with
// signer, and returns the signed report. The signature covers every
// field except itself — the same "marshal without, then sign" shape
// internal/audit.Event uses for its hash chain.
func BuildSignedReport(signer *signing.Signer, result sdk.Result, generatedAt time.Time) (SignedReport, error) {
	unsigned := SignedReport{
		GeneratedAt: generatedAt,
		Escalated:   result.Escalated,
		Witness:     result.Witness,
	}

	data, err := json.Marshal(unsigned)
	if err != nil {
		return SignedReport{}, fmt.Errorf("report: marshal for signing: %w", err)
	}

	unsigned.Signature = signer.Sign(data)
	return unsigned, nil
}

// VerifySignedReport reports whether report.Signature matches the
// signer's HMAC over the report's other fields.
func VerifySignedReport(signer *signing.Signer, report SignedReport) (bool, error) {
	unsigned := report
	unsigned.Signature = ""

	data, err := json.Marshal(unsigned)
	if err != nil {
		return false, fmt.Errorf("report: marshal for verification: %w", err)
	}

	return signer.Verify(data, report.Signature), nil
}
