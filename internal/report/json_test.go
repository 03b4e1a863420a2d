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
	"testing"
	"time"

	"github.com/peg/privesc/internal/signing"
	"github.com/peg/privesc/pkg/sdk"
)

func TestBuildAndVerifySignedReport_Roundtrip(t *testing.T) {
	signer := signing.NewSigner([]byte("0123456789abcdef0123456789abcdef"))
	result := sdk.Result{
		Escalated: true,
		Witness:   &sdk.Witness{Path: "secret/app/*", Capability: "read"},
	}

	signed, err := BuildSignedReport(signer, result, time.Now().UTC())
	if err != nil {
		t.Fatalf("BuildSignedReport() error = %v", err)
	}
	if signed.Signature == "" {
		t.Fatal("expected non-empty signature")
	}

	ok, err := VerifySignedReport(signer, signed)
	if err != nil {
		t.Fatalf("VerifySignedReport() error = %v", err)
	}
	if !ok {
		t.Fatal("expected signature to verify")
	}
}

func TestVerifySignedReport_TamperedFieldRejected(t *testing.T) {
	signer := signing.NewSigner([]byte("0123456789abcdef0123456789abcdef"))
	result := sdk.Result{Escalated: true, Witness: &sdk.Witness{Path: "secret/app/*", Capability: "read"}}

	signed, err := BuildSignedReport(signer, result, time.Now().UTC())
	if err != nil {
		t.Fatalf("BuildSignedReport() error = %v", err)
	}

	signed.Escalated = false

	ok, err := VerifySignedReport(signer, signed)
	if err != nil {
		t.Fatalf("VerifySignedReport() error = %v", err)
	}
	if ok {
		t.Fatal("expected tampered report to fail verification")
	}
}

func TestVerifySignedReport_WrongKeyRejected(t *testing.T) {
	signer := signing.NewSigner([]byte("0123456789abcdef0123456789abcdef"))
	other := signing.NewSigner([]byte("fedcba9876543210fedcba9876543210"))
	result := sdk.Result{Escalated: false}

	signed, err := BuildSignedReport(signer, result, time.Now().UTC())
	if err != nil {
		t.Fatalf("BuildSignedReport() error = %v", err)
	}

	ok, err := VerifySignedReport(other, signed)
	if err != nil {
		t.Fatalf("VerifySignedReport() error = %v", err)
	}
	if ok {
		t.Fatal("expected verification with wrong key to fail")
	}
}
