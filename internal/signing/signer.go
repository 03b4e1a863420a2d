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

// Package signing HMAC-signs check reports so a deploy gate can verify a
// report wasn't produced or altered by anything but a trusted run.
package signing

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
)

// Signer creates and validates HMAC signatures over report payloads.
type Signer struct {
	key []byte
}

// NewSigner returns a signer for the provided HMAC key.
func NewSigner(key []byte) *Signer {
	keyCopy := make([]byte, len(key))
	copy(keyCopy, key)
	return &Signer{key: keyCopy}
}

// Sign returns a base64url-encoded HMAC-SHA256 signature over data, the
// canonical JSON bytes of a check report.
func (s *Signer) Sign(data []byte) string {
	mac := hmac.New(sha256.New, s.key)
	_, _ = mac.Write(data)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sig is the correct signature for data.
func (s *Signer) Verify(data []byte, sig string) bool {
	expected := s.Sign(data)
	return subtle.ConstantTimeCompare([]byte(sig), []byte(expected)) == 1
}

// GenerateKey creates a 32-byte random signing key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("signing: generate key: %w", err)
	}
	return key, nil
}

// LoadOrCreateKey loads a key from path or creates one when missing.
func LoadOrCreateKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err == nil {
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("signing: read key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("signing: create key dir: %w", err)
	}

	key, err = GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, fmt.Errorf("signing: write key: %w", err)
	}
	return key, nil
}
