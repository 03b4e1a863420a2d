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

package pattern

import (
	"errors"
	"testing"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    Fragment
	}{
		{
			name:    "no wildcards is an exact literal",
			pattern: "secret/app/prod",
			want:    Fragment{Kind: Literal, Text: "secret/app/prod"},
		},
		{
			name:    "trailing star",
			pattern: "secret/app/*",
			want: Fragment{Kind: Concat, Parts: []Fragment{
				{Kind: Literal, Text: "secret/app/"},
				{Kind: PathStar},
			}},
		},
		{
			name:    "segment plus",
			pattern: "secret/app/+",
			want: Fragment{Kind: Concat, Parts: []Fragment{
				{Kind: Literal, Text: "secret/app/"},
				{Kind: SegmentPlus},
			}},
		},
		{
			name:    "plus and trailing star",
			pattern: "secret/+/data/*",
			want: Fragment{Kind: Concat, Parts: []Fragment{
				{Kind: Literal, Text: "secret/"},
				{Kind: SegmentPlus},
				{Kind: Literal, Text: "/data/"},
				{Kind: PathStar},
			}},
		},
		{
			name:    "empty literal between two pluses is skipped",
			pattern: "a++b",
			want: Fragment{Kind: Concat, Parts: []Fragment{
				{Kind: Literal, Text: "a"},
				{Kind: SegmentPlus},
				{Kind: SegmentPlus},
				{Kind: Literal, Text: "b"},
			}},
		},
		{
			name:    "non-final star is literal",
			pattern: "a*b",
			want:    Fragment{Kind: Literal, Text: "a*b"},
		},
		{
			name:    "bare trailing star",
			pattern: "*",
			want:    Fragment{Kind: PathStar},
		},
		{
			name:    "bare plus",
			pattern: "+",
			want:    Fragment{Kind: SegmentPlus},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compile(tt.pattern)
			if err != nil {
				t.Fatalf("Compile(%q) returned error: %v", tt.pattern, err)
			}
			if !fragmentsEqual(got, tt.want) {
				t.Errorf("Compile(%q) = %#v, want %#v", tt.pattern, got, tt.want)
			}
		})
	}
}

func TestCompileInvalid(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
	}{
		{"empty pattern", ""},
		{"disallowed character", "secret/app prod"},
		{"disallowed character two", "secret/app#prod"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.pattern)
			var invalid *InvalidPatternError
			if !errors.As(err, &invalid) {
				t.Fatalf("Compile(%q) error = %v, want *InvalidPatternError", tt.pattern, err)
			}
		})
	}
}

func fragmentsEqual(a, b Fragment) bool {
	if a.Kind != b.Kind || a.Text != b.Text || len(a.Parts) != len(b.Parts) {
		return false
	}
	for i := range a.Parts {
		if !fragmentsEqual(a.Parts[i], b.Parts[i]) {
			return false
		}
	}
	return true
}
