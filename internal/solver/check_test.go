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

package solver

import "testing"

func TestUnquoteZ3String(t *testing.T) {
	tests := []struct{ in, want string }{
		{`"secret/app/prod"`, "secret/app/prod"},
		{`""`, ""},
		{"unquoted", "unquoted"},
		{`"`, `"`},
	}
	for _, tt := range tests {
		if got := unquoteZ3String(tt.in); got != tt.want {
			t.Errorf("unquoteZ3String(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
