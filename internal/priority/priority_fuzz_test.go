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

package priority

import "testing"

func FuzzCompare(f *testing.F) {
	f.Add("secret/app/prod", "secret/app/*")
	f.Add("secret/+/x", "secret/+/+/y")
	f.Add("", "")
	f.Add("*", "+")
	f.Add("aaaaaaaa", "a")

	f.Fuzz(func(t *testing.T, a, b string) {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("Compare(%q, %q) panicked: %v", a, b, r)
			}
		}()

		ab := Compare(a, b)
		ba := Compare(b, a)
		if ab != -ba {
			t.Errorf("Compare(%q,%q)=%d, Compare(%q,%q)=%d: not antisymmetric", a, b, ab, b, a, ba)
		}
		if a == b && ab != 0 {
			t.Errorf("Compare(%q,%q)=%d, want 0 for equal patterns", a, b, ab)
		}
	})
}
