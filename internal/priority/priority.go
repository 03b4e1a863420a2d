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

// Package priority implements the Rule Priority Oracle: the total order
// over path patterns that decides, when more than one pattern in a policy
// matches a path, which pattern's capability list governs.
//
// The order is a sequential tie-break of five rules (R1-R5, spec.md
// §4.2). Each rule alone need not be total; R5 (lexicographic) always
// distinguishes two distinct strings, which is what makes the chain
// total. Compare returns the signed delta from the first rule that
// distinguishes p1 and p2, so callers can sort.Slice a rule set directly.
package priority

import (
	"math"
	"strings"
)

// noWildcard is the R1 sentinel for "this pattern has no '+' or '*' at
// all" — spec.md §4.2 calls for treating that absence as +∞. It must not
// vary with the pattern's length, or two wildcard-free patterns of
// different lengths would be wrongly decided by R1 instead of falling
// through to R4.
const noWildcard = math.MaxInt

// Compare returns a negative number if p1 has lower priority than p2,
// zero if p1 == p2, and a positive number if p1 has higher priority.
// "Higher priority" means p1's capability list governs over p2's when
// both match the same path.
func Compare(p1, p2 string) int {
	if p1 == p2 {
		return 0
	}

	// R1: later first-wildcard position wins. Absence of a wildcard is
	// treated as +∞, so a pattern with no wildcard always outranks one
	// that has a wildcard anywhere.
	if d := firstWildcardIndex(p1) - firstWildcardIndex(p2); d != 0 {
		return d
	}

	// R2: a pattern without a trailing '*' outranks one with.
	if d := trailingStarRank(p1) - trailingStarRank(p2); d != 0 {
		return d
	}

	// R3: fewer '+' segments outranks more.
	if d := strings.Count(p2, "+") - strings.Count(p1, "+"); d != 0 {
		return d
	}

	// R4: a longer literal (the pattern's length) outranks a shorter one.
	if d := len(p1) - len(p2); d != 0 {
		return d
	}

	// R5: lexicographically smaller outranks larger — the only rule that
	// necessarily distinguishes any two distinct strings, guaranteeing
	// totality of the chain.
	if p1 < p2 {
		return 1
	}
	return -1
}

// firstWildcardIndex returns the byte offset of the first wildcard token
// in p, or noWildcard (+∞) if p has none. A '+' is always a wildcard; a
// '*' is one only when it is the pattern's final character — a non-final
// '*' is a literal character per the pattern compiler (internal/pattern),
// so it must not make R1 treat two otherwise-identical literal patterns
// as wildcarded.
func firstWildcardIndex(p string) int {
	for i := 0; i < len(p); i++ {
		if p[i] == '+' {
			return i
		}
		if p[i] == '*' && i == len(p)-1 {
			return i
		}
	}
	return noWildcard
}

// trailingStarRank returns 1 for a pattern without a trailing '*' (higher
// priority) and 0 for one with, so a plain subtraction in Compare yields
// the right sign.
func trailingStarRank(p string) int {
	if strings.HasSuffix(p, "*") {
		return 0
	}
	return 1
}

// Less reports whether p1 has strictly lower priority than p2. It is the
// `less` function sort.Slice/slices.SortFunc callers want when sorting a
// rule set ascending by priority (lowest first, so the highest-priority
// pattern ends up last — reverse it, or iterate from the end, to fold the
// PFB's ite cascade outermost-highest-priority-first).
func Less(p1, p2 string) bool {
	return Compare(p1, p2) < 0
}
