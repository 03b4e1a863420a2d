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

package formula

import (
	"testing"

	"github.com/peg/privesc/internal/policy"
)

// TestBuildOutermostIteIsHighestPriority pins down the fold direction
// decided in DESIGN.md: the outermost Ite in isAllowed must test the
// highest-priority pattern, so that a higher-priority match always
// shadows a lower-priority one regardless of which one the solver
// encounters "first" while reasoning about the formula.
func TestBuildOutermostIteIsHighestPriority(t *testing.T) {
	p := policy.Policy{
		"secret/app/*":    {"read"},
		"secret/app/prod": {"write"}, // no wildcard: outranks the '*' pattern under RPO
	}

	n, err := Build(p)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// n = And(isAllowed, Not(isDenied)); isAllowed is n.Children[0].
	isAllowed := n.Children[0]
	if isAllowed.Kind != Ite {
		t.Fatalf("isAllowed.Kind = %v, want Ite", isAllowed.Kind)
	}
	cond := isAllowed.Children[0]
	if cond.Kind != PathInRegex || cond.Pattern != "secret/app/prod" {
		t.Errorf("outermost ite condition = %+v, want PathInRegex(secret/app/prod)", cond)
	}
}

func TestBuildDenyIsOutsideCascade(t *testing.T) {
	p := policy.Policy{
		"secret/app/cookiebot/*":     {"read"},
		"secret/app/cookiebot/admin": {"deny"},
	}

	n, err := Build(p)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if n.Kind != And {
		t.Fatalf("Build() root Kind = %v, want And", n.Kind)
	}
	isDenied := n.Children[1]
	if isDenied.Kind != Not {
		t.Fatalf("second conjunct Kind = %v, want Not", isDenied.Kind)
	}
	denyTerm := isDenied.Children[0]
	if denyTerm.Kind != PathInRegex || denyTerm.Pattern != "secret/app/cookiebot/admin" {
		t.Errorf("deny term = %+v, want PathInRegex(secret/app/cookiebot/admin)", denyTerm)
	}
}

func TestBuildRuleInBothPartitions(t *testing.T) {
	// A rule carrying deny alongside a grant belongs to both Deny and
	// Allow (spec.md §4.3 step 1).
	p := policy.Policy{
		"secret/app/admin": {"read", "deny"},
	}

	n, err := Build(p)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	isAllowed := n.Children[0]
	if isAllowed.Kind != Ite {
		t.Fatalf("isAllowed.Kind = %v, want Ite", isAllowed.Kind)
	}
	capTerm := isAllowed.Children[1]
	if capTerm.Kind != CapEquals || capTerm.Literal != "read" {
		t.Errorf("capMatch = %+v, want CapEquals(read) (deny excluded from the grant set)", capTerm)
	}

	isDenied := n.Children[1].Children[0]
	if isDenied.Kind != PathInRegex || isDenied.Pattern != "secret/app/admin" {
		t.Errorf("isDenied = %+v, want PathInRegex(secret/app/admin)", isDenied)
	}
}

func TestBuildEmptyPolicyNeverAllows(t *testing.T) {
	n, err := Build(policy.Policy{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	isAllowed := n.Children[0]
	if isAllowed.Kind != BoolConst || isAllowed.Bool != false {
		t.Errorf("isAllowed for empty policy = %+v, want BoolConst(false)", isAllowed)
	}
}

func TestRenderProducesNonEmptyText(t *testing.T) {
	p := policy.Policy{"secret/app/*": {"read"}}
	n, err := Build(p)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := Render(n); got == "" {
		t.Error("Render() = \"\", want non-empty diagnostic text")
	}
}
