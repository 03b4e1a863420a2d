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

// Package policy holds the escalation checker's data model (spec.md §3):
// path patterns mapped to capability sets, plus the validation that turns
// a freshly parsed mapping into something the formula builder can trust.
//
// Parsing policy source text into this shape is explicitly an external
// collaborator's job (spec.md §6); FileStore in yaml.go is the reference
// adapter for the one source format this repository ships a loader for.
package policy

import "fmt"

// DenyCapability is the distinguished veto marker. It may appear in a
// rule's capability list alongside real grants; its presence alone marks
// the rule as a deny rule for formula-building purposes (spec.md §4.3).
const DenyCapability = "deny"

// KnownCapabilities is the capability vocabulary spec.md §3 enumerates.
// It is informational only — Validate does not reject a capability
// outside this list, since the secrets system's own vocabulary may grow;
// rejecting on an unexpected capability string would make this checker a
// compatibility hazard for new capability types it's never told about.
var KnownCapabilities = []string{"read", "write", "delete", "list", "update", "create", "sudo", DenyCapability}

// Policy maps a path pattern to the capabilities it grants (or, via
// DenyCapability, revokes). Pattern keys are unique by construction (it's
// a Go map); RPO imposes the total order formula-building needs at
// construction time, not here.
type Policy map[string][]string

// Rule is a policy entry materialized as a value, useful wherever a
// caller wants to range over (pattern, caps) pairs in a stable order
// without holding the map directly (formula building, audit logging).
type Rule struct {
	Pattern      string
	Capabilities []string
}

// Rules returns p's entries as a slice of Rule, in no particular order.
// Callers that need a priority order should sort with internal/priority.
func (p Policy) Rules() []Rule {
	rules := make([]Rule, 0, len(p))
	for pattern, caps := range p {
		rules = append(rules, Rule{Pattern: pattern, Capabilities: caps})
	}
	return rules
}

// IsDenyRule reports whether r's capability list contains DenyCapability.
// A rule may carry deny alongside real grants (spec.md §3); for
// deny-detection purposes deny membership alone counts, so a rule can be
// a member of both the Deny and Allow partitions PFB builds (spec.md
// §4.3 step 1).
func (r Rule) IsDenyRule() bool {
	for _, c := range r.Capabilities {
		if c == DenyCapability {
			return true
		}
	}
	return false
}

// GrantedCapabilities returns r's capabilities with DenyCapability
// filtered out — the set PFB's capMatch disjunction is built from.
func (r Rule) GrantedCapabilities() []string {
	var grants []string
	for _, c := range r.Capabilities {
		if c != DenyCapability {
			grants = append(grants, c)
		}
	}
	return grants
}

// InvalidPatternError reports a policy rule that fails Validate: an empty
// pattern or a rule with no capabilities at all. A pattern using a
// character outside the declared alphabet is reported separately, as a
// pattern.InvalidPatternError from pattern.Compile.
type InvalidPatternError struct {
	Pattern string
	Reason  string
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("policy: invalid rule for pattern %q: %s", e.Pattern, e.Reason)
}

// Validate checks every rule in p for the structural errors spec.md §7
// classifies as input errors: an empty pattern and an empty capability
// list. Pattern-alphabet errors surface when internal/pattern.Compile is
// invoked during the solver's translation; Validate catches these two
// defects earlier so a caller can reject a malformed policy before
// any solver work begins, mirroring internal/engine.Config.validate's
// fail-before-evaluating discipline.
func (p Policy) Validate() error {
	for pattern, caps := range p {
		if pattern == "" {
			return &InvalidPatternError{Pattern: pattern, Reason: "pattern is empty"}
		}
		if len(caps) == 0 {
			return &InvalidPatternError{Pattern: pattern, Reason: "capability list is empty"}
		}
	}
	return nil
}
