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

// Package formula implements the Policy Formula Builder (PFB, spec.md
// §4.3): given a Policy, it builds a boolean formula φ_P(path, cap) that
// is true exactly when the policy grants cap on path.
//
// The formula is expressed as a solver-agnostic Node tree over two
// implicit free variables, "path" and "cap" (both string-sorted). This
// keeps PFB itself trivially unit-testable without any SMT dependency;
// internal/solver is the only package that ever translates a Node into a
// Z3 AST.
package formula

import (
	"fmt"
	"sort"
	"strings"

	"github.com/peg/privesc/internal/policy"
	"github.com/peg/privesc/internal/priority"
)

// Kind distinguishes the shape of a Node.
type Kind int

const (
	// BoolConst is a literal true/false (Bool field holds the value).
	BoolConst Kind = iota
	// And is the conjunction of Children.
	And
	// Or is the disjunction of Children.
	Or
	// Not negates Children[0].
	Not
	// Ite is if-then-else: Children[0] is the condition, Children[1] the
	// then-branch, Children[2] the else-branch.
	Ite
	// CapEquals is `cap = Literal`.
	CapEquals
	// PathInRegex is `path ∈ L(compile(Pattern))`.
	PathInRegex
)

// Node is one node of the formula tree PFB emits.
type Node struct {
	Kind     Kind
	Bool     bool
	Children []Node
	Pattern  string // set when Kind == PathInRegex
	Literal  string // set when Kind == CapEquals
}

func boolConst(b bool) Node { return Node{Kind: BoolConst, Bool: b} }

func or(nodes []Node) Node {
	if len(nodes) == 0 {
		return boolConst(false)
	}
	if len(nodes) == 1 {
		return nodes[0]
	}
	return Node{Kind: Or, Children: nodes}
}

func and(a, b Node) Node { return Node{Kind: And, Children: []Node{a, b}} }
func not(a Node) Node    { return Node{Kind: Not, Children: []Node{a}} }
func ite(cond, then, els Node) Node {
	return Node{Kind: Ite, Children: []Node{cond, then, els}}
}

func capMatch(caps []string) Node {
	if len(caps) == 0 {
		return boolConst(false)
	}
	eqs := make([]Node, len(caps))
	for i, c := range caps {
		eqs[i] = Node{Kind: CapEquals, Literal: c}
	}
	return or(eqs)
}

func pathMatch(pattern string) Node {
	return Node{Kind: PathInRegex, Pattern: pattern}
}

// Build constructs φ_P(path, cap) for p, per spec.md §4.3:
//
//  1. Partition p's rules into Deny (deny ∈ caps) and Allow (some
//     non-deny capability present) — a rule with both deny and grants
//     belongs to both partitions.
//  2. isDenied = OR over Deny of (path ∈ L(compile(pattern))).
//  3. Sort Allow descending by priority.Compare and fold an ite cascade
//     where the highest-priority matching pattern's capability list
//     governs and lower-priority matches are shadowed. This repository
//     builds that fold from the lowest-priority rule inward so the
//     *highest*-priority pattern ends up as the outermost ite condition
//     — the property spec.md §9's design note requires and the only
//     nesting order under which "the highest-priority match wins"
//     actually holds for overlapping patterns (see DESIGN.md).
//  4. Return isAllowed ∧ ¬isDenied.
func Build(p policy.Policy) (Node, error) {
	rules := p.Rules()

	var denyRules []policy.Rule
	var allowRules []policy.Rule
	for _, r := range rules {
		if r.IsDenyRule() {
			denyRules = append(denyRules, r)
		}
		if len(r.GrantedCapabilities()) > 0 {
			allowRules = append(allowRules, r)
		}
	}

	denyTerms := make([]Node, len(denyRules))
	for i, r := range denyRules {
		denyTerms[i] = pathMatch(r.Pattern)
	}
	isDenied := or(denyTerms)

	sort.Slice(allowRules, func(i, j int) bool {
		// Descending: higher priority first.
		return priority.Compare(allowRules[i].Pattern, allowRules[j].Pattern) > 0
	})

	isAllowed := boolConst(false)
	for i := len(allowRules) - 1; i >= 0; i-- {
		r := allowRules[i]
		isAllowed = ite(pathMatch(r.Pattern), capMatch(r.GrantedCapabilities()), isAllowed)
	}

	return and(isAllowed, not(isDenied)), nil
}

// Render produces a human-readable rendering of n, for the diagnostics
// spec.md §6 allows a CheckResponse to carry (the textual form of both
// policy formulas).
func Render(n Node) string {
	var sb strings.Builder
	renderNode(&sb, n)
	return sb.String()
}

func renderNode(sb *strings.Builder, n Node) {
	switch n.Kind {
	case BoolConst:
		fmt.Fprintf(sb, "%t", n.Bool)
	case And:
		sb.WriteString("(")
		renderNode(sb, n.Children[0])
		sb.WriteString(" ∧ ")
		renderNode(sb, n.Children[1])
		sb.WriteString(")")
	case Or:
		sb.WriteString("(")
		for i, c := range n.Children {
			if i > 0 {
				sb.WriteString(" ∨ ")
			}
			renderNode(sb, c)
		}
		sb.WriteString(")")
	case Not:
		sb.WriteString("¬")
		renderNode(sb, n.Children[0])
	case Ite:
		sb.WriteString("ite(")
		renderNode(sb, n.Children[0])
		sb.WriteString(", ")
		renderNode(sb, n.Children[1])
		sb.WriteString(", ")
		renderNode(sb, n.Children[2])
		sb.WriteString(")")
	case CapEquals:
		fmt.Fprintf(sb, "(cap = %q)", n.Literal)
	case PathInRegex:
		fmt.Fprintf(sb, "(path ∈ L(%q))", n.Pattern)
	}
}
