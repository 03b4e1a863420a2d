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

import (
	"context"
	"fmt"

	z3 "github.com/aclements/go-z3/z3"

	"github.com/peg/privesc/internal/formula"
	"github.com/peg/privesc/internal/policy"
)

// Witness is a concrete (path, capability) pair admitted by the new
// policy but not the current one.
type Witness struct {
	Path       string
	Capability string
}

// Result is the outcome of an escalation check (spec.md §3's
// EscalationResult, realized as a Go struct with a bool discriminator
// rather than a tagged union).
type Result struct {
	Escalated bool
	Witness   *Witness

	// CurrentFormulaText and NewFormulaText are the rendered φ_current
	// and φ_new, for the optional diagnostics spec.md §6 allows.
	CurrentFormulaText string
	NewFormulaText     string
}

// Check discharges the escalation query for currentPolicy and
// newPolicy: it builds φ_current and φ_new via internal/formula, asserts
// φ_new ∧ ¬φ_current in a fresh solver context, and extracts a witness on
// sat (spec.md §4.4). ctx governs only the blocking decision-procedure
// call (Solver.Check) — cancelling it abandons the in-flight context
// (spec.md §5); it does not interrupt formula construction, which is not
// a suspension point.
//
// Every solver handle acquired during this call is released before
// Check returns, on every exit path, including on error (spec.md §9).
func Check(ctx context.Context, currentPolicy, newPolicy policy.Policy) (Result, error) {
	currentFormula, err := formula.Build(currentPolicy)
	if err != nil {
		return Result{}, err
	}
	newFormula, err := formula.Build(newPolicy)
	if err != nil {
		return Result{}, err
	}

	sc, err := newScopedContext()
	if err != nil {
		return Result{}, err
	}
	defer sc.Close()

	rc := newRegexCache(sc)

	currentAST, err := rc.translateFormula(currentFormula)
	if err != nil {
		return Result{}, err
	}
	newAST, err := rc.translateFormula(newFormula)
	if err != nil {
		return Result{}, err
	}

	// The escalation query: φ_new ∧ ¬φ_current. By de Morgan this has a
	// model iff some (path, cap) is admitted by the new policy and
	// rejected by the current one (spec.md §4.4 "Why this query").
	sc.solver.Assert(newAST)
	sc.solver.Assert(sc.ctx.MkNot(currentAST))

	verdict, checkErr := checkWithCancellation(ctx, sc.solver)
	if checkErr != nil {
		return Result{}, checkErr
	}

	result := Result{
		CurrentFormulaText: formula.Render(currentFormula),
		NewFormulaText:     formula.Render(newFormula),
	}

	switch verdict {
	case z3.False:
		return result, nil
	case z3.True:
		witness, err := extractWitness(sc)
		if err != nil {
			return Result{}, err
		}
		result.Escalated = true
		result.Witness = &witness
		return result, nil
	default:
		return Result{}, ErrUnknown
	}
}

// checkWithCancellation runs solver.Check in a goroutine so an
// already-cancelled or since-cancelled ctx can make Check return
// promptly with the context's error instead of blocking the caller for
// however long the decision procedure takes (spec.md §5's suspension
// point). The context cannot interrupt Z3's own internal computation —
// only whether this call waits for it — so a cancelled check still
// leaves the scopedContext to be released normally by the caller's defer.
func checkWithCancellation(ctx context.Context, s *z3.Solver) (z3.LBool, error) {
	type outcome struct {
		verdict z3.LBool
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: &InternalError{Detail: "panic during Solver.Check", Err: fmt.Errorf("%v", r)}}
				return
			}
		}()
		done <- outcome{verdict: s.Check()}
	}()

	select {
	case <-ctx.Done():
		return z3.Undef, ctx.Err()
	case o := <-done:
		return o.verdict, o.err
	}
}

// extractWitness queries sc's model for the interpretations of `path`
// and `cap` (spec.md §4.4 step 5).
func extractWitness(sc *scopedContext) (Witness, error) {
	model := sc.solver.Model()
	defer model.Close()

	pathVal, ok := model.Eval(sc.pathConst, true)
	if !ok {
		return Witness{}, &InternalError{Detail: "model has no interpretation for path"}
	}
	capVal, ok := model.Eval(sc.capConst, true)
	if !ok {
		return Witness{}, &InternalError{Detail: "model has no interpretation for cap"}
	}

	return Witness{
		Path:       unquoteZ3String(pathVal.String()),
		Capability: unquoteZ3String(capVal.String()),
	}, nil
}

// unquoteZ3String strips the surrounding double quotes Z3's AST String()
// rendering wraps string-sorted model values in.
func unquoteZ3String(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
