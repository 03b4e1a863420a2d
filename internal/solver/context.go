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

// Package solver implements the Escalation Solver (ES, spec.md §4.4): it
// discharges the escalation query φ_new ∧ ¬φ_current via Z3's theory of
// strings and regular expressions and extracts a witness on sat.
//
// Every exported Check call owns one scopedContext end-to-end (spec.md
// §5: single-threaded, request-scoped). scopedContext holds every
// reference-counted Z3 handle this package allocates — the raw config,
// context, solver, and the two free constants `path` and `cap` — and
// releases them in LIFO order on every exit path via Close, per spec.md
// §9's resource-discipline requirement. Nothing here is safe for
// concurrent use by design: concurrent independent checks each get their
// own scopedContext.
package solver

import (
	"fmt"

	z3 "github.com/aclements/go-z3/z3"
)

// scopedContext owns one Z3 config/context/solver triple plus the two
// free string constants `path` and `cap` spec.md §4.4 step 1 declares.
// Close releases every handle acquired through it, in the reverse order
// of acquisition.
type scopedContext struct {
	config  *z3.Config
	ctx     *z3.Context
	solver  *z3.Solver
	strSort *z3.Sort

	pathConst *z3.AST
	capConst  *z3.AST
}

// newScopedContext acquires a fresh Z3 config, context, and solver, and
// declares the `path`/`cap` string constants. Any failure during
// acquisition releases everything acquired so far before returning.
func newScopedContext() (sc *scopedContext, err error) {
	sc = &scopedContext{}
	defer func() {
		if r := recover(); r != nil {
			err = &InternalError{Detail: "panic while acquiring solver context", Err: fmt.Errorf("%v", r)}
		}
		if err != nil {
			sc.Close()
			sc = nil
		}
	}()

	sc.config = z3.MkConfig()
	sc.ctx = z3.MkContext(sc.config)
	sc.solver = sc.ctx.MkSolver()
	sc.strSort = sc.ctx.StringSort()

	sc.pathConst = sc.ctx.MkConst(sc.ctx.MkStringSymbol("path"), sc.strSort)
	sc.capConst = sc.ctx.MkConst(sc.ctx.MkStringSymbol("cap"), sc.strSort)

	return sc, nil
}

// Close releases every handle this scopedContext acquired, in LIFO
// order: solver, then context, then config. It is safe to call more than
// once and safe to call on a partially-initialized scopedContext.
func (sc *scopedContext) Close() {
	if sc == nil {
		return
	}
	if sc.solver != nil {
		sc.solver.Close()
		sc.solver = nil
	}
	if sc.ctx != nil {
		sc.ctx.Close()
		sc.ctx = nil
	}
	if sc.config != nil {
		sc.config.Close()
		sc.config = nil
	}
}
