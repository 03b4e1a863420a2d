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

import "fmt"

// ErrUnknown is returned when Z3 reports `unknown` for the escalation
// query — a distinct outcome from "no escalation" (spec.md §7). Common
// causes: a resource limit or timeout inside the string/regex theory
// decision procedure.
var ErrUnknown = fmt.Errorf("solver: verdict is unknown")

// InternalError wraps a failure in the solver itself (a malformed AST, a
// context that failed to initialize, a panic recovered at the solver
// boundary) that is not a property of the input policies. spec.md §7
// classifies this distinctly from an input error: it indicates the
// checker, not the caller, is at fault.
type InternalError struct {
	Detail string
	Err    error
}

func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("solver: internal error: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("solver: internal error: %s", e.Detail)
}

func (e *InternalError) Unwrap() error { return e.Err }
