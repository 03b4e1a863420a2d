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
	"fmt"

	z3 "github.com/aclements/go-z3/z3"

	"github.com/peg/privesc/internal/formula"
	"github.com/peg/privesc/internal/pattern"
)

// regexCache memoizes pattern -> compiled Z3 regex AST within one
// scopedContext's lifetime, since the same pattern can appear in both the
// Deny and Allow partitions of a policy (spec.md §4.3 step 1) and in both
// the current and new policy's formula.
type regexCache struct {
	sc    *scopedContext
	cache map[string]*z3.AST
}

func newRegexCache(sc *scopedContext) *regexCache {
	return &regexCache{sc: sc, cache: make(map[string]*z3.AST)}
}

func (rc *regexCache) compile(p string) (*z3.AST, error) {
	if ast, ok := rc.cache[p]; ok {
		return ast, nil
	}
	frag, err := pattern.Compile(p)
	if err != nil {
		return nil, err
	}
	ast := rc.translateFragment(frag)
	rc.cache[p] = ast
	return ast, nil
}

// translateFragment walks a pattern.Fragment and builds the matching Z3
// regex-sorted AST, per spec.md §4.1:
//
//   - Literal: the concatenation-of-singletons regex matching Text
//     exactly, built via SeqToRe over the string literal.
//   - SegmentPlus: L+ over SegmentAlphabet (never matches '/').
//   - PathStar: (L ∪ {/})* over SegmentAlphabet ∪ {'/'}.
//   - Concat: ReConcat of the translated Parts, in order.
func (rc *regexCache) translateFragment(f pattern.Fragment) *z3.AST {
	ctx := rc.sc.ctx
	switch f.Kind {
	case pattern.Literal:
		return ctx.MkSeqToRe(ctx.MkString(f.Text))
	case pattern.SegmentPlus:
		return ctx.MkRePlus(charClass(ctx, pattern.SegmentAlphabet))
	case pattern.PathStar:
		return ctx.MkReStar(charClass(ctx, pattern.SegmentAlphabet+"/"))
	case pattern.Concat:
		parts := make([]*z3.AST, len(f.Parts))
		for i, p := range f.Parts {
			parts[i] = rc.translateFragment(p)
		}
		return ctx.MkReConcat(parts...)
	default:
		panic(fmt.Sprintf("solver: unknown fragment kind %d", f.Kind))
	}
}

// charClass builds a regex matching any single character in alphabet, as
// the union of contiguous-range regexes. The alphabet is always ASCII
// (spec.md §3), so a handful of ReRange terms over the runs
// (a-z, A-Z, 0-9) plus single-character unions for '-', '_', '.', '/'
// covers it.
func charClass(ctx *z3.Context, alphabet string) *z3.AST {
	ranges := collapseToRanges(alphabet)
	terms := make([]*z3.AST, len(ranges))
	for i, r := range ranges {
		lo := ctx.MkSeqToRe(ctx.MkString(string(r.lo)))
		hi := ctx.MkSeqToRe(ctx.MkString(string(r.hi)))
		terms[i] = ctx.MkReRange(lo, hi)
	}
	if len(terms) == 1 {
		return terms[0]
	}
	return ctx.MkReUnion(terms...)
}

type byteRange struct{ lo, hi byte }

// collapseToRanges groups alphabet's bytes into maximal contiguous runs,
// so e.g. "abcdefghijklmnopqrstuvwxyz" becomes a single ('a','z') range
// instead of 26 single-character ranges.
func collapseToRanges(alphabet string) []byteRange {
	if alphabet == "" {
		return nil
	}
	bytes := []byte(alphabet)
	var ranges []byteRange
	start := bytes[0]
	prev := bytes[0]
	for _, b := range bytes[1:] {
		if b == prev+1 {
			prev = b
			continue
		}
		ranges = append(ranges, byteRange{lo: start, hi: prev})
		start = b
		prev = b
	}
	ranges = append(ranges, byteRange{lo: start, hi: prev})
	return ranges
}

// translateFormula walks a formula.Node and builds the matching Z3 bool
// AST, resolving PathInRegex/CapEquals leaves against the scopedContext's
// `path`/`cap` constants.
func (rc *regexCache) translateFormula(n formula.Node) (*z3.AST, error) {
	ctx := rc.sc.ctx
	switch n.Kind {
	case formula.BoolConst:
		if n.Bool {
			return ctx.MkTrue(), nil
		}
		return ctx.MkFalse(), nil
	case formula.And:
		a, err := rc.translateFormula(n.Children[0])
		if err != nil {
			return nil, err
		}
		b, err := rc.translateFormula(n.Children[1])
		if err != nil {
			return nil, err
		}
		return ctx.MkAnd(a, b), nil
	case formula.Or:
		terms := make([]*z3.AST, len(n.Children))
		for i, c := range n.Children {
			t, err := rc.translateFormula(c)
			if err != nil {
				return nil, err
			}
			terms[i] = t
		}
		if len(terms) == 0 {
			return ctx.MkFalse(), nil
		}
		return ctx.MkOr(terms...), nil
	case formula.Not:
		a, err := rc.translateFormula(n.Children[0])
		if err != nil {
			return nil, err
		}
		return ctx.MkNot(a), nil
	case formula.Ite:
		cond, err := rc.translateFormula(n.Children[0])
		if err != nil {
			return nil, err
		}
		then, err := rc.translateFormula(n.Children[1])
		if err != nil {
			return nil, err
		}
		els, err := rc.translateFormula(n.Children[2])
		if err != nil {
			return nil, err
		}
		return ctx.MkIte(cond, then, els), nil
	case formula.CapEquals:
		return ctx.MkEq(rc.sc.capConst, ctx.MkString(n.Literal)), nil
	case formula.PathInRegex:
		re, err := rc.compile(n.Pattern)
		if err != nil {
			return nil, err
		}
		return ctx.MkSeqInRe(rc.sc.pathConst, re), nil
	default:
		return nil, fmt.Errorf("solver: unknown formula node kind %d", n.Kind)
	}
}
