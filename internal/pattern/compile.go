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

// Package pattern compiles secrets-policy path patterns into a regex
// fragment tree that the solver package can translate into Z3's Seq/RegEx
// theory.
//
// A pattern is a string over the literal alphabet (lower/upper case,
// digits, '-', '_', '.', '/') plus two wildcards: '+' anywhere stands for
// one-or-more literal characters excluding '/' (a single path segment),
// and a trailing '*' stands for zero-or-more literal characters including
// '/'. A '*' that is not the final character of the pattern is literal —
// that is the policy syntax's own contract, not a choice made here.
package pattern

import "strings"

// LiteralAlphabet is the full alphabet a pattern's literal characters may
// be drawn from (§3): lower/upper case, digits, '-', '_', '.', '/'.
// SegmentAlphabet is LiteralAlphabet without '/' — the character class
// SegmentPlus and PathStar fragments draw their matched runs from
// (PathStar additionally admits '/', see the PathStar case of the
// solver's translateFragment).
// Both are exported so internal/solver builds its Z3 character ranges
// from the same source of truth instead of a second copy of the alphabet.
const (
	LiteralAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_./"
	SegmentAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_."
)

// Kind distinguishes the shape of a Fragment.
type Kind int

const (
	// Literal matches exactly the characters in Text.
	Literal Kind = iota
	// SegmentPlus matches one-or-more characters from SegmentAlphabet
	// (a single path segment; never matches '/').
	SegmentPlus
	// PathStar matches zero-or-more characters from SegmentAlphabet plus
	// '/' (may cross segment boundaries).
	PathStar
	// Concat concatenates Parts in order.
	Concat
)

// Fragment is one node of the regex tree PRC emits. It carries no solver
// handle of its own — internal/solver walks it and builds the matching Z3
// AST, so Fragment stays solver-agnostic and trivially testable.
type Fragment struct {
	Kind  Kind
	Text  string     // set when Kind == Literal
	Parts []Fragment // set when Kind == Concat
}

// Compile splits pattern at each '+' and at a trailing '*', and walks the
// resulting tokens into a Fragment tree. An empty literal token between
// two wildcards is skipped rather than emitted as an empty-literal
// fragment, keeping the tree minimal. A single-fragment result is
// returned directly rather than wrapped in a unary Concat.
func Compile(p string) (Fragment, error) {
	if p == "" {
		return Fragment{}, &InvalidPatternError{Pattern: p, Reason: "pattern is empty"}
	}
	if err := checkAlphabet(p); err != nil {
		return Fragment{}, err
	}

	tokens := tokenize(p)

	parts := make([]Fragment, 0, len(tokens))
	for _, tok := range tokens {
		switch tok.kind {
		case tokenPlus:
			parts = append(parts, Fragment{Kind: SegmentPlus})
		case tokenStar:
			parts = append(parts, Fragment{Kind: PathStar})
		case tokenLiteral:
			if tok.text == "" {
				continue
			}
			parts = append(parts, Fragment{Kind: Literal, Text: tok.text})
		}
	}

	if len(parts) == 0 {
		// Every token was an empty literal split between adjacent
		// wildcards and there were no wildcards — impossible for a
		// non-empty pattern, but fall back to an empty literal rather
		// than returning a malformed zero-Part Concat.
		return Fragment{Kind: Literal, Text: ""}, nil
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return Fragment{Kind: Concat, Parts: parts}, nil
}

// InvalidPatternError reports a pattern that cannot be compiled: empty,
// or containing a character outside the declared alphabet.
type InvalidPatternError struct {
	Pattern string
	Reason  string
}

func (e *InvalidPatternError) Error() string {
	return "pattern: invalid pattern " + quote(e.Pattern) + ": " + e.Reason
}

func quote(s string) string {
	return "\"" + s + "\""
}

func checkAlphabet(p string) error {
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '+' || c == '*' {
			continue
		}
		if strings.IndexByte(LiteralAlphabet, c) < 0 {
			return &InvalidPatternError{Pattern: p, Reason: "character " + quote(string(c)) + " is outside the policy alphabet"}
		}
	}
	return nil
}

type tokenKind int

const (
	tokenLiteral tokenKind = iota
	tokenPlus
	tokenStar
)

type token struct {
	kind tokenKind
	text string
}

// tokenize splits pattern at each '+' (consumed as a SegmentPlus token)
// and, if pattern ends in '*', at that trailing '*' (consumed as a
// PathStar token). Any other '*' is left embedded in its surrounding
// literal token, per the policy syntax's contract that only a final '*'
// is a wildcard.
func tokenize(p string) []token {
	trailingStar := strings.HasSuffix(p, "*")
	body := p
	if trailingStar {
		body = p[:len(p)-1]
	}

	var tokens []token
	segments := strings.Split(body, "+")
	for i, seg := range segments {
		if seg != "" {
			tokens = append(tokens, token{kind: tokenLiteral, text: seg})
		}
		if i != len(segments)-1 {
			tokens = append(tokens, token{kind: tokenPlus})
		}
	}

	if trailingStar {
		tokens = append(tokens, token{kind: tokenStar})
	}

	return tokens
}
