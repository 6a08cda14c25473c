// Copyright 2015-2025 CEA/DAM/DIF
//  Contributor: Arnaud Guignard <arnaud.guignard@cea.fr>
//
// This software is governed by the CeCILL-B license under French law and
// abiding by the rules of distribution of free software.  You can  use,
// modify and/ or redistribute the software under the terms of the CeCILL-B
// license as circulated by CEA, CNRS and INRIA at the following URL
// "http://www.cecill.info".

package nodeset

import (
	"context"
	"strings"

	"github.com/cea-hpc/nodeset/pkg/nodeset/nstrace"
	"github.com/cea-hpc/nodeset/pkg/rangeset"
)

// opCode tags the four set operators the extended pattern language
// supports, replacing the source's dynamic dispatch on the operator
// character with a switch over a small closed enum.
type opCode int

const (
	opUnion opCode = iota
	opDifference
	opIntersection
	opSymmetricDifference
)

// opCodes maps an operator byte to its opCode, mirroring OP_CODES in the
// original parsing engine.
var opCodes = map[byte]opCode{
	',': opUnion,
	'!': opDifference,
	'&': opIntersection,
	'^': opSymmetricDifference,
}

// segment is one (operator, operand-text) pair produced by scanning a
// pattern string. The first segment's Op is always opUnion: there is no
// operator before the first operand.
type segment struct {
	op   opCode
	text string
}

// scan splits a pattern string into segments, treating "[...]" spans as
// opaque so a "," or "!" etc. inside a bracketed range never ends a term.
// This mirrors the bracket-vs-operator lookahead of the original
// _scan_string/_next_op pair: rather than searching for the next "[" and
// next operator and comparing their positions, it walks once and tracks
// bracket depth, splitting on an operator only when depth is zero.
func scan(pattern string) ([]segment, error) {
	var segments []segment
	depth := 0
	start := 0
	op := opUnion
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				if code, ok := opCodes[pattern[i]]; ok {
					segments = append(segments, segment{op: op, text: pattern[start:i]})
					op = code
					start = i + 1
				}
			}
		}
	}
	if depth != 0 {
		return nil, newParseError(pattern, "unbalanced '['")
	}
	segments = append(segments, segment{op: op, text: pattern[start:]})
	return segments, nil
}

// Parser turns extended pattern strings into Base values, resolving
// "@group" references through an optional GroupResolver.
type Parser struct {
	ctx      context.Context
	resolver GroupResolver
	autostep int
}

// NewParser returns a Parser that resolves group references (if any)
// against resolver (which may be nil if the pattern never needs one) and
// builds RangeSets with the given autostep threshold.
func NewParser(ctx context.Context, resolver GroupResolver, autostep int) *Parser {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Parser{ctx: ctx, resolver: resolver, autostep: autostep}
}

// Parse builds a Base from an extended pattern string such as
// "node[1-5],node[8-10]!node9" or "@compute\\foo&node[1-100]".
func (p *Parser) Parse(pattern string) (*Base, error) {
	base := NewBase()
	if strings.TrimSpace(pattern) == "" {
		return base, nil
	}

	segments, err := scan(pattern)
	if err != nil {
		return nil, err
	}

	for _, seg := range segments {
		text := strings.TrimSpace(seg.text)
		if text == "" {
			continue
		}
		operand, err := p.parseOperand(text)
		if err != nil {
			return nil, err
		}
		nstrace.Debugf("parse segment op=%d text=%q -> %d nodes", seg.op, text, operand.Len())
		switch seg.op {
		case opUnion:
			base.Update(operand)
		case opDifference:
			if err := base.DifferenceUpdate(operand, false); err != nil {
				return nil, err
			}
		case opIntersection:
			base.IntersectionUpdate(operand)
		case opSymmetricDifference:
			base.SymmetricDifferenceUpdate(operand)
		}
	}
	return base, nil
}

// parseOperand parses one comma-free, bracket-balanced operand: either a
// "@[namespace:]name" group reference or a "prefix[range]suffix" term.
func (p *Parser) parseOperand(text string) (*Base, error) {
	if strings.HasPrefix(text, "@") {
		return p.parseGroup(text)
	}
	return p.parseTerm(text)
}

// parseGroup expands a "@name" or "@namespace:name" or "@[namespace:]*"
// (all nodes) reference through the resolver. The namespace comes first
// when both are given (original_source/lib/ClusterShell/NodeSet.py:741-743,
// "namespace, group = grpstr.split(':', 1)").
func (p *Parser) parseGroup(text string) (*Base, error) {
	if p.resolver == nil {
		return nil, &ExternalError{Msg: "no group resolver configured for " + text}
	}
	spec := text[1:]
	name, namespace := spec, ""
	if idx := strings.IndexByte(spec, ':'); idx >= 0 {
		namespace, name = spec[:idx], spec[idx+1:]
	}

	var nodes []string
	var err error
	if name == "*" {
		nodes, err = p.resolver.AllNodes(p.ctx, namespace)
	} else {
		nodes, err = p.resolver.GroupNodes(p.ctx, name, namespace)
	}
	if err != nil {
		return nil, &ExternalError{Msg: "resolving group " + text, Err: err}
	}

	base := NewBase()
	for _, node := range nodes {
		term, err := p.parseTerm(node)
		if err != nil {
			return nil, err
		}
		base.Update(term)
	}
	return base, nil
}

// parseTerm parses a single bracketed or plain node term. Exactly one
// "[...]" range is supported per term, matching the teacher's and the
// original implementation's pattern grammar; a bracket establishes a
// Slotted Template, its absence an unnumbered one — unless the bare term
// itself contains a run of digits (e.g. "node1" or "node1-ilo"), in which
// case the first such run is peeled off as an implicit single-value
// range, so "node1,node2" folds the same as "node[1,2]".
func (p *Parser) parseTerm(text string) (*Base, error) {
	open := strings.IndexByte(text, '[')
	if open < 0 {
		if strings.ContainsAny(text, "[]") {
			return nil, newParseError(text, "unbalanced '['")
		}
		prefix, digits, suffix := splitTrailingDigits(text)
		if prefix == "" && suffix == "" && digits == "" {
			return nil, newParseError(text, "empty node name")
		}
		base := NewBase()
		if digits == "" {
			base.add(Template{Prefix: prefix, Slotted: false}, nil)
			return base, nil
		}
		rs, err := rangeset.Parse(digits, p.autostep)
		if err != nil {
			return nil, newRangeParseError(text, err)
		}
		base.add(Template{Prefix: prefix, Suffix: suffix, Slotted: true}, rs)
		return base, nil
	}

	close := strings.IndexByte(text[open:], ']')
	if close < 0 {
		return nil, newParseError(text, "missing ']'")
	}
	close += open

	prefix := text[:open]
	rangeText := text[open+1 : close]
	suffix := text[close+1:]

	rs, err := rangeset.Parse(rangeText, p.autostep)
	if err != nil {
		return nil, newRangeParseError(text, err)
	}

	base := NewBase()
	if rs.Empty() {
		return base, nil
	}
	base.add(Template{Prefix: prefix, Suffix: suffix, Slotted: true}, rs)
	return base, nil
}

// splitTrailingDigits splits a bracket-less node name into a leading
// non-digit prefix, the first run of digits found (if any), and
// whatever follows it, mirroring the original implementation's
// "(\D*)(\d*)(.*)" single-node regex: the non-digit prefix is taken as
// long as possible, so only the first digit run ever becomes the
// implicit index (a name like "node1copy2" yields prefix "node", digits
// "1", suffix "copy2" — the trailing "2" stays literal).
func splitTrailingDigits(s string) (prefix, digits, suffix string) {
	i := 0
	for i < len(s) && (s[i] < '0' || s[i] > '9') {
		i++
	}
	j := i
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	return s[:i], s[i:j], s[j:]
}
