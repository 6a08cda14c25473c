// Copyright 2015-2025 CEA/DAM/DIF
//  Contributor: Arnaud Guignard <arnaud.guignard@cea.fr>
//
// This software is governed by the CeCILL-B license under French law and
// abiding by the rules of distribution of free software.  You can  use,
// modify and/ or redistribute the software under the terms of the CeCILL-B
// license as circulated by CEA, CNRS and INRIA at the following URL
// "http://www.cecill.info".

// Package nodeset implements a compact, ordered set of cluster node
// names sharing a common prefix/suffix template, the full set algebra
// over such sets, an extended pattern language combining those
// operations inline, and regrouping against an external group resolver.
package nodeset

import (
	"sort"
	"strings"

	"github.com/cea-hpc/nodeset/pkg/rangeset"
)

// Base is a mapping from Template to (RangeSet | ∅). A Template with
// Slotted == false is stored with a nil RangeSet (an unnumbered node); a
// Template with Slotted == true is always stored with a non-nil,
// non-empty RangeSet (entries are purged the instant their RangeSet
// becomes empty, by every mutating method below).
type Base struct {
	patterns map[Template]*rangeset.RangeSet
}

// NewBase returns an empty Base.
func NewBase() *Base {
	return &Base{patterns: make(map[Template]*rangeset.RangeSet)}
}

// Copy returns a deep copy of b.
func (b *Base) Copy() *Base {
	out := NewBase()
	for t, rs := range b.patterns {
		if rs == nil {
			out.patterns[t] = nil
		} else {
			out.patterns[t] = rs.Clone()
		}
	}
	return out
}

// add merges a single (template, rangeset) pair into b. rangeset may be
// nil for an unnumbered node.
func (b *Base) add(t Template, rs *rangeset.RangeSet) {
	if existing, ok := b.patterns[t]; ok && existing != nil {
		existing.Update(rs)
		return
	}
	if rs != nil {
		b.patterns[t] = rs.Clone()
		return
	}
	b.patterns[t] = nil
}

// addN merges a batch of rangesets sharing the same template in one
// pass, minimizing rehashing for homogeneous clusters (spec.md's
// "updaten" bulk-add optimization).
func (b *Base) addN(t Template, rangesets []*rangeset.RangeSet) {
	single := true
	for _, rs := range rangesets {
		if rs != nil {
			single = false
			break
		}
	}

	existing, ok := b.patterns[t]
	if !ok || existing == nil {
		// A missing or unnumbered entry takes the batch's merged
		// rangeset, if any, as add does.
		if single {
			b.patterns[t] = nil
			return
		}
		var acc *rangeset.RangeSet
		for _, rs := range rangesets {
			if rs == nil {
				continue
			}
			if acc == nil {
				acc = rs.Clone()
			} else {
				acc.Update(rs)
			}
		}
		b.patterns[t] = acc
		return
	}
	for _, rs := range rangesets {
		existing.Update(rs)
	}
}

// Len returns the number of nodes (unnumbered entries count 1; numbered
// entries count their RangeSet's cardinality).
func (b *Base) Len() int {
	n := 0
	for _, rs := range b.patterns {
		if rs == nil {
			n++
		} else {
			n += rs.Len()
		}
	}
	return n
}

// sortedTemplates returns the Base's templates in canonical
// (lexicographic on Template.Key()) order.
func (b *Base) sortedTemplates() []Template {
	templates := make([]Template, 0, len(b.patterns))
	for t := range b.patterns {
		templates = append(templates, t)
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].Less(templates[j]) })
	return templates
}

// Nodes returns every node string in canonical order.
func (b *Base) Nodes() []string {
	nodes := make([]string, 0, b.Len())
	for _, t := range b.sortedTemplates() {
		rs := b.patterns[t]
		if rs == nil {
			nodes = append(nodes, t.Format(""))
			continue
		}
		for _, v := range rs.Members() {
			nodes = append(nodes, t.Format(rs.FormatValue(v)))
		}
	}
	return nodes
}

// Fold renders b in compact form: each template's RangeSet folded into
// its bracketed syntax (or the bare node for a single member or an
// unnumbered entry), joined with ",".
func (b *Base) Fold() string {
	parts := make([]string, 0, len(b.patterns))
	for _, t := range b.sortedTemplates() {
		rs := b.patterns[t]
		switch {
		case rs == nil:
			parts = append(parts, t.Format(""))
		case rs.Len() == 1:
			v := rs.Members()[0]
			parts = append(parts, t.Format(rs.FormatValue(v)))
		default:
			parts = append(parts, t.Format("["+rs.Fold()+"]"))
		}
	}
	return strings.Join(parts, ",")
}

func (b *Base) String() string { return b.Fold() }

// At returns the node at the given 0-based canonical index. Negative
// indices count from the end.
func (b *Base) At(index int) (string, error) {
	length := b.Len()
	if index < 0 {
		index += length
	}
	if index < 0 || index >= length {
		return "", &IndexError{Msg: "index out of range"}
	}
	offset := 0
	for _, t := range b.sortedTemplates() {
		rs := b.patterns[t]
		if rs == nil {
			if index == offset {
				return t.Format(""), nil
			}
			offset++
			continue
		}
		cnt := rs.Len()
		if index < offset+cnt {
			v, err := rs.At(index - offset)
			if err != nil {
				return "", err
			}
			return t.Format(rs.FormatValue(v)), nil
		}
		offset += cnt
	}
	return "", &IndexError{Msg: "index out of range"}
}

// Slice returns a new Base covering the ordered sub-sequence
// [start:stop:step] of b's canonical iteration, preserving templates and
// padding. Only a positive step is supported at this level (negative
// step belongs to RangeSet.Slice; a NodeSetBase mixes numbered and
// unnumbered entries so "reverse enumeration" has no single natural
// per-template padding to preserve).
func (b *Base) Slice(start, stop *int, step int) (*Base, error) {
	if step <= 0 {
		return nil, &IndexError{Msg: "slice step must be positive"}
	}
	length := b.Len()
	sliceStart := 0
	if start != nil {
		if *start < 0 {
			sliceStart = maxInt(0, length+*start)
		} else {
			sliceStart = *start
		}
	}
	sliceStop := length
	if stop != nil {
		if *stop < 0 {
			sliceStop = maxInt(0, length+*stop)
		} else {
			sliceStop = *stop
		}
	}

	out := NewBase()
	if sliceStop <= sliceStart {
		return out, nil
	}

	offset := 0
	next := sliceStart
	for _, t := range b.sortedTemplates() {
		if next >= sliceStop {
			break
		}
		rs := b.patterns[t]
		if rs == nil {
			cnt := 1
			if next == offset {
				out.add(t, nil)
				next++
				// realign next to the slice grid
				if (next-sliceStart)%step != 0 {
					next = sliceStart + ((next-sliceStart)/step+1)*step
				}
			}
			offset += cnt
			continue
		}
		cnt := rs.Len()
		fromOffset := next - offset
		if fromOffset < cnt {
			num := minInt(sliceStop-next, cnt-fromOffset)
			subStart := fromOffset
			subStop := fromOffset + num
			sub, err := rs.Slice(&subStart, &subStop, step)
			if err != nil {
				return nil, err
			}
			if sub.Len() > 0 {
				out.add(t, sub)
			}
			next += num
			if (next-sliceStart)%step != 0 {
				next = sliceStart + ((next-sliceStart)/step+1)*step
			}
		}
		offset += cnt
	}
	return out, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Equal reports whether b and other contain exactly the same nodes.
func (b *Base) Equal(other *Base) bool {
	return b.Len() == other.Len() && b.IsSuperset(other)
}

// IsSuperset reports whether b contains every node of other.
func (b *Base) IsSuperset(other *Base) bool {
	for t, otherRS := range other.patterns {
		rs, ok := b.patterns[t]
		if otherRS == nil {
			if !ok {
				return false
			}
			continue
		}
		if rs == nil || !rs.IsSuperset(otherRS) {
			return false
		}
	}
	return true
}

// IsSubset reports whether other contains every node of b.
func (b *Base) IsSubset(other *Base) bool {
	return other.IsSuperset(b)
}

// Less reports whether b is a proper subset of other.
func (b *Base) Less(other *Base) bool {
	return b.Len() < other.Len() && b.IsSubset(other)
}

// Greater reports whether b is a proper superset of other.
func (b *Base) Greater(other *Base) bool {
	return b.Len() > other.Len() && b.IsSuperset(other)
}

// Update merges other's nodes into b (template-wise union).
func (b *Base) Update(other *Base) {
	for t, rs := range other.patterns {
		b.add(t, rs)
	}
}

// UpdateN merges several Bases at once, grouping rangesets per template
// so each template's RangeSet is merged once (spec.md's "updaten" bulk
// optimization for homogeneous clusters).
func (b *Base) UpdateN(others []*Base) {
	byTemplate := make(map[Template][]*rangeset.RangeSet)
	for _, other := range others {
		for t, rs := range other.patterns {
			byTemplate[t] = append(byTemplate[t], rs)
		}
	}
	for t, rangesets := range byTemplate {
		b.addN(t, rangesets)
	}
}

// IntersectionUpdate keeps only nodes also present in other, template by
// template.
func (b *Base) IntersectionUpdate(other *Base) {
	if other == b {
		return
	}
	tmp := NewBase()
	for t, otherRS := range other.patterns {
		rs, ok := b.patterns[t]
		if !ok {
			continue
		}
		switch {
		case rs == nil && otherRS == nil:
			// Both sides agree this template is an unnumbered node: it
			// survives the intersection. (spec.md §9 notes the source
			// has a duplicated branch here with an identical condition;
			// this is the single intended effect.)
			tmp.patterns[t] = nil
		case rs != nil && otherRS != nil:
			merged := rs.Clone()
			merged.IntersectionUpdate(otherRS)
			if merged.Len() > 0 {
				tmp.patterns[t] = merged
			}
		}
	}
	b.patterns = tmp.patterns
}

// DifferenceUpdate removes other's nodes from b. When strict is true,
// the first node of other absent from b aborts the whole operation with
// a MissingMemberError and b is left as it was before the call.
func (b *Base) DifferenceUpdate(other *Base, strict bool) error {
	if strict {
		for t, otherRS := range other.patterns {
			rs, ok := b.patterns[t]
			if otherRS == nil {
				if !ok {
					return &MissingMemberError{Node: t.Format("")}
				}
				continue
			}
			if rs == nil {
				return &MissingMemberError{Node: t.Format(otherRS.FormatValue(otherRS.Members()[0]))}
			}
			rsCopy := rs.Clone()
			if err := rsCopy.DifferenceUpdate(otherRS, true); err != nil {
				if mm, ok := err.(*rangeset.MissingMemberError); ok {
					return &MissingMemberError{Node: t.Format(rs.FormatValue(mm.Value))}
				}
				return err
			}
		}
	}

	purge := make([]Template, 0)
	for t, otherRS := range other.patterns {
		rs, ok := b.patterns[t]
		if !ok {
			continue
		}
		if otherRS == nil {
			purge = append(purge, t)
			continue
		}
		if rs == nil {
			continue
		}
		_ = rs.DifferenceUpdate(otherRS, false)
		if rs.Len() == 0 {
			purge = append(purge, t)
		}
	}
	for _, t := range purge {
		delete(b.patterns, t)
	}
	return nil
}

// Remove is difference_update(x, strict=true): it fails with
// MissingMemberError if x is not fully contained in b.
func (b *Base) Remove(x *Base) error {
	return b.DifferenceUpdate(x, true)
}

// SymmetricDifferenceUpdate keeps nodes present in exactly one of b and
// other. Purge keys are collected and applied after both passes (fixing
// the source bug noted in spec.md §9 of mutating _patterns while
// iterating it).
func (b *Base) SymmetricDifferenceUpdate(other *Base) {
	purge := make(map[Template]bool)

	for t, rs := range b.patterns {
		otherRS, ok := other.patterns[t]
		if !ok {
			continue
		}
		switch {
		case rs == nil && otherRS == nil:
			purge[t] = true
		case rs != nil && otherRS != nil:
			rs.SymmetricDifferenceUpdate(otherRS)
		case rs == nil && otherRS != nil:
			// An unnumbered node XORed against a numbered rangeset under
			// the same template never happens via the parser (see
			// spec.md §3); treat as "both present" => remove.
			purge[t] = true
		case rs != nil && otherRS == nil:
			purge[t] = true
		}
	}

	for t, otherRS := range other.patterns {
		if _, ok := b.patterns[t]; !ok {
			b.add(t, otherRS)
		}
	}

	for t, rs := range b.patterns {
		if rs != nil && rs.Len() == 0 {
			purge[t] = true
		}
	}
	for t := range purge {
		delete(b.patterns, t)
	}
}

// Union, Intersection, Difference and SymmetricDifference return new
// Bases, leaving b and other untouched.

func (b *Base) Union(other *Base) *Base {
	out := b.Copy()
	out.Update(other)
	return out
}

func (b *Base) Intersection(other *Base) *Base {
	out := b.Copy()
	out.IntersectionUpdate(other)
	return out
}

func (b *Base) Difference(other *Base) *Base {
	out := b.Copy()
	_ = out.DifferenceUpdate(other, false)
	return out
}

func (b *Base) SymmetricDifference(other *Base) *Base {
	out := b.Copy()
	out.SymmetricDifferenceUpdate(other)
	return out
}
