// Copyright 2015-2025 CEA/DAM/DIF
//  Contributor: Arnaud Guignard <arnaud.guignard@cea.fr>
//
// This software is governed by the CeCILL-B license under French law and
// abiding by the rules of distribution of free software.  You can  use,
// modify and/ or redistribute the software under the terms of the CeCILL-B
// license as circulated by CEA, CNRS and INRIA at the following URL
// "http://www.cecill.info".

// Package rangeset implements an ordered set of non-negative integers with
// zero-padding and "autostep" folding, the engine behind the compact
// pdsh-like range syntax ("1-30,32", "0-10/2").
package rangeset

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/willf/bitset"
)

// RangeSet is an ordered set of non-negative integers. Members are
// rendered with Padding digits (0 means no enforced width) and folded
// into a-b/step form once a constant-stride run reaches Autostep members
// (0 or negative disables step-folding entirely).
type RangeSet struct {
	bits     *bitset.BitSet
	padding  int
	autostep int
}

// New returns an empty RangeSet using the given autostep threshold.
func New(autostep int) *RangeSet {
	return &RangeSet{bits: &bitset.BitSet{}, autostep: autostep}
}

// NewFromValue returns a RangeSet containing a single value, rendered
// with the given zero-padding width (0 for none).
func NewFromValue(value uint64, padding, autostep int) *RangeSet {
	rs := New(autostep)
	rs.padding = padding
	rs.bits.Set(uint(value))
	return rs
}

// Parse builds a RangeSet from a folded string such as "1-30,32" or
// "0-10/2,16". An empty string, like any empty token, is a ParseError.
func Parse(s string, autostep int) (*RangeSet, error) {
	rs := New(autostep)
	for _, tok := range strings.Split(s, ",") {
		if err := rs.addToken(tok); err != nil {
			return nil, err
		}
	}
	return rs, nil
}

// Padding reports the zero-padding width currently enforced (0 = none).
func (rs *RangeSet) Padding() int { return rs.padding }

// Autostep reports the autostep threshold.
func (rs *RangeSet) Autostep() int { return rs.autostep }

// Clone returns an independent copy of rs.
func (rs *RangeSet) Clone() *RangeSet {
	return &RangeSet{bits: rs.bits.Clone(), padding: rs.padding, autostep: rs.autostep}
}

// Len returns the number of members.
func (rs *RangeSet) Len() int {
	return int(rs.bits.Count())
}

// Empty reports whether the RangeSet has no members.
func (rs *RangeSet) Empty() bool {
	return rs.bits.Count() == 0
}

// Contains reports whether value is a member of rs.
func (rs *RangeSet) Contains(value uint64) bool {
	return rs.bits.Test(uint(value))
}

// Add inserts value into rs. If pad is non-zero and rs has no padding
// established yet, pad becomes rs's padding (first-token-wins, matching
// Parse's token handling).
func (rs *RangeSet) Add(value uint64, pad int) {
	if pad > 0 && rs.padding == 0 {
		rs.padding = pad
	}
	rs.bits.Set(uint(value))
}

// Members returns the set's members in ascending order.
func (rs *RangeSet) Members() []uint64 {
	members := make([]uint64, 0, rs.Len())
	for i, e := rs.bits.NextSet(0); e; i, e = rs.bits.NextSet(i + 1) {
		members = append(members, uint64(i))
	}
	return members
}

// FormatValue renders value using rs's padding width.
func (rs *RangeSet) FormatValue(value uint64) string {
	return fmt.Sprintf("%0*d", rs.padding, value)
}

// Update merges other's members into rs, preserving rs's own padding and
// autostep (the left-operand-wins rule from the set algebra invariants).
func (rs *RangeSet) Update(other *RangeSet) {
	if other == nil {
		return
	}
	rs.bits.InPlaceUnion(other.bits)
	if rs.padding == 0 {
		rs.padding = other.padding
	}
}

// IntersectionUpdate keeps only members also present in other.
func (rs *RangeSet) IntersectionUpdate(other *RangeSet) {
	if other == nil {
		rs.bits = &bitset.BitSet{}
		return
	}
	rs.bits.InPlaceIntersection(other.bits)
}

// DifferenceUpdate removes other's members from rs. When strict is true,
// the first member of other absent from rs is reported as a
// MissingMemberError and rs is left untouched (abort, no partial commit).
func (rs *RangeSet) DifferenceUpdate(other *RangeSet, strict bool) error {
	if other == nil {
		return nil
	}
	if strict {
		for i, e := other.bits.NextSet(0); e; i, e = other.bits.NextSet(i + 1) {
			if !rs.bits.Test(i) {
				return &MissingMemberError{Value: uint64(i)}
			}
		}
	}
	rs.bits.InPlaceDifference(other.bits)
	return nil
}

// SymmetricDifferenceUpdate keeps members present in exactly one of rs
// and other.
func (rs *RangeSet) SymmetricDifferenceUpdate(other *RangeSet) {
	if other == nil {
		return
	}
	rs.bits.InPlaceSymmetricDifference(other.bits)
}

// IsSuperset reports whether rs contains every member of other.
func (rs *RangeSet) IsSuperset(other *RangeSet) bool {
	if other == nil {
		return true
	}
	return rs.bits.IsSuperSet(other.bits)
}

// IsSubset reports whether other contains every member of rs.
func (rs *RangeSet) IsSubset(other *RangeSet) bool {
	if other == nil {
		return rs.Empty()
	}
	return other.IsSuperset(rs)
}

// Equal reports whether rs and other have identical members.
func (rs *RangeSet) Equal(other *RangeSet) bool {
	if other == nil {
		return rs.Empty()
	}
	return rs.Len() == other.Len() && rs.IsSuperset(other)
}

// At returns the value at the given 0-based index in ascending member
// order. Negative indices count from the end.
func (rs *RangeSet) At(index int) (uint64, error) {
	length := rs.Len()
	if index < 0 {
		index += length
	}
	if index < 0 || index >= length {
		return 0, &IndexError{Msg: fmt.Sprintf("%d: index out of range", index)}
	}
	i, e := rs.bits.NextSet(0)
	for n := 0; e; n++ {
		if n == index {
			return uint64(i), nil
		}
		i, e = rs.bits.NextSet(i + 1)
	}
	return 0, &IndexError{Msg: fmt.Sprintf("%d: index out of range", index)}
}

// Slice returns a new RangeSet covering the ordered sub-sequence
// [start:stop:step], the same semantics as a Python slice. start/stop
// may be nil to mean "unset". A negative step is only legal when both
// start and stop are nil (it walks the full set in descending order);
// any other combination is an IndexError.
func (rs *RangeSet) Slice(start, stop *int, step int) (*RangeSet, error) {
	length := rs.Len()
	if step == 0 {
		return nil, &IndexError{Msg: "slice step cannot be zero"}
	}

	var sliceStart, sliceStop, sliceStep int
	if step < 0 {
		if start != nil || stop != nil {
			return nil, &IndexError{Msg: "illegal start and stop when negative step is used"}
		}
		sliceStep = -step
		// Members are kept ascending: walk forward from the index where a
		// descending walk from the last member lands on its final step.
		stepmod := (length + sliceStep - 1) % sliceStep
		sliceStart = 0
		if stepmod > 0 {
			sliceStart += stepmod
		}
		sliceStop = length
	} else {
		sliceStep = step
		if start == nil {
			sliceStart = 0
		} else if *start < 0 {
			sliceStart = maxInt(0, length+*start)
		} else {
			sliceStart = *start
		}
		if stop == nil {
			sliceStop = length
		} else if *stop < 0 {
			sliceStop = maxInt(0, length+*stop)
		} else {
			sliceStop = *stop
		}
	}

	members := rs.Members()
	result := New(rs.autostep)
	result.padding = rs.padding

	for i := sliceStart; i < sliceStop && i < length; i += sliceStep {
		result.bits.Set(uint(members[i]))
	}
	return result, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// addToken parses a single comma-separated token: "n", "a-b" or
// "a-b/step", and merges its values into rs.
func (rs *RangeSet) addToken(tok string) error {
	if tok == "" {
		return newParseError(tok, "empty range")
	}

	baserange := tok
	step := 1
	if idx := strings.IndexByte(tok, '/'); idx >= 0 {
		baserange = tok[:idx]
		stepStr := tok[idx+1:]
		if stepStr == "" {
			return newParseError(tok, "cannot parse step")
		}
		n, err := strconv.Atoi(stepStr)
		if err != nil || n < 1 {
			return newParseError(tok, "invalid step")
		}
		step = n
	}

	var startStr, stopStr string
	if idx := strings.IndexByte(baserange, '-'); idx >= 0 {
		startStr = baserange[:idx]
		stopStr = baserange[idx+1:]
		if startStr == "" || stopStr == "" {
			return newParseError(tok, "cannot parse range bounds")
		}
	} else {
		if step != 1 {
			return newParseError(tok, "invalid step usage without range")
		}
		startStr = baserange
		stopStr = baserange
	}

	start, err := strconv.ParseUint(startStr, 10, 64)
	if err != nil {
		return newParseError(tok, "invalid range start")
	}
	stop, err := strconv.ParseUint(stopStr, 10, 64)
	if err != nil {
		return newParseError(tok, "invalid range stop")
	}
	if start > stop {
		return newParseError(tok, "range start greater than stop")
	}

	pad := len(startStr)
	if rs.padding == 0 {
		rs.padding = pad
	}

	for v := start; v <= stop; v += uint64(step) {
		rs.bits.Set(uint(v))
	}
	return nil
}

// run is a maximal constant-stride subsequence of sorted members, used
// internally by Fold.
type run struct {
	values []uint64
	step   uint64
}

// Fold renders rs in compact folded form: contiguous spans as "a-b",
// sparser constant-stride spans of at least Autostep members as
// "a-b/step", and anything else as individual comma-separated values.
func (rs *RangeSet) Fold() string {
	members := rs.Members()
	if len(members) == 0 {
		return ""
	}

	runs := splitRuns(members)
	var buf bytes.Buffer
	for i, rn := range runs {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(rs.foldRun(rn))
	}
	return buf.String()
}

func (rs *RangeSet) String() string { return rs.Fold() }

// foldRun renders one maximal constant-stride run, honoring Autostep.
func (rs *RangeSet) foldRun(rn run) string {
	n := len(rn.values)
	first, last := rn.values[0], rn.values[n-1]

	if n == 1 {
		return rs.FormatValue(first)
	}
	if rn.step == 1 {
		return fmt.Sprintf("%s-%s", rs.FormatValue(first), rs.FormatValue(last))
	}
	if rs.autostep > 0 && n >= rs.autostep {
		return fmt.Sprintf("%s-%s/%d", rs.FormatValue(first), rs.FormatValue(last), rn.step)
	}

	// Run too short (or autostep disabled) to step-fold: emit members
	// individually, comma-separated.
	parts := make([]string, n)
	for i, v := range rn.values {
		parts[i] = rs.FormatValue(v)
	}
	return strings.Join(parts, ",")
}

// splitRuns groups ascending, unique members into maximal runs sharing a
// single constant stride between consecutive elements. Contiguous
// (step-1) runs are always preferred: before absorbing an element into a
// sparser stride-run candidate, it peeks one element ahead to avoid
// stealing the start of what would otherwise be a contiguous run (e.g.
// members {8,10,11,12} folds as "8,10-12", not the arithmetically valid
// but less useful "8,10,11-12" a naive left-to-right grouping would
// produce).
func splitRuns(members []uint64) []run {
	runs := make([]run, 0)
	n := len(members)
	i := 0
	for i < n {
		// Prefer a contiguous (step-1) run starting at i.
		j := i
		for j+1 < n && members[j+1] == members[j]+1 {
			j++
		}
		if j > i {
			runs = append(runs, run{values: members[i : j+1], step: 1})
			i = j + 1
			continue
		}

		if i+1 >= n {
			runs = append(runs, run{values: members[i : i+1], step: 1})
			i++
			continue
		}

		step := members[i+1] - members[i]
		if i+2 < n && members[i+2] == members[i+1]+1 {
			// members[i+1] would rather start a contiguous run next
			// iteration; leave members[i] as a singleton.
			runs = append(runs, run{values: members[i : i+1], step: 1})
			i++
			continue
		}

		j = i + 1
		for j+1 < n && members[j+1]-members[j] == step &&
			!(j+2 < n && members[j+2] == members[j+1]+1) {
			j++
		}
		runs = append(runs, run{values: members[i : j+1], step: step})
		i = j + 1
	}
	return runs
}

// Items returns the sorted, unique members as an independent slice
// (convenience wrapper, matches Members but documents the sort-stability
// guarantee callers may rely on).
func (rs *RangeSet) Items() []uint64 {
	members := rs.Members()
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	return members
}
