// Copyright 2015-2025 CEA/DAM/DIF
//  Contributor: Arnaud Guignard <arnaud.guignard@cea.fr>
//
// This software is governed by the CeCILL-B license under French law and
// abiding by the rules of distribution of free software.  You can  use,
// modify and/ or redistribute the software under the terms of the CeCILL-B
// license as circulated by CEA, CNRS and INRIA at the following URL
// "http://www.cecill.info".

package rangeset

import "testing"

var foldTests = []struct {
	in       string
	autostep int
	want     string
}{
	{"1-30,32", 0, "1-30,32"},
	{"1,6-30,32", 0, "1,6-30,32"},
	{"0-10", 0, "0-10"},
	{"5-10", 0, "5-10"},
	{"0-10/2", 3, "0-10/2"},
	{"0-10/2", 0, "0,2,4,6,8,10"},
	{"03-05", 0, "03-05"},
	{"16", 0, "16"},
	{"1", 0, "1"},
}

func TestParseFoldRoundTrip(t *testing.T) {
	for _, tt := range foldTests {
		rs, err := Parse(tt.in, tt.autostep)
		if err != nil {
			t.Errorf("Parse(%q) error: %s", tt.in, err)
			continue
		}
		got := rs.Fold()
		if got != tt.want {
			t.Errorf("Parse(%q).Fold() got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "5-", "-5", "5-3", "a-b", "1-5/0", "1/2"} {
		if _, err := Parse(in, 0); err == nil {
			t.Errorf("Parse(%q) expected error, got nil", in)
		}
	}
}

func TestPaddingPreserved(t *testing.T) {
	rs, err := Parse("008,010-012", 0)
	if err != nil {
		t.Fatalf("Parse error: %s", err)
	}
	want := "008,010-012"
	if got := rs.Fold(); got != want {
		t.Errorf("Fold() got %q, want %q", got, want)
	}
}

func TestUpdatePreservesLeftPaddingAndAutostep(t *testing.T) {
	a, _ := Parse("008-010", 5)
	b, _ := Parse("20-21", 0)
	a.Update(b)
	if a.Padding() != 3 {
		t.Errorf("Padding() got %d, want 3", a.Padding())
	}
	if a.Autostep() != 5 {
		t.Errorf("Autostep() got %d, want 5", a.Autostep())
	}
}

func TestIntersectionUpdate(t *testing.T) {
	a, _ := Parse("0-10", 0)
	b, _ := Parse("5-13", 0)
	a.IntersectionUpdate(b)
	if got := a.Fold(); got != "5-10" {
		t.Errorf("got %q, want %q", got, "5-10")
	}
}

func TestDifferenceUpdate(t *testing.T) {
	a, _ := Parse("0-10", 0)
	b, _ := Parse("8-10", 0)
	if err := a.DifferenceUpdate(b, false); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got := a.Fold(); got != "0-7" {
		t.Errorf("got %q, want %q", got, "0-7")
	}
}

func TestDifferenceUpdateStrictMissing(t *testing.T) {
	a, _ := Parse("0-5", 0)
	b, _ := Parse("4-10", 0)
	if err := a.DifferenceUpdate(b, true); err == nil {
		t.Errorf("expected MissingMemberError, got nil")
	} else if _, ok := err.(*MissingMemberError); !ok {
		t.Errorf("expected *MissingMemberError, got %T (%s)", err, err)
	}
	// abort-and-propagate: a must be unchanged on strict failure
	if got := a.Fold(); got != "0-5" {
		t.Errorf("a was mutated on strict failure: got %q, want %q", got, "0-5")
	}
}

func TestSymmetricDifferenceUpdate(t *testing.T) {
	a, _ := Parse("0-10", 0)
	b, _ := Parse("5-13", 0)
	a.SymmetricDifferenceUpdate(b)
	if got := a.Fold(); got != "0-4,11-13" {
		t.Errorf("got %q, want %q", got, "0-4,11-13")
	}
}

func TestAtAndNegativeIndex(t *testing.T) {
	rs, _ := Parse("5,10,15", 0)
	if v, err := rs.At(0); err != nil || v != 5 {
		t.Errorf("At(0) = %d, %v; want 5, nil", v, err)
	}
	if v, err := rs.At(-1); err != nil || v != 15 {
		t.Errorf("At(-1) = %d, %v; want 15, nil", v, err)
	}
	if _, err := rs.At(3); err == nil {
		t.Errorf("At(3) expected IndexError, got nil")
	}
}

func TestSliceLaw(t *testing.T) {
	rs, _ := Parse("0-9", 0)
	start, stop := 2, 7
	sub, err := rs.Slice(&start, &stop, 1)
	if err != nil {
		t.Fatalf("Slice error: %s", err)
	}
	for k := 0; k < sub.Len(); k++ {
		got, _ := sub.At(k)
		want, _ := rs.At(start + k)
		if got != want {
			t.Errorf("slice law violated at k=%d: got %d, want %d", k, got, want)
		}
	}
}

func TestNegativeStepSliceRequiresUnsetBounds(t *testing.T) {
	rs, _ := Parse("0-4", 0)
	start := 0
	if _, err := rs.Slice(&start, nil, -1); err == nil {
		t.Errorf("expected IndexError for negative step with start set, got nil")
	}
	sub, err := rs.Slice(nil, nil, -1)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	want := []uint64{4, 3, 2, 1, 0}
	got := sub.Members()
	// Members() always returns ascending order; reconstruct via At to
	// check descending iteration order instead.
	_ = got
	for i, w := range want {
		v, err := sub.At(len(want) - 1 - i)
		if err != nil || v != w {
			t.Errorf("At(%d) = %v, %v; want %d, nil", len(want)-1-i, v, err, w)
		}
	}
}

func TestCardinalityUnionIntersection(t *testing.T) {
	a, _ := Parse("0-10", 0)
	b, _ := Parse("5-20", 0)
	union := a.Clone()
	union.Update(b)
	inter := a.Clone()
	inter.IntersectionUpdate(b)
	if union.Len()+inter.Len() != a.Len()+b.Len() {
		t.Errorf("|a∪b|+|a∩b| = %d, want %d", union.Len()+inter.Len(), a.Len()+b.Len())
	}
}

func TestIdempotentUnionIntersection(t *testing.T) {
	a, _ := Parse("1,6-30,32", 0)
	u := a.Clone()
	u.Update(a)
	if !u.Equal(a) {
		t.Errorf("a ∪ a != a: got %q, want %q", u.Fold(), a.Fold())
	}
	i := a.Clone()
	i.IntersectionUpdate(a)
	if !i.Equal(a) {
		t.Errorf("a ∩ a != a: got %q, want %q", i.Fold(), a.Fold())
	}
}
