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
	"fmt"
	"sort"

	"github.com/cea-hpc/nodeset/pkg/nodeset/nstrace"
)

// defaultAutostep is the autostep threshold new NodeSets use when none is
// given explicitly: 0 disables step-folding, matching ClusterShell's
// historical default of never emitting "a-b/step" unless asked.
const defaultAutostep = 0

// NodeSet is the public façade: an ordered set of node names built from
// extended pattern strings, other NodeSets, or nil (empty). It owns a
// Base, a Parser bound to an optional GroupResolver, and the autostep
// threshold new ranges are built with.
type NodeSet struct {
	base     *Base
	parser   *Parser
	resolver GroupResolver
	autostep int
}

// Operand is anything New and the binary operations accept as a
// right-hand operand: a pattern string, another *NodeSet, or nil (empty).
type Operand interface{}

// Option configures a new NodeSet.
type Option func(*NodeSet)

// WithResolver attaches a GroupResolver used to expand "@group"
// references and to drive regroup().
func WithResolver(resolver GroupResolver) Option {
	return func(ns *NodeSet) { ns.resolver = resolver }
}

// WithAutostep sets the step-folding threshold new RangeSets are built
// with (0 disables step-folding).
func WithAutostep(autostep int) Option {
	return func(ns *NodeSet) { ns.autostep = autostep }
}

// WithContext binds the context.Context used for resolver round-trips.
// Its zero value is context.Background().
func WithContext(ctx context.Context) Option {
	return func(ns *NodeSet) { ns.parser.ctx = ctx }
}

// New builds a NodeSet from pattern (a string), another *NodeSet (copied),
// or nil (empty set).
func New(pattern Operand, opts ...Option) (*NodeSet, error) {
	ns := &NodeSet{base: NewBase(), autostep: defaultAutostep}
	ns.parser = NewParser(context.Background(), nil, ns.autostep)
	for _, opt := range opts {
		opt(ns)
	}
	ns.parser.resolver = ns.resolver
	ns.parser.autostep = ns.autostep

	operand, err := ns.coerce(pattern)
	if err != nil {
		return nil, err
	}
	if operand != nil {
		ns.base.Update(operand)
	}
	return ns, nil
}

// coerce turns an Operand into a *Base, parsing strings and returning
// other NodeSets' underlying Base itself (not a copy).
func (ns *NodeSet) coerce(operand Operand) (*Base, error) {
	switch v := operand.(type) {
	case nil:
		return nil, nil
	case string:
		return ns.parser.Parse(v)
	case *NodeSet:
		if v == nil {
			return nil, nil
		}
		return v.base, nil
	default:
		return nil, &TypeError{Msg: fmt.Sprintf("unsupported operand type %T", operand)}
	}
}

// Len returns the number of nodes in the set.
func (ns *NodeSet) Len() int { return ns.base.Len() }

// String renders the set in compact folded form, e.g. "node[1-5,8]".
func (ns *NodeSet) String() string { return ns.base.Fold() }

// Nodes returns every node name in canonical order.
func (ns *NodeSet) Nodes() []string { return ns.base.Nodes() }

// Contains reports whether node (a single, unbracketed node name) is a
// member of the set.
func (ns *NodeSet) Contains(node string) bool {
	single, err := New(node)
	if err != nil {
		return false
	}
	return ns.base.IsSuperset(single.base)
}

// At returns the node at the given 0-based canonical index.
func (ns *NodeSet) At(index int) (string, error) { return ns.base.At(index) }

// Equal reports whether ns and other contain the same nodes.
func (ns *NodeSet) Equal(other *NodeSet) bool { return ns.base.Equal(other.base) }

// IsSubset reports whether every node of ns is in other.
func (ns *NodeSet) IsSubset(other *NodeSet) bool { return ns.base.IsSubset(other.base) }

// IsSuperset reports whether ns contains every node of other.
func (ns *NodeSet) IsSuperset(other *NodeSet) bool { return ns.base.IsSuperset(other.base) }

// Clone returns an independent copy of ns.
func (ns *NodeSet) Clone() *NodeSet {
	return &NodeSet{
		base:     ns.base.Copy(),
		parser:   NewParser(ns.parser.ctx, ns.resolver, ns.autostep),
		resolver: ns.resolver,
		autostep: ns.autostep,
	}
}

// Update merges operand's nodes into ns in place.
func (ns *NodeSet) Update(operand Operand) error {
	other, err := ns.coerce(operand)
	if err != nil {
		return err
	}
	ns.base.Update(other)
	return nil
}

// UpdateN merges several operands at once, batching rangesets per
// template (spec.md's "updaten" bulk optimization).
func (ns *NodeSet) UpdateN(operands []Operand) error {
	bases := make([]*Base, 0, len(operands))
	for _, operand := range operands {
		other, err := ns.coerce(operand)
		if err != nil {
			return err
		}
		if other != nil {
			bases = append(bases, other)
		}
	}
	ns.base.UpdateN(bases)
	return nil
}

// IntersectionUpdate keeps only nodes also present in operand.
func (ns *NodeSet) IntersectionUpdate(operand Operand) error {
	other, err := ns.coerce(operand)
	if err != nil {
		return err
	}
	ns.base.IntersectionUpdate(other)
	return nil
}

// DifferenceUpdate removes operand's nodes from ns. See Base.DifferenceUpdate
// for strict's semantics.
func (ns *NodeSet) DifferenceUpdate(operand Operand, strict bool) error {
	other, err := ns.coerce(operand)
	if err != nil {
		return err
	}
	return ns.base.DifferenceUpdate(other, strict)
}

// Remove removes operand's nodes from ns, failing if any is absent.
func (ns *NodeSet) Remove(operand Operand) error {
	return ns.DifferenceUpdate(operand, true)
}

// SymmetricDifferenceUpdate keeps nodes present in exactly one of ns and
// operand.
func (ns *NodeSet) SymmetricDifferenceUpdate(operand Operand) error {
	other, err := ns.coerce(operand)
	if err != nil {
		return err
	}
	ns.base.SymmetricDifferenceUpdate(other)
	return nil
}

// Union, Intersection, Difference and SymmetricDifference return new
// NodeSets, leaving ns untouched.

func (ns *NodeSet) Union(operand Operand) (*NodeSet, error) {
	out := ns.Clone()
	if err := out.Update(operand); err != nil {
		return nil, err
	}
	return out, nil
}

func (ns *NodeSet) Intersection(operand Operand) (*NodeSet, error) {
	out := ns.Clone()
	if err := out.IntersectionUpdate(operand); err != nil {
		return nil, err
	}
	return out, nil
}

func (ns *NodeSet) Difference(operand Operand) (*NodeSet, error) {
	out := ns.Clone()
	if err := out.DifferenceUpdate(operand, false); err != nil {
		return nil, err
	}
	return out, nil
}

func (ns *NodeSet) SymmetricDifference(operand Operand) (*NodeSet, error) {
	out := ns.Clone()
	if err := out.SymmetricDifferenceUpdate(operand); err != nil {
		return nil, err
	}
	return out, nil
}

// Slice returns a new NodeSet covering the ordered sub-sequence
// [start:stop:step] of ns's canonical iteration.
func (ns *NodeSet) Slice(start, stop *int, step int) (*NodeSet, error) {
	sliced, err := ns.base.Slice(start, stop, step)
	if err != nil {
		return nil, err
	}
	return &NodeSet{base: sliced, parser: ns.parser, resolver: ns.resolver, autostep: ns.autostep}, nil
}

// Split partitions ns into n NodeSets of near-equal size (the first
// chunks absorb the remainder, so they may be one node larger than the
// last), preserving canonical order within each. Grounded on the
// original implementation's split(), which divides an already-sorted
// node list into n contiguous chunks rather than round-robining members
// across chunks.
func (ns *NodeSet) Split(n int) ([]*NodeSet, error) {
	if n <= 0 {
		return nil, &IndexError{Msg: "split count must be positive"}
	}
	length := ns.Len()
	if length == 0 {
		return nil, nil
	}
	if n > length {
		n = length
	}

	quotient, remainder := length/n, length%n
	out := make([]*NodeSet, 0, n)
	start := 0
	for i := 0; i < n; i++ {
		size := quotient
		if i < remainder {
			size++
		}
		stop := start + size
		chunk, err := ns.Slice(&start, &stop, 1)
		if err != nil {
			return nil, err
		}
		out = append(out, chunk)
		start = stop
	}
	return out, nil
}

// RegroupOptions controls Regroup's group-selection behavior, mirroring
// the original implementation's regroup(overlap, noprefix) parameters
// (original_source/lib/ClusterShell/NodeSet.py:973-974).
type RegroupOptions struct {
	// Overlap allows a group to be emitted even once some of its nodes
	// have already been claimed by a larger, previously emitted group —
	// it is still required to be entirely contained in ns itself, just
	// not in what remains unclaimed. The default, false, only emits a
	// group while it is still entirely unclaimed.
	Overlap bool
	// NoPrefix emits bare "@name" references even when a namespace is in
	// use, instead of the default "@namespace:name".
	NoPrefix bool
}

type regroupCandidate struct {
	name string
	base *Base
}

// Regroup rewrites ns's fold to reference every group known to the
// resolver that ns fully contains (no length comparison is made between a
// group reference and the nodes it replaces), attempting namespaces in
// the order given (or the resolver's default namespace if none is
// given). It follows the original implementation's regroup() heuristic:
//
//  1. Bail out immediately if no resolver is configured: regroup is then
//     simply a no-op producing the normal fold.
//  2. Per namespace, decide the lookup direction: if the resolver
//     supports reverse lookup (NodeGroups) and either the forward group
//     list is unavailable or has at least as many groups as ns has
//     nodes, discover candidate groups by asking each node which groups
//     it belongs to; otherwise list every group and expand it forward.
//  3. A candidate only survives if it is entirely contained in ns (a
//     "full" group, regardless of Overlap).
//  4. Largest full group first: claim it (record "@[namespace:]name",
//     honoring NoPrefix) and remove its nodes from what remains, unless
//     Overlap is set, in which case containment in the remainder is not
//     required — only containment in ns itself.
//  5. Whatever nodes remain unclaimed are folded normally.
//  6. The final rendering joins group references and the ungrouped fold
//     with ",", groups first.
//  7. An empty ns or one fully covered by groups still renders
//     correctly (no trailing comma, no empty term).
func (ns *NodeSet) Regroup(ctx context.Context, opts RegroupOptions, namespaces ...string) (string, error) {
	if ns.resolver == nil || ns.Len() == 0 {
		return ns.String(), nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if len(namespaces) == 0 {
		namespaces = []string{""}
	}

	remainder := ns.base.Copy()
	var groupRefs []string

	for _, namespace := range namespaces {
		if remainder.Len() == 0 {
			break
		}

		groups, listErr := ns.resolver.GroupList(ctx, namespace)
		if listErr != nil {
			nstrace.Debugf("regroup: group list unavailable for namespace %q: %v", namespace, listErr)
		}
		hasReverse := ns.resolver.HasNodeGroups(ctx, namespace)
		useReverse := hasReverse && (listErr != nil || len(groups) >= ns.Len())

		var candidates []regroupCandidate
		if useReverse {
			candidates = ns.regroupCandidatesByReverse(ctx, namespace)
		} else {
			if listErr != nil || len(groups) == 0 {
				continue
			}
			candidates = ns.regroupCandidatesByList(ctx, namespace, groups)
		}

		// Largest group first; ties broken by name for a deterministic
		// pick order (the original's bigalpha comparator: size desc,
		// then name asc).
		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].base.Len() != candidates[j].base.Len() {
				return candidates[i].base.Len() > candidates[j].base.Len()
			}
			return candidates[i].name < candidates[j].name
		})

		for _, c := range candidates {
			if c.base.Len() == 0 || !ns.base.IsSuperset(c.base) {
				continue
			}
			if !opts.Overlap && !remainder.IsSuperset(c.base) {
				continue
			}
			groupRefs = append(groupRefs, regroupRef(c.name, namespace, opts.NoPrefix))
			_ = remainder.DifferenceUpdate(c.base, false)
			if remainder.Len() == 0 {
				break
			}
		}
	}

	sort.Strings(groupRefs)
	if remainder.Len() == 0 {
		if len(groupRefs) == 0 {
			return "", nil
		}
		return joinComma(groupRefs), nil
	}
	rest := remainder.Fold()
	if len(groupRefs) == 0 {
		return rest, nil
	}
	return joinComma(groupRefs) + "," + rest, nil
}

// regroupCandidatesByList expands every group the resolver lists for
// namespace (the forward path).
func (ns *NodeSet) regroupCandidatesByList(ctx context.Context, namespace string, groups []string) []regroupCandidate {
	candidates := make([]regroupCandidate, 0, len(groups))
	for _, name := range groups {
		base, err := ns.regroupGroupBase(ctx, name, namespace)
		if err != nil {
			continue
		}
		candidates = append(candidates, regroupCandidate{name: name, base: base})
	}
	return candidates
}

// regroupCandidatesByReverse discovers candidate groups by asking, for
// every node of ns, which groups it belongs to (the reverse path), then
// expands each distinct group once to learn its full membership.
func (ns *NodeSet) regroupCandidatesByReverse(ctx context.Context, namespace string) []regroupCandidate {
	seen := make(map[string]bool)
	var candidates []regroupCandidate
	for _, node := range ns.base.Nodes() {
		names, err := ns.resolver.NodeGroups(ctx, node, namespace)
		if err != nil {
			continue
		}
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			base, err := ns.regroupGroupBase(ctx, name, namespace)
			if err != nil {
				continue
			}
			candidates = append(candidates, regroupCandidate{name: name, base: base})
		}
	}
	return candidates
}

// regroupGroupBase expands a single group name to the Base of its
// member nodes.
func (ns *NodeSet) regroupGroupBase(ctx context.Context, name, namespace string) (*Base, error) {
	nodes, err := ns.resolver.GroupNodes(ctx, name, namespace)
	if err != nil {
		return nil, err
	}
	groupSet, err := New(nil)
	if err != nil {
		return nil, err
	}
	for _, node := range nodes {
		if err := groupSet.Update(node); err != nil {
			return nil, err
		}
	}
	return groupSet.base, nil
}

// regroupRef renders a group reference, namespace first per the wire
// format ("@namespace:name"), bare ("@name") when namespace is empty or
// noprefix is requested.
func regroupRef(name, namespace string, noprefix bool) string {
	if namespace == "" || noprefix {
		return "@" + name
	}
	return "@" + namespace + ":" + name
}

func joinComma(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += "," + p
	}
	return out
}
