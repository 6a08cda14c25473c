// Copyright 2015-2025 CEA/DAM/DIF
//  Contributor: Arnaud Guignard <arnaud.guignard@cea.fr>
//
// This software is governed by the CeCILL-B license under French law and
// abiding by the rules of distribution of free software.  You can  use,
// modify and/ or redistribute the software under the terms of the CeCILL-B
// license as circulated by CEA, CNRS and INRIA at the following URL
// "http://www.cecill.info".

package nodeset

import "context"

// GroupResolver is the external collaborator that maps "@[namespace:]name"
// group references to node lists. No implementation ships in this
// repository: the configuration file format and transport used to back a
// resolver are out of scope (see spec.md's Non-goals); only the contract
// the façade and parser depend on lives here.
//
// GroupNodes is mandatory. The other four methods are optional: an
// implementation that does not support a capability must return
// ErrNotSupported (or an error satisfying errors.Is(err,
// ErrNotSupported)) so the façade can fall back per §4.5's regroup
// heuristic.
type GroupResolver interface {
	// GroupNodes expands a single group to its member node strings.
	// namespace may be empty to mean the resolver's default namespace.
	GroupNodes(ctx context.Context, name, namespace string) ([]string, error)

	// NodeGroups reverse-maps a node to every group it belongs to.
	NodeGroups(ctx context.Context, node, namespace string) ([]string, error)

	// GroupList enumerates every group name known in namespace.
	GroupList(ctx context.Context, namespace string) ([]string, error)

	// AllNodes is a shortcut for "every node known to namespace".
	AllNodes(ctx context.Context, namespace string) ([]string, error)

	// HasNodeGroups reports whether NodeGroups is actually implemented
	// for namespace (some resolvers only support forward lookup).
	HasNodeGroups(ctx context.Context, namespace string) bool
}
