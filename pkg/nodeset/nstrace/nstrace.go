// Copyright 2015-2025 CEA/DAM/DIF
//  Contributor: Arnaud Guignard <arnaud.guignard@cea.fr>
//
// This software is governed by the CeCILL-B license under French law and
// abiding by the rules of distribution of free software.  You can  use,
// modify and/ or redistribute the software under the terms of the CeCILL-B
// license as circulated by CEA, CNRS and INRIA at the following URL
// "http://www.cecill.info".

// Package nstrace provides the debug-level trace logger shared by the
// nodeset parser and façade, in the same package-level-logger idiom as
// the teacher's utils/logging.go (var log = logging.MustGetLogger(...)).
// Unlike a service, the library has nothing to narrate by default: the
// "nodeset" module starts at NOTICE level (silent for Debugf) until a
// caller opts in with SetDebug.
package nstrace

import "github.com/op/go-logging"

var log = logging.MustGetLogger("nodeset")

func init() {
	logging.SetLevel(logging.NOTICE, "nodeset")
}

// SetDebug toggles DEBUG-level tracing of parse events and resolver
// round-trips for the "nodeset" module.
func SetDebug(enabled bool) {
	if enabled {
		logging.SetLevel(logging.DEBUG, "nodeset")
	} else {
		logging.SetLevel(logging.NOTICE, "nodeset")
	}
}

// Debugf logs a trace message at DEBUG level.
func Debugf(format string, args ...interface{}) {
	log.Debugf(format, args...)
}
