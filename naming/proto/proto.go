// Copyright (C) 2026  Nexedi SA and Contributors.
//
// This program is free software: you can Use, Study, Modify and Redistribute
// it under the terms of the GNU General Public License version 3, or (at your
// option) any later version, as published by the Free Software Foundation.
//
// You can also Link and Combine this program with other software covered by
// the terms of any of the Free Software licenses or any of the Open Source
// Initiative approved licenses and Convey the resulting work. Corresponding
// source of such a combination shall include the source code for all other
// software used.
//
// This program is distributed WITHOUT ANY WARRANTY; without even the implied
// warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
//
// See COPYING file for full licensing terms.
// See https://www.nexedi.com/licensing for rationale and options.

// Package proto defines the wire vocabulary of the remote naming protocol.
//
// Every request travels in its own channel message:
//
//	[op: 1 byte][request id: 1 byte][marshalled arguments ...]
//
// and every reply comes back as
//
//	[MsgResponse: 1 byte][request id: 1 byte][status: 1 byte][payload ...]
//
// where status StatusOK means success with payload being the marshalled
// result (absent for void operations), and any other status means failure
// with payload being an optional marshalled cause.
package proto

import (
	"fmt"
)

// Op is the code of a naming operation.
type Op uint8

const (
	// lookup <name>  ->  <value>
	OpLookup Op = 1
	// bind <name> <value>  ->  .
	OpBind Op = 2
	// rebind <name> <value>  ->  .
	OpRebind Op = 3
	// unbind <name>  ->  .
	OpUnbind Op = 4
	// rename <old> <new>  ->  .
	OpRename Op = 5
	// list <name>  ->  <NameClassPair>*
	OpList Op = 6
	// listBindings <name>  ->  <Binding>*
	OpListBindings Op = 7
	// destroySubcontext <name>  ->  .
	OpDestroySubcontext Op = 8
	// createSubcontext <name>  ->  <absolute name>
	OpCreateSubcontext Op = 9
	// lookupLink <name>  ->  <value>
	OpLookupLink Op = 10
)

// MsgResponse is the first byte of every reply message.
const MsgResponse = 0x80

// Reply status codes.
const (
	StatusOK = 0
	ErrOther = 1 // generic server-side failure
)

// MaxRequests is the number of request identifiers available on one channel.
//
// Valid identifiers are [0, MaxRequests). A reply carrying an identifier
// outside of this range is a protocol violation and is ignored.
const MaxRequests = 64

var opNames = [...]string{
	OpLookup:            "lookup",
	OpBind:              "bind",
	OpRebind:            "rebind",
	OpUnbind:            "unbind",
	OpRename:            "rename",
	OpList:              "list",
	OpListBindings:      "listBindings",
	OpDestroySubcontext: "destroySubcontext",
	OpCreateSubcontext:  "createSubcontext",
	OpLookupLink:        "lookupLink",
}

func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("?(%d)", uint8(op))
}

// Valid returns whether op is one of known operation codes.
func (op Op) Valid() bool {
	return int(op) < len(opNames) && opNames[op] != ""
}
