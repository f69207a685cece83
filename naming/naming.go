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

// Package naming provides client for remote naming service.
//
// A naming service keeps a tree of named objects. Client connects to the
// service over one remoting channel and exposes the tree as Contexts: every
// Context operation (Lookup, Bind, List, ...) is sent to the server as a
// request and the caller waits for the corresponding reply.
//
// Requests from all contexts of one client share the channel. Each
// in-flight request is identified by small request id, and replies, which
// the server may send in any order, are routed back to their callers by that
// id. At most 64 requests can be in flight simultaneously; a request issued
// when all ids are busy fails with ErrTooManyRequests instead of waiting.
//
// Objects are transferred with a marshalling format from package marshal;
// see Open for how to connect to a service by URL.
package naming

import (
	"fmt"

	"github.com/dmlloyd/jboss-remote-jndi/marshal"
)

// NameClassPair describes one entry of a naming context as returned by List.
type NameClassPair struct {
	Name  string // name of the entry relative to listed context
	Class string // class name of the bound object
}

// Binding describes one entry of a naming context together with bound
// object, as returned by ListBindings.
type Binding struct {
	Name   string
	Class  string
	Object interface{}
}

const (
	nameClassPairClass = "javax.naming.NameClassPair"
	bindingClass       = "javax.naming.Binding"
)

var _ marshal.Object = (*NameClassPair)(nil)
var _ marshal.Object = (*Binding)(nil)

func (p *NameClassPair) ClassName() string          { return nameClassPairClass }
func (p *NameClassPair) ObjectState() []interface{} { return []interface{}{p.Name, p.Class} }

func (p *NameClassPair) String() string {
	return fmt.Sprintf("%s: %s", p.Name, p.Class)
}

func (b *Binding) ClassName() string          { return bindingClass }
func (b *Binding) ObjectState() []interface{} { return []interface{}{b.Name, b.Class, b.Object} }

func (b *Binding) String() string {
	return fmt.Sprintf("%s: %s = %v", b.Name, b.Class, b.Object)
}

// classTable is used to resolve naming types received from the wire.
var classTable = marshal.NewClassTable()

func init() {
	classTable.Register(nameClass, newName)
	classTable.Register(nameClassPairClass, newNameClassPair)
	classTable.Register(bindingClass, newBinding)
}

// NewMarshalConfig returns marshalling configuration that knows about
// naming types.
func NewMarshalConfig() *marshal.Config {
	return &marshal.Config{ClassTable: classTable}
}

func newNameClassPair(state []interface{}) (interface{}, error) {
	if len(state) != 2 {
		return nil, fmt.Errorf("state: got %d items; expected 2", len(state))
	}
	p := &NameClassPair{}
	err := marshal.Assign(&p.Name, state[0])
	if err == nil {
		err = marshal.Assign(&p.Class, state[1])
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func newBinding(state []interface{}) (interface{}, error) {
	if len(state) != 3 {
		return nil, fmt.Errorf("state: got %d items; expected 3", len(state))
	}
	b := &Binding{Object: state[2]}
	err := marshal.Assign(&b.Name, state[0])
	if err == nil {
		err = marshal.Assign(&b.Class, state[1])
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}
