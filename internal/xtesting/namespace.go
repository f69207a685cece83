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

package xtesting
// in-memory naming tree

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dmlloyd/jboss-remote-jndi/marshal"
	"github.com/dmlloyd/jboss-remote-jndi/naming/proto"
)

// wire class names of naming types
const (
	NameClass          = "javax.naming.CompositeName"
	NameClassPairClass = "javax.naming.NameClassPair"
	BindingClass       = "javax.naming.Binding"
	ContextClass       = "javax.naming.Context"

	NotFoundClass     = "javax.naming.NameNotFoundException"
	AlreadyBoundClass = "javax.naming.NameAlreadyBoundException"
	NotContextClass   = "javax.naming.NotContextException"
)

// Namespace is in-memory naming tree.
//
// Every name is either bound to an object or is a subcontext. The root
// context always exists.
type Namespace struct {
	mu       sync.Mutex
	bindings map[string]interface{} // absolute name -> object
	contexts map[string]bool        // absolute names of subcontexts
}

func NewNamespace() *Namespace {
	return &Namespace{
		bindings: make(map[string]interface{}),
		contexts: map[string]bool{"": true},
	}
}

// NameArg converts name argument of a request to string form.
func NameArg(arg interface{}) (string, error) {
	switch arg := arg.(type) {
	case string:
		return arg, nil
	case *marshal.Instance:
		if arg.Class != NameClass {
			break
		}
		compv := make([]string, len(arg.State))
		for i, comp := range arg.State {
			s, ok := comp.(string)
			if !ok {
				return "", fmt.Errorf("name component: got %T; expected string", comp)
			}
			compv[i] = s
		}
		return strings.Join(compv, "/"), nil
	}
	return "", fmt.Errorf("name: got %T", arg)
}

// NameObject returns wire form of name.
func NameObject(name string) *marshal.Instance {
	inst := &marshal.Instance{Class: NameClass}
	if name != "" {
		for _, comp := range strings.Split(name, "/") {
			inst.State = append(inst.State, comp)
		}
	}
	return inst
}

func parent(name string) string {
	i := strings.LastIndexByte(name, '/')
	if i < 0 {
		return ""
	}
	return name[:i]
}

func classOf(obj interface{}) string {
	switch obj := obj.(type) {
	case marshal.Object:
		return obj.ClassName()
	case string:
		return "java.lang.String"
	case int64:
		return "java.lang.Long"
	case bool:
		return "java.lang.Boolean"
	}
	return fmt.Sprintf("%T", obj)
}

// Bind binds obj to name directly in the namespace.
func (ns *Namespace) Bind(name string, obj interface{}) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.bindings[name] = obj
}

// CreateContext creates subcontext name directly in the namespace.
func (ns *Namespace) CreateContext(name string) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.contexts[name] = true
}

// Get returns object bound to name.
func (ns *Namespace) Get(name string) (interface{}, bool) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	obj, ok := ns.bindings[name]
	return obj, ok
}

// Handle performs request and returns reply status and payload.
func (ns *Namespace) Handle(req *Request) (status byte, objv []interface{}) {
	fail := func(class, format string, argv ...interface{}) (byte, []interface{}) {
		return proto.ErrOther, []interface{}{&marshal.RemoteCause{Class: class, Message: fmt.Sprintf(format, argv...)}}
	}

	if len(req.Args) == 0 {
		return fail("java.lang.IllegalArgumentException", "%s: no arguments", req.Op)
	}
	name, err := NameArg(req.Args[0])
	if err != nil {
		return fail("java.lang.IllegalArgumentException", "%s: %s", req.Op, err)
	}

	ns.mu.Lock()
	defer ns.mu.Unlock()

	exists := func(name string) bool {
		_, bound := ns.bindings[name]
		return bound || ns.contexts[name]
	}

	switch req.Op {
	case proto.OpLookup, proto.OpLookupLink:
		if ns.contexts[name] {
			return proto.StatusOK, []interface{}{NameObject(name)}
		}
		obj, ok := ns.bindings[name]
		if !ok {
			return fail(NotFoundClass, "%s", name)
		}
		return proto.StatusOK, []interface{}{obj}

	case proto.OpBind, proto.OpRebind:
		if len(req.Args) != 2 {
			return fail("java.lang.IllegalArgumentException", "%s: got %d arguments", req.Op, len(req.Args))
		}
		if !ns.contexts[parent(name)] {
			return fail(NotFoundClass, "%s", parent(name))
		}
		if req.Op == proto.OpBind && exists(name) {
			return fail(AlreadyBoundClass, "%s", name)
		}
		ns.bindings[name] = req.Args[1]
		return proto.StatusOK, nil

	case proto.OpUnbind:
		delete(ns.bindings, name)
		return proto.StatusOK, nil

	case proto.OpRename:
		if len(req.Args) != 2 {
			return fail("java.lang.IllegalArgumentException", "rename: got %d arguments", len(req.Args))
		}
		newName, err := NameArg(req.Args[1])
		if err != nil {
			return fail("java.lang.IllegalArgumentException", "rename: %s", err)
		}
		obj, ok := ns.bindings[name]
		if !ok {
			return fail(NotFoundClass, "%s", name)
		}
		if exists(newName) {
			return fail(AlreadyBoundClass, "%s", newName)
		}
		delete(ns.bindings, name)
		ns.bindings[newName] = obj
		return proto.StatusOK, nil

	case proto.OpList, proto.OpListBindings:
		if !ns.contexts[name] {
			if exists(name) {
				return fail(NotContextClass, "%s", name)
			}
			return fail(NotFoundClass, "%s", name)
		}
		var entries []string
		for k := range ns.bindings {
			if k != name && parent(k) == name {
				entries = append(entries, k)
			}
		}
		for k := range ns.contexts {
			if k != "" && k != name && parent(k) == name {
				entries = append(entries, k)
			}
		}
		sort.Strings(entries)
		for _, k := range entries {
			rel := strings.TrimPrefix(k[len(name):], "/")
			obj, bound := ns.bindings[k]
			class := ContextClass
			if bound {
				class = classOf(obj)
			} else {
				obj = NameObject(k)
			}
			if req.Op == proto.OpList {
				objv = append(objv, &marshal.Instance{Class: NameClassPairClass, State: []interface{}{rel, class}})
			} else {
				objv = append(objv, &marshal.Instance{Class: BindingClass, State: []interface{}{rel, class, obj}})
			}
		}
		return proto.StatusOK, objv

	case proto.OpCreateSubcontext:
		if exists(name) {
			return fail(AlreadyBoundClass, "%s", name)
		}
		if !ns.contexts[parent(name)] {
			return fail(NotFoundClass, "%s", parent(name))
		}
		ns.contexts[name] = true
		return proto.StatusOK, []interface{}{NameObject(name)}

	case proto.OpDestroySubcontext:
		if !ns.contexts[name] {
			return fail(NotContextClass, "%s", name)
		}
		delete(ns.contexts, name)
		return proto.StatusOK, nil
	}

	// unknown operation - like what a server does for unexpected message
	return 2, nil
}
