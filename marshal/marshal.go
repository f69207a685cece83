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

// Package marshal provides object marshalling for the naming client.
//
// Objects are written to and read from byte streams by Marshallers and
// Unmarshallers which a Factory creates for one particular wire format.
// Formats register themselves via RegisterFactory; see packages
// marshal/pickle and marshal/msgpack.
//
// All formats share one value model. Before being written, a Go value is
// flattened into a tree built only of
//
//	nil, bool, int64, uint64, float64, string, []byte,
//	[]interface{}, map[string]interface{} and *Instance
//
// and a format has to be able to carry exactly that. On read the tree is
// resolved back: instances of classes registered in Config.ClassTable are
// turned into Go values by their constructors, and the result is stored into
// caller-provided destination via Assign.
package marshal

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Config is marshalling configuration.
//
// It is shared by all marshallers and unmarshallers created for one naming
// context and must not be changed after it was handed to a Factory.
type Config struct {
	// ClassTable, if != nil, is used to resolve class instances read
	// from the wire into Go values.
	ClassTable *ClassTable
}

// Factory creates Marshallers and Unmarshallers for one wire format.
type Factory interface {
	// Scheme returns name of the wire format, e.g. "pickle".
	Scheme() string

	CreateMarshaller(cfg *Config) (Marshaller, error)
	CreateUnmarshaller(cfg *Config) (Unmarshaller, error)
}

// Marshaller writes objects to a byte stream.
//
// Start has to be called before first WriteObject, and Finish after the
// last one. A Marshaller can be reused for another stream after Finish.
type Marshaller interface {
	Start(w io.Writer)
	WriteObject(v interface{}) error
	Finish() error
}

// Unmarshaller reads objects from a byte stream.
type Unmarshaller interface {
	Start(r io.Reader)

	// ReadObject reads next object and stores it into *ptr.
	//
	// io.EOF is returned, and *ptr is left untouched, only if the stream
	// was cleanly at its end.
	ReadObject(ptr interface{}) error

	Finish() error
}

// Object is implemented by Go values that are marshalled as instances of a
// class.
type Object interface {
	ClassName() string

	// ObjectState returns state of the object; it is flattened
	// recursively.
	ObjectState() []interface{}
}

// Instance is an instance of a class for which no Go type is known.
type Instance struct {
	Class string
	State []interface{}
}

var _ Object = (*Instance)(nil)

func (i *Instance) ClassName() string          { return i.Class }
func (i *Instance) ObjectState() []interface{} { return i.State }

func (i *Instance) String() string {
	argv := make([]string, len(i.State))
	for j, arg := range i.State {
		argv[j] = fmt.Sprintf("%#v", arg)
	}
	return fmt.Sprintf("%s(%s)", i.Class, strings.Join(argv, ", "))
}

// Constructor creates Go value for a class instance given its state.
type Constructor func(state []interface{}) (interface{}, error)

// ClassTable maps class names to constructors of corresponding Go values.
//
// It is safe to use ClassTable from multiple goroutines simultaneously.
type ClassTable struct {
	mu   sync.RWMutex
	ctor map[string]Constructor
}

// NewClassTable creates new empty class table.
func NewClassTable() *ClassTable {
	return &ClassTable{ctor: make(map[string]Constructor)}
}

// Register registers ctor to be used for instances of class.
//
// It panics if class was already registered.
func (t *ClassTable) Register(class string, ctor Constructor) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, already := t.ctor[class]; already {
		panic(fmt.Errorf("marshal: class %q was already registered", class))
	}
	t.ctor[class] = ctor
}

// Lookup returns constructor registered for class, or nil.
//
// It is ok to call Lookup on nil table.
func (t *ClassTable) Lookup(class string) Constructor {
	if t == nil {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ctor[class]
}

// RemoteCause describes an exception raised on the remote side.
//
// RemoteCause is marshalled as instance of Class with Message as the only
// state argument. It can be read from an instance of any class.
type RemoteCause struct {
	Class   string
	Message string
}

var _ Object = (*RemoteCause)(nil)
var _ Assigner = (*RemoteCause)(nil)

func (c *RemoteCause) ClassName() string { return c.Class }

func (c *RemoteCause) ObjectState() []interface{} {
	if c.Message == "" {
		return nil
	}
	return []interface{}{c.Message}
}

func (c *RemoteCause) Error() string {
	if c.Message == "" {
		return c.Class
	}
	return c.Class + ": " + c.Message
}

// AssignFrom implements Assigner.
func (c *RemoteCause) AssignFrom(v interface{}) error {
	switch v := v.(type) {
	case nil:
		*c = RemoteCause{}
	case *RemoteCause:
		*c = *v
	case Object:
		c.Class = v.ClassName()
		c.Message = ""
		if state := v.ObjectState(); len(state) > 0 {
			c.Message = fmt.Sprint(state[0])
		}
	case string:
		*c = RemoteCause{Message: v}
	default:
		return fmt.Errorf("marshal: cannot assign %T to %T", v, c)
	}
	return nil
}

// ---- factory registry ----

// {} scheme -> Factory
var factoryRegistry = map[string]Factory{}
var factoryMu sync.RWMutex

// RegisterFactory registers f to be used for wire format f.Scheme().
func RegisterFactory(f Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()

	scheme := f.Scheme()
	if _, already := factoryRegistry[scheme]; already {
		panic(fmt.Errorf("marshal: scheme %q was already registered", scheme))
	}
	factoryRegistry[scheme] = f
}

// LookupFactory returns factory registered for scheme.
func LookupFactory(scheme string) (Factory, error) {
	factoryMu.RLock()
	defer factoryMu.RUnlock()

	f, ok := factoryRegistry[scheme]
	if !ok {
		return nil, fmt.Errorf("marshal: scheme %q not supported", scheme)
	}
	return f, nil
}
