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

// Package msgpack provides marshalling of objects as MessagePack.
//
// Every object is encoded with github.com/shamaton/msgpack and written as
// one MessagePack bin value with the tinylib/msgp stream writer. Class
// instances are encoded as maps
//
//	{"@class": <class name>, "@state": [<state>...]}
//
// The factory is registered under scheme "msgpack".
package msgpack

import (
	"fmt"
	"io"
	"math"
	"reflect"

	"github.com/shamaton/msgpack"
	"github.com/tinylib/msgp/msgp"

	"github.com/dmlloyd/jboss-remote-jndi/internal/xio"
	"github.com/dmlloyd/jboss-remote-jndi/marshal"
)

const (
	keyClass = "@class"
	keyState = "@state"
)

type factory struct{}

// Factory is the MessagePack marshalling factory.
var Factory marshal.Factory = factory{}

func init() {
	marshal.RegisterFactory(Factory)
}

func (factory) Scheme() string { return "msgpack" }

func (factory) CreateMarshaller(cfg *marshal.Config) (marshal.Marshaller, error) {
	return &marshaller{cfg: cfg}, nil
}

func (factory) CreateUnmarshaller(cfg *marshal.Config) (marshal.Unmarshaller, error) {
	return &unmarshaller{cfg: cfg}, nil
}

type marshaller struct {
	cfg *marshal.Config
	wr  *msgp.Writer
}

func (m *marshaller) Start(w io.Writer) {
	m.wr = msgp.NewWriter(w)
}

func (m *marshaller) WriteObject(v interface{}) error {
	x, err := marshal.Flatten(v)
	if err != nil {
		return err
	}
	data, err := msgpack.Encode(toWire(x))
	if err != nil {
		return fmt.Errorf("msgpack: encode: %s", err)
	}
	return m.wr.WriteBytes(data)
}

func (m *marshaller) Finish() error {
	err := m.wr.Flush()
	m.wr = nil
	return err
}

// toWire replaces instances in value tree with their map form.
func toWire(x interface{}) interface{} {
	switch x := x.(type) {
	case []interface{}:
		l := make([]interface{}, len(x))
		for i, item := range x {
			l[i] = toWire(item)
		}
		return l

	case map[string]interface{}:
		m := make(map[string]interface{}, len(x))
		for k, item := range x {
			m[k] = toWire(item)
		}
		return m

	case *marshal.Instance:
		return map[string]interface{}{
			keyClass: x.Class,
			keyState: toWire(x.State),
		}
	}
	return x
}

type unmarshaller struct {
	cfg *marshal.Config
	rd  *msgp.Reader
}

func (u *unmarshaller) Start(r io.Reader) {
	u.rd = msgp.NewReader(r)
}

func (u *unmarshaller) ReadObject(ptr interface{}) error {
	// clean end of stream?
	if _, err := u.rd.R.Peek(1); err == io.EOF {
		return io.EOF
	}

	// decoded []byte may alias data - don't reuse it
	data, err := u.rd.ReadBytes(nil)
	if err != nil {
		return fmt.Errorf("msgpack: %s", xio.NoEOF(err))
	}

	var xw interface{}
	err = msgpack.Decode(data, &xw)
	if err != nil {
		return fmt.Errorf("msgpack: decode: %s", err)
	}
	x, err := fromWire(xw)
	if err != nil {
		return err
	}
	v, err := marshal.Resolve(u.cfg, x)
	if err != nil {
		return err
	}
	return marshal.Assign(ptr, v)
}

func (u *unmarshaller) Finish() error {
	u.rd = nil
	return nil
}

// fromWire converts decoded MessagePack value into value tree.
func fromWire(xw interface{}) (interface{}, error) {
	switch xw := xw.(type) {
	case nil, bool, int64, float64, string, []byte:
		return xw, nil

	case []interface{}:
		l := make([]interface{}, len(xw))
		for i, item := range xw {
			x, err := fromWire(item)
			if err != nil {
				return nil, err
			}
			l[i] = x
		}
		return l, nil

	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(xw))
		for k, item := range xw {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("msgpack: map key: got %T; expected string", k)
			}
			m[key] = item
		}
		return fromWire(m)

	case map[string]interface{}:
		m := make(map[string]interface{}, len(xw))
		for k, item := range xw {
			x, err := fromWire(item)
			if err != nil {
				return nil, err
			}
			m[k] = x
		}
		class, ok := m[keyClass].(string)
		if !ok {
			return m, nil
		}
		inst := &marshal.Instance{Class: class}
		switch state := m[keyState].(type) {
		case nil:
		case []interface{}:
			inst.State = state
		default:
			return nil, fmt.Errorf("msgpack: %s: state: got %T; expected array", class, state)
		}
		return inst, nil
	}

	// the decoder uses the narrowest Go type for numbers, and unsigned ones
	// for every non-negative integer. Integers are int64 as with pickle
	// unless they do not fit.
	rv := reflect.ValueOf(xw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return u, nil
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}

	return nil, fmt.Errorf("msgpack: cannot decode %T", xw)
}
