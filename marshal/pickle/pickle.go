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

// Package pickle provides marshalling of objects as Python pickles.
//
// Every object is written as
//
//	[len: uvarint][pickle]
//
// with the pickle produced by package ogórek (github.com/kisielk/og-rek).
// Class instances are pickled the way Python pickles objects reconstructed
// by a call: as call of class global with state tuple as arguments.
//
// The factory is registered under scheme "pickle".
package pickle

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/big"
	"strings"

	pickle "github.com/kisielk/og-rek"

	"github.com/dmlloyd/jboss-remote-jndi/internal/xio"
	"github.com/dmlloyd/jboss-remote-jndi/marshal"
)

// maxObjectLen limits size of one pickled object.
const maxObjectLen = 16 << 20

type factory struct{}

// Factory is the pickle marshalling factory.
var Factory marshal.Factory = factory{}

func init() {
	marshal.RegisterFactory(Factory)
}

func (factory) Scheme() string { return "pickle" }

func (factory) CreateMarshaller(cfg *marshal.Config) (marshal.Marshaller, error) {
	return &marshaller{cfg: cfg}, nil
}

func (factory) CreateUnmarshaller(cfg *marshal.Config) (marshal.Unmarshaller, error) {
	return &unmarshaller{cfg: cfg}, nil
}

// ---- writing ----

type marshaller struct {
	cfg *marshal.Config
	w   io.Writer
	buf bytes.Buffer
}

func (m *marshaller) Start(w io.Writer) {
	m.w = w
}

func (m *marshaller) WriteObject(v interface{}) error {
	x, err := marshal.Flatten(v)
	if err != nil {
		return err
	}
	x, err = toPickle(x)
	if err != nil {
		return err
	}

	m.buf.Reset()
	err = pickle.NewEncoder(&m.buf).Encode(x)
	if err != nil {
		return fmt.Errorf("pickle: encode: %s", err)
	}

	var hdr [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(hdr[:], uint64(m.buf.Len()))
	_, err = m.w.Write(hdr[:n])
	if err == nil {
		_, err = m.w.Write(m.buf.Bytes())
	}
	return err
}

func (m *marshaller) Finish() error {
	m.w = nil
	return nil
}

// toPickle converts value tree into objects ogórek knows how to encode.
func toPickle(x interface{}) (interface{}, error) {
	switch x := x.(type) {
	case nil:
		return pickle.None{}, nil

	case bool, int64, float64, string:
		return x, nil

	case uint64:
		if x <= math.MaxInt64 {
			return int64(x), nil
		}
		return new(big.Int).SetUint64(x), nil

	case []byte:
		return string(x), nil

	case []interface{}:
		l := make([]interface{}, len(x))
		for i, item := range x {
			p, err := toPickle(item)
			if err != nil {
				return nil, err
			}
			l[i] = p
		}
		return l, nil

	case map[string]interface{}:
		d := make(map[interface{}]interface{}, len(x))
		for k, item := range x {
			p, err := toPickle(item)
			if err != nil {
				return nil, err
			}
			d[k] = p
		}
		return d, nil

	case *marshal.Instance:
		args := make(pickle.Tuple, len(x.State))
		for i, arg := range x.State {
			p, err := toPickle(arg)
			if err != nil {
				return nil, err
			}
			args[i] = p
		}
		return pickle.Call{Callable: pyclass(x.Class), Args: args}, nil
	}

	return nil, fmt.Errorf("pickle: cannot pickle %T", x)
}

// pyclass splits full class name into module and name.
func pyclass(class string) pickle.Class {
	i := strings.LastIndexByte(class, '.')
	if i < 0 {
		return pickle.Class{Name: class}
	}
	return pickle.Class{Module: class[:i], Name: class[i+1:]}
}

// ---- reading ----

type unmarshaller struct {
	cfg *marshal.Config
	r   io.Reader
	br  io.ByteReader
	buf []byte
}

func (u *unmarshaller) Start(r io.Reader) {
	u.r = r
	if br, ok := r.(io.ByteReader); ok {
		u.br = br
	} else {
		b := bufio.NewReader(r)
		u.r, u.br = b, b
	}
}

func (u *unmarshaller) ReadObject(ptr interface{}) error {
	n, err := binary.ReadUvarint(u.br)
	if err != nil {
		// EOF only if nothing was read; partial uvarint gives ErrUnexpectedEOF
		return err
	}
	if n > maxObjectLen {
		return fmt.Errorf("pickle: object too big (%d bytes)", n)
	}

	if uint64(cap(u.buf)) < n {
		u.buf = make([]byte, n)
	}
	data := u.buf[:n]
	_, err = io.ReadFull(u.r, data)
	if err != nil {
		return xio.NoEOF(err)
	}

	xp, err := pickle.NewDecoder(bytes.NewReader(data)).Decode()
	if err != nil {
		return fmt.Errorf("pickle: decode: %s", err)
	}
	x, err := fromPickle(xp)
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
	u.r, u.br = nil, nil
	return nil
}

// fromPickle converts unpickled object into value tree.
func fromPickle(xp interface{}) (interface{}, error) {
	switch xp := xp.(type) {
	case nil, pickle.None:
		return nil, nil

	case bool, int64, float64, string, []byte:
		return xp, nil

	// ogórek decodes python long as big.Int
	case *big.Int:
		switch {
		case xp.IsInt64():
			return xp.Int64(), nil
		case xp.IsUint64():
			return xp.Uint64(), nil
		}
		return nil, fmt.Errorf("pickle: integer %s out of range", xp)

	case pickle.Tuple:
		return fromPickle([]interface{}(xp))

	case []interface{}:
		l := make([]interface{}, len(xp))
		for i, item := range xp {
			x, err := fromPickle(item)
			if err != nil {
				return nil, err
			}
			l[i] = x
		}
		return l, nil

	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(xp))
		for k, item := range xp {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("pickle: dict key: got %T; expected str", k)
			}
			x, err := fromPickle(item)
			if err != nil {
				return nil, err
			}
			m[key] = x
		}
		return m, nil

	case pickle.Class:
		return &marshal.Instance{Class: classPath(xp)}, nil

	case pickle.Call:
		state, err := fromPickle([]interface{}(xp.Args))
		if err != nil {
			return nil, err
		}
		return &marshal.Instance{Class: classPath(xp.Callable), State: state.([]interface{})}, nil
	}

	return nil, fmt.Errorf("pickle: cannot unpickle %T", xp)
}

func classPath(c pickle.Class) string {
	if c.Module == "" {
		return c.Name
	}
	return c.Module + "." + c.Name
}
