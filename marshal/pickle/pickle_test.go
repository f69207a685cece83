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

package pickle

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"testing"

	pickle "github.com/kisielk/og-rek"
	"github.com/stretchr/testify/require"

	"github.com/dmlloyd/jboss-remote-jndi/marshal"
)

type pair struct {
	A string
	B int
}

func (p *pair) ClassName() string          { return "test.module.Pair" }
func (p *pair) ObjectState() []interface{} { return []interface{}{p.A, p.B} }

func testConfig() *marshal.Config {
	classTab := marshal.NewClassTable()
	classTab.Register("test.module.Pair", func(state []interface{}) (interface{}, error) {
		p := &pair{}
		err := marshal.Assign(&p.A, state[0])
		if err == nil {
			err = marshal.Assign(&p.B, state[1])
		}
		return p, err
	})
	return &marshal.Config{ClassTable: classTab}
}

func TestPickleRoundTrip(t *testing.T) {
	cfg := testConfig()
	f, err := marshal.LookupFactory("pickle")
	require.NoError(t, err)

	m, err := f.CreateMarshaller(cfg)
	require.NoError(t, err)
	buf := &bytes.Buffer{}
	m.Start(buf)
	for _, v := range []interface{}{
		"hello",
		nil,
		uint64(math.MaxUint64),
		&pair{"x", 7},
		[]interface{}{int64(-1), true, 1.5, []byte("raw")},
		map[string]interface{}{"k": &marshal.RemoteCause{Class: "a.b.NotFound", Message: "z"}},
	} {
		require.NoError(t, m.WriteObject(v))
	}
	require.NoError(t, m.Finish())

	u, err := f.CreateUnmarshaller(cfg)
	require.NoError(t, err)
	u.Start(bytes.NewReader(buf.Bytes()))

	var s string
	require.NoError(t, u.ReadObject(&s))
	require.Equal(t, "hello", s)

	var x interface{} = "not nil"
	require.NoError(t, u.ReadObject(&x))
	require.Nil(t, x)

	var big uint64
	require.NoError(t, u.ReadObject(&big))
	require.Equal(t, uint64(math.MaxUint64), big)

	var p *pair
	require.NoError(t, u.ReadObject(&p))
	require.Equal(t, &pair{"x", 7}, p)

	require.NoError(t, u.ReadObject(&x))
	require.Equal(t, []interface{}{int64(-1), true, 1.5, "raw"}, x)

	var mc map[string]*marshal.RemoteCause
	require.NoError(t, u.ReadObject(&mc))
	require.Equal(t, map[string]*marshal.RemoteCause{"k": {Class: "a.b.NotFound", Message: "z"}}, mc)

	require.Equal(t, io.EOF, u.ReadObject(&x))
	require.NoError(t, u.Finish())
}

// exceptions pickled by Python-side peers are read as RemoteCause.
func TestPickleException(t *testing.T) {
	obj := &bytes.Buffer{}
	err := pickle.NewEncoder(obj).Encode(pickle.Call{
		Callable: pickle.Class{Module: "javax.naming", Name: "NameNotFoundException"},
		Args:     pickle.Tuple{"a/b"},
	})
	require.NoError(t, err)

	var hdr [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(hdr[:], uint64(obj.Len()))
	data := append(hdr[:n:n], obj.Bytes()...)

	u, err := Factory.CreateUnmarshaller(&marshal.Config{})
	require.NoError(t, err)
	u.Start(bytes.NewReader(data))

	var cause marshal.RemoteCause
	require.NoError(t, u.ReadObject(&cause))
	require.Equal(t, marshal.RemoteCause{Class: "javax.naming.NameNotFoundException", Message: "a/b"}, cause)

	// truncated object
	u.Start(bytes.NewReader(data[:len(data)-1]))
	require.Equal(t, io.ErrUnexpectedEOF, u.ReadObject(&cause))

	// garbage
	u.Start(bytes.NewReader([]byte{3, 'x', 'y', 'z'}))
	require.Error(t, u.ReadObject(&cause))
}
