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

package msgpack

import (
	"bytes"
	"io"
	"math"
	"testing"

	"github.com/shamaton/msgpack"
	"github.com/stretchr/testify/require"
	"github.com/tinylib/msgp/msgp"

	"github.com/dmlloyd/jboss-remote-jndi/marshal"
)

type pair struct {
	A string
	B int
}

func (p *pair) ClassName() string          { return "test.module.Pair" }
func (p *pair) ObjectState() []interface{} { return []interface{}{p.A, p.B} }

func TestMsgpackRoundTrip(t *testing.T) {
	classTab := marshal.NewClassTable()
	classTab.Register("test.module.Pair", func(state []interface{}) (interface{}, error) {
		p := &pair{}
		err := marshal.Assign(&p.A, state[0])
		if err == nil {
			err = marshal.Assign(&p.B, state[1])
		}
		return p, err
	})
	cfg := &marshal.Config{ClassTable: classTab}

	f, err := marshal.LookupFactory("msgpack")
	require.NoError(t, err)

	m, err := f.CreateMarshaller(cfg)
	require.NoError(t, err)
	buf := &bytes.Buffer{}
	m.Start(buf)
	for _, v := range []interface{}{
		"hello",
		nil,
		&pair{"x", 7},
		[]interface{}{int64(-1), true, []byte("raw")},
		map[string]interface{}{"k": &marshal.RemoteCause{Class: "a.b.NotFound", Message: "z"}},
		[]interface{}{43, int64(0), uint8(200), uint64(math.MaxUint64), int64(math.MinInt64)},
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

	var p *pair
	require.NoError(t, u.ReadObject(&p))
	require.Equal(t, &pair{"x", 7}, p)

	var l []interface{}
	require.NoError(t, u.ReadObject(&l))
	require.Len(t, l, 3)
	var i int
	require.NoError(t, marshal.Assign(&i, l[0]))
	require.Equal(t, -1, i)
	require.Equal(t, true, l[1])
	require.Equal(t, []byte("raw"), l[2])

	var mc map[string]*marshal.RemoteCause
	require.NoError(t, u.ReadObject(&mc))
	require.Equal(t, map[string]*marshal.RemoteCause{"k": {Class: "a.b.NotFound", Message: "z"}}, mc)

	// integers decode as int64 the same way as with pickle
	var nums []interface{}
	require.NoError(t, u.ReadObject(&nums))
	require.Equal(t, []interface{}{int64(43), int64(0), int64(200), uint64(math.MaxUint64), int64(math.MinInt64)}, nums)

	require.Equal(t, io.EOF, u.ReadObject(&x))
	require.NoError(t, u.Finish())
}

func TestMsgpackBadStream(t *testing.T) {
	u, err := Factory.CreateUnmarshaller(&marshal.Config{})
	require.NoError(t, err)
	var x interface{}

	// not a bin
	buf := &bytes.Buffer{}
	w := msgp.NewWriter(buf)
	require.NoError(t, w.WriteString("not bin"))
	require.NoError(t, w.Flush())
	u.Start(buf)
	require.Error(t, u.ReadObject(&x))

	// instance with invalid state
	data, err := msgpack.Encode(map[string]interface{}{keyClass: "a.B", keyState: "zzz"})
	require.NoError(t, err)
	buf.Reset()
	w = msgp.NewWriter(buf)
	require.NoError(t, w.WriteBytes(data))
	require.NoError(t, w.Flush())
	raw := append([]byte(nil), buf.Bytes()...)
	u.Start(buf)
	require.Error(t, u.ReadObject(&x))

	// truncated
	u.Start(bytes.NewReader(raw[:len(raw)-2]))
	require.Error(t, u.ReadObject(&x))
}
