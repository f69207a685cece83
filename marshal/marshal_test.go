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

package marshal

import (
	"reflect"
	"testing"

	"github.com/kylelemons/godebug/pretty"
	"github.com/stretchr/testify/require"
)

// point is test Object.
type point struct {
	X, Y int
}

func (p *point) ClassName() string          { return "test.Point" }
func (p *point) ObjectState() []interface{} { return []interface{}{p.X, p.Y} }

func newPoint(state []interface{}) (interface{}, error) {
	p := &point{}
	err := Assign(&p.X, state[0])
	if err == nil {
		err = Assign(&p.Y, state[1])
	}
	return p, err
}

func TestFlatten(t *testing.T) {
	type myint int16

	testv := []struct {
		in   interface{}
		tree interface{}
	}{
		{nil, nil},
		{(*point)(nil), nil},
		{true, true},
		{1, int64(1)},
		{myint(-3), int64(-3)},
		{uint32(7), uint64(7)},
		{float32(0.5), float64(0.5)},
		{"abc", "abc"},
		{[]byte("xyz"), []byte("xyz")},
		{[]string{"a", "b"}, []interface{}{"a", "b"}},
		{map[string]int{"k": 1}, map[string]interface{}{"k": int64(1)}},
		{&point{1, 2}, &Instance{"test.Point", []interface{}{int64(1), int64(2)}}},
		{[]interface{}{"q", &point{3, 4}},
			[]interface{}{"q", &Instance{"test.Point", []interface{}{int64(3), int64(4)}}}},
		{&RemoteCause{"a.b.Error", "oops"}, &Instance{"a.b.Error", []interface{}{"oops"}}},
	}

	for _, tt := range testv {
		tree, err := Flatten(tt.in)
		if err != nil {
			t.Errorf("flatten %#v: %s", tt.in, err)
			continue
		}
		if !reflect.DeepEqual(tree, tt.tree) {
			t.Errorf("flatten %#v:\n%s", tt.in, pretty.Compare(tt.tree, tree))
		}
	}

	for _, in := range []interface{}{make(chan int), map[int]string{1: "a"}, func() {}} {
		_, err := Flatten(in)
		if err == nil {
			t.Errorf("flatten %T: no error", in)
		}
	}
}

func TestResolve(t *testing.T) {
	classTab := NewClassTable()
	classTab.Register("test.Point", newPoint)
	require.Panics(t, func() { classTab.Register("test.Point", newPoint) })

	tree := []interface{}{
		&Instance{"test.Point", []interface{}{int64(1), int64(2)}},
		&Instance{"test.Other", []interface{}{
			&Instance{"test.Point", []interface{}{int64(3), int64(4)}},
		}},
		map[string]interface{}{"p": &Instance{"test.Point", []interface{}{int64(5), int64(6)}}},
	}

	v, err := Resolve(&Config{ClassTable: classTab}, tree)
	require.NoError(t, err)
	require.Equal(t, []interface{}{
		&point{1, 2},
		&Instance{"test.Other", []interface{}{&point{3, 4}}},
		map[string]interface{}{"p": &point{5, 6}},
	}, v)

	// without class table instances are kept as is
	v, err = Resolve(nil, tree[0])
	require.NoError(t, err)
	require.Equal(t, tree[0], v)

	// constructor error
	_, err = Resolve(&Config{ClassTable: classTab}, &Instance{"test.Point", []interface{}{"x", "y"}})
	require.Error(t, err)
}

func TestAssign(t *testing.T) {
	var i8 int8
	require.NoError(t, Assign(&i8, int64(-5)))
	require.Equal(t, int8(-5), i8)
	require.Error(t, Assign(&i8, int64(300)))

	var u uint
	require.NoError(t, Assign(&u, int64(5)))
	require.Equal(t, uint(5), u)
	require.Error(t, Assign(&u, int64(-1)))

	var i64 int64
	require.Error(t, Assign(&i64, uint64(1<<63)))

	var f float32
	require.NoError(t, Assign(&f, int64(2)))
	require.Equal(t, float32(2), f)

	var s string
	require.NoError(t, Assign(&s, []byte("hello")))
	require.Equal(t, "hello", s)
	require.Error(t, Assign(&s, int64(1)))

	var b []byte
	require.NoError(t, Assign(&b, "bytes"))
	require.Equal(t, []byte("bytes"), b)

	var sv []string
	require.NoError(t, Assign(&sv, []interface{}{"a", []byte("b")}))
	require.Equal(t, []string{"a", "b"}, sv)

	var m map[string]int
	require.NoError(t, Assign(&m, map[string]interface{}{"x": int64(1)}))
	require.Equal(t, map[string]int{"x": 1}, m)

	var x interface{}
	require.NoError(t, Assign(&x, &point{1, 2}))
	require.Equal(t, &point{1, 2}, x)

	p := &point{}
	require.NoError(t, Assign(&p, nil))
	require.Nil(t, p)

	require.Error(t, Assign(x, 1))
	require.Error(t, Assign((*int)(nil), 1))
}

func TestRemoteCause(t *testing.T) {
	var c *RemoteCause
	require.NoError(t, Assign(&c, &Instance{"javax.naming.NameNotFoundException", []interface{}{"x/y"}}))
	require.Equal(t, &RemoteCause{"javax.naming.NameNotFoundException", "x/y"}, c)
	require.Equal(t, "javax.naming.NameNotFoundException: x/y", c.Error())

	var c2 RemoteCause
	require.NoError(t, Assign(&c2, &Instance{Class: "java.lang.IllegalStateException"}))
	require.Equal(t, "java.lang.IllegalStateException", c2.Error())

	require.NoError(t, Assign(&c2, "just message"))
	require.Equal(t, RemoteCause{Message: "just message"}, c2)

	require.Error(t, Assign(&c2, int64(1)))
}

type nopFactory struct{ scheme string }

func (f nopFactory) Scheme() string                                 { return f.scheme }
func (f nopFactory) CreateMarshaller(*Config) (Marshaller, error)     { return nil, nil }
func (f nopFactory) CreateUnmarshaller(*Config) (Unmarshaller, error) { return nil, nil }

func TestRegistry(t *testing.T) {
	f := nopFactory{"test-registry"}
	RegisterFactory(f)
	require.Panics(t, func() { RegisterFactory(f) })

	f2, err := LookupFactory("test-registry")
	require.NoError(t, err)
	require.Equal(t, f, f2)

	_, err = LookupFactory("no-such-scheme")
	require.Error(t, err)
}
