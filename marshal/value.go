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
// conversion between Go values and the flat value tree

import (
	"fmt"
	"reflect"
)

// Assigner is implemented by types that want to control how a decoded value
// is stored into them.
type Assigner interface {
	AssignFrom(v interface{}) error
}

// Flatten converts Go value v into value tree.
//
// Objects become *Instance with flattened state, integers become int64 or
// uint64, floats float64, slices and arrays []interface{} (except []byte),
// and maps with string keys map[string]interface{}. Pointers are followed.
func Flatten(v interface{}) (interface{}, error) {
	return flatten(reflect.ValueOf(v))
}

var objectType = reflect.TypeOf((*Object)(nil)).Elem()

func flatten(v reflect.Value) (interface{}, error) {
	if !v.IsValid() {
		return nil, nil
	}
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
	}

	if v.Type().Implements(objectType) {
		obj := v.Interface().(Object)
		state := obj.ObjectState()
		inst := &Instance{Class: obj.ClassName(), State: make([]interface{}, len(state))}
		for i, arg := range state {
			x, err := flatten(reflect.ValueOf(arg))
			if err != nil {
				return nil, err
			}
			inst.State[i] = x
		}
		return inst, nil
	}

	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return flatten(v.Elem())

	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.String:
		return v.String(), nil

	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, v.Len())
			reflect.Copy(reflect.ValueOf(b), v)
			return b, nil
		}
		l := make([]interface{}, v.Len())
		for i := range l {
			x, err := flatten(v.Index(i))
			if err != nil {
				return nil, err
			}
			l[i] = x
		}
		return l, nil

	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			break
		}
		m := make(map[string]interface{}, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			x, err := flatten(iter.Value())
			if err != nil {
				return nil, err
			}
			m[iter.Key().String()] = x
		}
		return m, nil
	}

	return nil, fmt.Errorf("marshal: cannot marshal %s", v.Type())
}

// Resolve converts value tree back into Go values.
//
// Instances of classes registered in cfg.ClassTable are constructed; other
// instances are left as *Instance, with their state resolved.
func Resolve(cfg *Config, x interface{}) (interface{}, error) {
	var classTab *ClassTable
	if cfg != nil {
		classTab = cfg.ClassTable
	}
	return resolve(classTab, x)
}

func resolve(classTab *ClassTable, x interface{}) (_ interface{}, err error) {
	switch x := x.(type) {
	case *Instance:
		inst := &Instance{Class: x.Class, State: make([]interface{}, len(x.State))}
		for i, arg := range x.State {
			inst.State[i], err = resolve(classTab, arg)
			if err != nil {
				return nil, err
			}
		}
		ctor := classTab.Lookup(inst.Class)
		if ctor == nil {
			return inst, nil
		}
		v, err := ctor(inst.State)
		if err != nil {
			return nil, fmt.Errorf("marshal: %s: %s", inst.Class, err)
		}
		return v, nil

	case []interface{}:
		l := make([]interface{}, len(x))
		for i, item := range x {
			l[i], err = resolve(classTab, item)
			if err != nil {
				return nil, err
			}
		}
		return l, nil

	case map[string]interface{}:
		m := make(map[string]interface{}, len(x))
		for k, item := range x {
			m[k], err = resolve(classTab, item)
			if err != nil {
				return nil, err
			}
		}
		return m, nil
	}

	return x, nil
}

// Assign stores v into *dst.
//
// dst must be non-nil pointer. Values are stored if they are assignable
// directly, or via Assigner, or after conversion: numbers are converted
// between each other as long as the value fits, string and []byte are
// converted between each other, and []interface{} and
// map[string]interface{} are stored into slices and maps of other element
// types item by item.
func Assign(dst interface{}, v interface{}) error {
	rdst := reflect.ValueOf(dst)
	if rdst.Kind() != reflect.Ptr || rdst.IsNil() {
		return fmt.Errorf("marshal: assign: destination must be non-nil pointer; got %T", dst)
	}
	return assign(rdst.Elem(), v)
}

var assignerType = reflect.TypeOf((*Assigner)(nil)).Elem()

func assign(dst reflect.Value, v interface{}) error {
	if dst.CanAddr() && dst.Addr().Type().Implements(assignerType) {
		return dst.Addr().Interface().(Assigner).AssignFrom(v)
	}

	if v == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(dst.Type()) {
		dst.Set(rv)
		return nil
	}

	bad := func() error {
		return fmt.Errorf("marshal: cannot assign %T to %s", v, dst.Type())
	}

	switch dst.Kind() {
	case reflect.Ptr:
		p := reflect.New(dst.Type().Elem())
		err := assign(p.Elem(), v)
		if err != nil {
			return err
		}
		dst.Set(p)
		return nil

	case reflect.Bool:
		if rv.Kind() == reflect.Bool {
			dst.SetBool(rv.Bool())
			return nil
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var i int64
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			i = rv.Int()
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			u := rv.Uint()
			if int64(u) < 0 {
				return fmt.Errorf("marshal: %d overflows %s", u, dst.Type())
			}
			i = int64(u)
		default:
			return bad()
		}
		if dst.OverflowInt(i) {
			return fmt.Errorf("marshal: %d overflows %s", i, dst.Type())
		}
		dst.SetInt(i)
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		var u uint64
		switch rv.Kind() {
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			u = rv.Uint()
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			i := rv.Int()
			if i < 0 {
				return fmt.Errorf("marshal: %d overflows %s", i, dst.Type())
			}
			u = uint64(i)
		default:
			return bad()
		}
		if dst.OverflowUint(u) {
			return fmt.Errorf("marshal: %d overflows %s", u, dst.Type())
		}
		dst.SetUint(u)
		return nil

	case reflect.Float32, reflect.Float64:
		switch rv.Kind() {
		case reflect.Float32, reflect.Float64:
			dst.SetFloat(rv.Float())
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			dst.SetFloat(float64(rv.Int()))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			dst.SetFloat(float64(rv.Uint()))
		default:
			return bad()
		}
		return nil

	case reflect.String:
		switch v := v.(type) {
		case string:
			dst.SetString(v)
			return nil
		case []byte:
			dst.SetString(string(v))
			return nil
		}

	case reflect.Slice:
		switch v := v.(type) {
		case string:
			if dst.Type().Elem().Kind() == reflect.Uint8 {
				dst.SetBytes([]byte(v))
				return nil
			}
		case []interface{}:
			l := reflect.MakeSlice(dst.Type(), len(v), len(v))
			for i, item := range v {
				err := assign(l.Index(i), item)
				if err != nil {
					return err
				}
			}
			dst.Set(l)
			return nil
		}

	case reflect.Map:
		if m, ok := v.(map[string]interface{}); ok && dst.Type().Key().Kind() == reflect.String {
			dm := reflect.MakeMapWithSize(dst.Type(), len(m))
			for k, item := range m {
				ditem := reflect.New(dst.Type().Elem()).Elem()
				err := assign(ditem, item)
				if err != nil {
					return err
				}
				dm.SetMapIndex(reflect.ValueOf(k).Convert(dst.Type().Key()), ditem)
			}
			dst.Set(dm)
			return nil
		}
	}

	return bad()
}
