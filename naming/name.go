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

package naming

import (
	"fmt"
	"strings"

	"github.com/dmlloyd/jboss-remote-jndi/marshal"
)

// Name is composite name: a sequence of components.
//
// Its string form is components joined with "/", e.g. "java:global/app/ejb".
type Name []string

const nameClass = "javax.naming.CompositeName"

// ParseName parses string form of a name.
//
// Empty string is parsed as empty name. Empty components are not allowed.
func ParseName(s string) (Name, error) {
	if s == "" {
		return Name{}, nil
	}

	n := Name(strings.Split(s, "/"))
	offset := 0
	for _, comp := range n {
		if comp == "" {
			return nil, &InvalidNameError{Name: s, Offset: offset}
		}
		offset += len(comp) + 1
	}
	return n, nil
}

func (n Name) String() string {
	return strings.Join(n, "/")
}

// IsEmpty returns whether name has no components.
func (n Name) IsEmpty() bool {
	return len(n) == 0
}

// Append returns new name made of n followed by components of suffix.
func (n Name) Append(suffix Name) Name {
	name := make(Name, 0, len(n)+len(suffix))
	name = append(name, n...)
	return append(name, suffix...)
}

var _ marshal.Object = Name(nil)
var _ marshal.Assigner = (*Name)(nil)

func (n Name) ClassName() string { return nameClass }

func (n Name) ObjectState() []interface{} {
	state := make([]interface{}, len(n))
	for i, comp := range n {
		state[i] = comp
	}
	return state
}

// AssignFrom implements marshal.Assigner.
//
// A name can be read from its string form, from a sequence of components,
// or from an instance of the name class.
func (n *Name) AssignFrom(v interface{}) error {
	switch v := v.(type) {
	case nil:
		*n = nil
		return nil

	case Name:
		*n = append(Name{}, v...)
		return nil

	case string:
		name, err := ParseName(v)
		if err != nil {
			return err
		}
		*n = name
		return nil

	case []interface{}:
		name := make(Name, len(v))
		for i, comp := range v {
			err := marshal.Assign(&name[i], comp)
			if err != nil {
				return err
			}
		}
		*n = name
		return nil

	case *marshal.Instance:
		if v.Class == nameClass {
			return n.AssignFrom(v.State)
		}
	}

	return fmt.Errorf("naming: cannot read name from %T", v)
}

func newName(state []interface{}) (interface{}, error) {
	var n Name
	err := n.AssignFrom(state)
	if err != nil {
		return nil, err
	}
	return n, nil
}
