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
	"sync/atomic"
)

// lifecycle counts active operations of an object, and lets the object be
// released only after it was closed and the last active operation finished.
//
// The state is closed flag in the top bit plus number of active operations
// in the rest.
type lifecycle struct {
	state atomic.Uint64
}

const (
	lifeClosed   = 1 << 63
	lifeCountMax = lifeClosed - 1
)

// tryEnter registers new active operation unless l is closed.
func (l *lifecycle) tryEnter() bool {
	for {
		s := l.state.Load()
		if s&lifeClosed != 0 {
			return false
		}
		if s == lifeCountMax {
			panic("naming: lifecycle: too many active operations")
		}
		if l.state.CompareAndSwap(s, s+1) {
			return true
		}
	}
}

// enter is like tryEnter but returns ErrContextClosed if l is closed.
func (l *lifecycle) enter() error {
	if !l.tryEnter() {
		return ErrContextClosed
	}
	return nil
}

// exit unregisters active operation.
//
// It returns true if this was the last operation after l was closed. This
// happens exactly once during the lifetime of l and the caller must then
// release the object.
func (l *lifecycle) exit() bool {
	for {
		s := l.state.Load()
		if s&lifeCountMax == 0 {
			panic("naming: lifecycle: exit without enter")
		}
		if l.state.CompareAndSwap(s, s-1) {
			return s-1 == lifeClosed
		}
	}
}

// close marks l as closed and registers the closing itself as active
// operation. The caller has to exit after performing its closing actions.
//
// It returns false, and does nothing, if l was already closed.
func (l *lifecycle) close() bool {
	for {
		s := l.state.Load()
		if s&lifeClosed != 0 {
			return false
		}
		if l.state.CompareAndSwap(s, (s+1)|lifeClosed) {
			return true
		}
	}
}

func (l *lifecycle) closed() bool {
	return l.state.Load()&lifeClosed != 0
}

// active returns number of active operations.
func (l *lifecycle) active() int {
	return int(l.state.Load() & lifeCountMax)
}
