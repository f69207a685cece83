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
// table of in-flight requests

import (
	"math/bits"
	"sync/atomic"

	"github.com/dmlloyd/jboss-remote-jndi/naming/proto"
)

// requestTab maps request ids to futures of in-flight requests.
//
// An id is either free, or allocated. Allocated id has a future bound to it
// from the time the request is about to be sent and until its reply is
// received or the request is failed.
//
// An id becomes free again only after its future was unbound, so an
// allocator can never observe stale future of previous request.
type requestTab struct {
	free atomic.Uint64 // bit i is set <=> id i is free
	futv [proto.MaxRequests]atomic.Pointer[future]
}

func newRequestTab() *requestTab {
	t := &requestTab{}
	t.free.Store(^uint64(0))
	return t
}

// allocate reserves free id.
//
// ok=false is returned if all ids are in use.
func (t *requestTab) allocate() (id uint8, ok bool) {
	for {
		free := t.free.Load()
		if free == 0 {
			return 0, false
		}
		i := bits.TrailingZeros64(free)
		if t.free.CompareAndSwap(free, free&^(1<<i)) {
			return uint8(i), true
		}
	}
}

// bind associates future with allocated id.
func (t *requestTab) bind(id uint8, f *future) {
	t.futv[id].Store(f)
}

// release unbinds future from id and frees the id.
//
// It returns unbound future, or nil if there was no future bound to id. In
// the latter case id is left as is: it is either already free, or it is
// allocated but not yet bound, and it is its allocator who frees it.
func (t *requestTab) release(id uint8) *future {
	f := t.futv[id].Swap(nil)
	if f != nil {
		t.setFree(id)
	}
	return f
}

// releaseFuture is like release but frees id only if it is still bound to f.
func (t *requestTab) releaseFuture(id uint8, f *future) bool {
	if !t.futv[id].CompareAndSwap(f, nil) {
		return false
	}
	t.setFree(id)
	return true
}

func (t *requestTab) setFree(id uint8) {
	for {
		free := t.free.Load()
		if free&(1<<id) != 0 {
			panic("naming: request id freed twice")
		}
		if t.free.CompareAndSwap(free, free|1<<id) {
			return
		}
	}
}

// nfree returns number of free ids.
func (t *requestTab) nfree() int {
	return bits.OnesCount64(t.free.Load())
}
