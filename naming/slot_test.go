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
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmlloyd/jboss-remote-jndi/naming/proto"
)

func TestRequestTabCapacity(t *testing.T) {
	tab := newRequestTab()

	seen := map[uint8]bool{}
	for i := 0; i < proto.MaxRequests; i++ {
		id, ok := tab.allocate()
		require.True(t, ok)
		require.Less(t, int(id), proto.MaxRequests)
		require.False(t, seen[id], "id %d allocated twice", id)
		seen[id] = true
		tab.bind(id, newFuture())
	}
	require.Equal(t, 0, tab.nfree())

	_, ok := tab.allocate()
	require.False(t, ok)

	// releasing one id makes exactly one more allocation possible
	f := tab.release(17)
	require.NotNil(t, f)
	id, ok := tab.allocate()
	require.True(t, ok)
	require.Equal(t, uint8(17), id)
	_, ok = tab.allocate()
	require.False(t, ok)

	// 17 is allocated but not bound: release is noop
	require.Nil(t, tab.release(17))
	require.Equal(t, 0, tab.nfree())

	f2 := newFuture()
	tab.bind(17, f2)
	require.False(t, tab.releaseFuture(17, f))
	require.True(t, tab.releaseFuture(17, f2))
	require.Equal(t, 1, tab.nfree())

	// double release
	require.Nil(t, tab.release(17))
	require.Equal(t, 1, tab.nfree())
}

func TestRequestTabConcurrent(t *testing.T) {
	tab := newRequestTab()
	var owner [proto.MaxRequests]atomic.Int32

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				id, ok := tab.allocate()
				if !ok {
					continue
				}
				if owner[id].Add(1) != 1 {
					t.Errorf("id %d is used twice", id)
				}
				f := newFuture()
				tab.bind(id, f)
				owner[id].Add(-1)
				if tab.release(id) != f {
					t.Errorf("id %d: released wrong future", id)
				}
			}
		}()
	}
	wg.Wait()
	require.Equal(t, proto.MaxRequests, tab.nfree())
}
