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
)

func TestLifecycle(t *testing.T) {
	var l lifecycle
	require.NoError(t, l.enter())
	require.NoError(t, l.enter())
	require.Equal(t, 2, l.active())
	require.False(t, l.exit())

	require.True(t, l.close())
	require.True(t, l.closed())
	require.False(t, l.close())
	require.Equal(t, ErrContextClosed, l.enter())
	require.False(t, l.tryEnter())

	require.False(t, l.exit()) // closing itself
	require.True(t, l.exit())  // last operation
	require.Equal(t, 0, l.active())

	require.Panics(t, func() { l.exit() })

	// close with nothing active
	var l2 lifecycle
	require.True(t, l2.close())
	require.True(t, l2.exit())
}

// the last exit after close is observed exactly once.
func TestLifecycleConcurrent(t *testing.T) {
	for i := 0; i < 100; i++ {
		var l lifecycle
		var nlast atomic.Int32
		var nentered atomic.Int32

		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					if !l.tryEnter() {
						return
					}
					nentered.Add(1)
					if l.exit() {
						nlast.Add(1)
					}
				}
			}()
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.close() && l.exit() {
				nlast.Add(1)
			}
			if l.close() {
				t.Error("second close succeeded")
			}
		}()
		wg.Wait()

		require.Equal(t, int32(1), nlast.Load(), "#%d (entered %d)", i, nentered.Load())
		require.Equal(t, 0, l.active())
	}
}
