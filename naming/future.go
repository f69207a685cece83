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
// single-waiter future for request results

import (
	"context"
	"sync/atomic"

	"github.com/dmlloyd/jboss-remote-jndi/remoting"
)

// outcome is terminal state of a future.
type outcome struct {
	msg remoting.InboundMessage // reply, positioned at status byte
	err error                   // local failure or cancellation
}

var (
	waiting  = &outcome{} // pending, and a waiter is blocked in await
	consumed = &outcome{} // outcome was taken by consume
)

// future is one-shot cell that delivers outcome of a request to the caller
// that issued it.
//
// Any number of goroutines may try to complete the future; the first one
// wins and the rest are rejected. Only one goroutine may wait on it.
type future struct {
	state atomic.Pointer[outcome] // nil while pending
	wake  chan struct{}

	// whether the request still holds its client permit
	inflight atomic.Bool
}

func newFuture() *future {
	return &future{wake: make(chan struct{}, 1)}
}

// complete sets outcome of f unless f was already completed.
func (f *future) complete(o *outcome) bool {
	for {
		switch s := f.state.Load(); s {
		case nil:
			if f.state.CompareAndSwap(nil, o) {
				return true
			}
		case waiting:
			if f.state.CompareAndSwap(waiting, o) {
				f.wake <- struct{}{}
				return true
			}
		default:
			return false
		}
	}
}

// setResult delivers reply to f.
//
// If it returns false, msg was not taken and the caller remains responsible
// for closing it.
func (f *future) setResult(msg remoting.InboundMessage) bool {
	return f.complete(&outcome{msg: msg})
}

func (f *future) setError(err error) bool {
	return f.complete(&outcome{err: err})
}

func (f *future) setCancelled() bool {
	return f.complete(&outcome{err: ErrCancelled})
}

// await waits for f to be completed.
//
// It returns false only if ctx was done before f was completed. In that case
// f is left pending and await may be called again.
func (f *future) await(ctx context.Context) bool {
	if !f.state.CompareAndSwap(nil, waiting) {
		if f.state.Load() == waiting {
			panic("naming: future: waiter exists")
		}
		return true
	}

	select {
	case <-f.wake:
		return true

	case <-ctx.Done():
		if f.state.CompareAndSwap(waiting, nil) {
			return false
		}
		// outcome was set simultaneously with ctx cancel
		<-f.wake
		return true
	}
}

// consume takes outcome of completed future.
func (f *future) consume() *outcome {
	o := f.state.Swap(consumed)
	switch o {
	case nil, waiting:
		panic("naming: future: consume before completion")
	case consumed:
		panic("naming: future: consumed twice")
	}
	return o
}
