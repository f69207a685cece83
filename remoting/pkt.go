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

package remoting
// packets and packet buffers management

import (
	"encoding/binary"
	"sync"
)

// packet = {size(be32), data}
const pktHeaderLen = 4

// MaxMessageSize is the maximum size of one message payload.
const MaxMessageSize = 16 << 20

// pktBuf is buffer with packet data.
//
// alloc via allocPkb and free via pkb.Free.
// similar to skb in Linux.
type pktBuf struct {
	data []byte
}

// fixup fixes packet length in header according to current packet data.
func (pkb *pktBuf) fixup() {
	binary.BigEndian.PutUint32(pkb.data, uint32(len(pkb.data)-pktHeaderLen))
}

// Payload returns payload part of buffer data.
func (pkb *pktBuf) Payload() []byte {
	return pkb.data[pktHeaderLen:]
}

var pkbPool = sync.Pool{New: func() interface{} {
	return &pktBuf{make([]byte, 0, 4096)}
}}

// allocPkb allocates pktBuf with room for header and empty payload.
func allocPkb() *pktBuf {
	pkb := pkbPool.Get().(*pktBuf)
	pkb.data = append(pkb.data[:0], 0, 0, 0, 0) // room for header (= pktHeaderLen)
	return pkb
}

// Free marks pkb as no longer needed.
func (pkb *pktBuf) Free() {
	pkbPool.Put(pkb)
}

func (pkb *pktBuf) Write(p []byte) (int, error) {
	pkb.data = append(pkb.data, p...)
	return len(p), nil
}

func (pkb *pktBuf) WriteByte(b byte) error {
	pkb.data = append(pkb.data, b)
	return nil
}
