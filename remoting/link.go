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

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/someonegg/gocontainer/rbuf"
	"lab.nexedi.com/kirr/go123/xbytes"

	"github.com/dmlloyd/jboss-remote-jndi/internal/xio"
)

// Link is a Channel over stream connection.
//
// Every message is transmitted as one packet:
//
//	[size: be32][payload]
//
// Incoming packets are read by one goroutine that hands them over to armed
// receivers one by one. Outgoing packets are written atomically with respect
// to each other.
//
// It is safe to use Link from multiple goroutines simultaneously.
type Link struct {
	conn  net.Conn     // underlying stream
	rxbuf rbuf.RingBuf // buffer for reading from conn

	rxq chan Receiver // armed receiver for next incoming packet

	txMu sync.Mutex // serializes packet writes

	down     chan struct{} // ready when Link is marked as no longer operational
	downOnce sync.Once     // shutdown may be due to both Close and IO error
	errClose error         // error got from conn.Close
	closed   atomic.Bool   // whether Close was called

	serveWg sync.WaitGroup // for serveRecv
}

var _ Channel = (*Link)(nil)

// NewLink makes a new Link from already established connection.
//
// No handshake is performed. Usually Dial or Handshake should be used instead.
func NewLink(conn net.Conn) *Link {
	l := &Link{
		conn: conn,
		rxq:  make(chan Receiver, 1),
		down: make(chan struct{}),
	}
	l.serveWg.Add(1)
	go l.serveRecv()
	return l
}

// ReceiveMessage implements Channel.
//
// It panics if another receiver is already armed.
func (l *Link) ReceiveMessage(r Receiver) {
	select {
	case l.rxq <- r:
	default:
		panic("remoting: ReceiveMessage: receiver is already armed")
	}
}

// WriteMessage implements Channel.
func (l *Link) WriteMessage() (OutboundMessage, error) {
	select {
	case <-l.down:
		return nil, l.err("write", ErrChannelClosed)
	default:
	}
	return &outMsg{link: l, pkb: allocPkb()}, nil
}

// shutdown closes raw connection and marks Link as no longer operational.
func (l *Link) shutdown() {
	l.downOnce.Do(func() {
		close(l.down)
		// this wakes up serveRecv and sendPkt if they are blocked in IO
		l.errClose = l.conn.Close()
	})
}

// Close implements Channel.
//
// Close does not wait for currently running receiver to return, so it is
// safe to call Close from inside a Receiver.
func (l *Link) Close() error {
	l.closed.Store(true)
	l.shutdown()
	return l.err("close", l.errClose)
}

// Wait waits for the receiving side of the link to stop after the link was
// shut down.
func (l *Link) Wait() {
	l.serveWg.Wait()
}

// serveRecv receives packets from the connection and hands them over to
// armed receivers.
func (l *Link) serveRecv() {
	defer l.serveWg.Done()
	for {
		var r Receiver
		select {
		case <-l.down:
			// link is down and noone is going to wait for next
			// message. If a receiver is still armed - let it know.
			select {
			case r = <-l.rxq:
				r.HandleEnd(l)
			default:
			}
			return

		case r = <-l.rxq:
		}

		// receive 1 packet
		pkb, err := l.recvPkt()
		if err != nil {
			// on IO error framing becomes broken - shut the link down
			l.shutdown()

			if err == io.EOF || l.closed.Load() {
				r.HandleEnd(l)
			} else {
				r.HandleError(l, l.err("recv", err))
			}
			return
		}

		r.HandleMessage(l, &inMsg{pkb: pkb})
	}
}

// sendPkt sends raw packet to peer.
//
// pkb is freed upon return.
func (l *Link) sendPkt(pkb *pktBuf) error {
	defer pkb.Free()
	if len(pkb.data)-pktHeaderLen > MaxMessageSize {
		return l.err("send", ErrPktTooBig)
	}
	pkb.fixup()

	l.txMu.Lock()
	defer l.txMu.Unlock()

	select {
	case <-l.down:
		return l.err("send", ErrChannelClosed)
	default:
	}

	// NOTE Write writes data in full, or it is error
	_, err := l.conn.Write(pkb.data)
	if err != nil {
		// packet could be partly on the wire - framing is broken
		l.shutdown()
		return l.err("send", err)
	}
	return nil
}

// recvPkt receives raw packet from peer.
//
// io.EOF is returned only if the peer closed the connection at packet boundary.
func (l *Link) recvPkt() (*pktBuf, error) {
	pkb := allocPkb()
	data := pkb.data[:cap(pkb.data)]

	n := 0 // number of pkt bytes obtained so far

	// next packet could be already prefetched in part by previous read
	if l.rxbuf.Len() > 0 {
		δn, _ := l.rxbuf.Read(data[:pktHeaderLen])
		n += δn
	}

	// first read to read pkt header and hopefully rest of packet in 1 syscall
	if n < pktHeaderLen {
		δn, err := io.ReadAtLeast(l.conn, data[n:], pktHeaderLen-n)
		if err != nil {
			pkb.Free()
			if n+δn != 0 {
				err = xio.NoEOF(err)
			}
			return nil, err
		}
		n += δn
	}

	payloadLen := binary.BigEndian.Uint32(data)
	if payloadLen > MaxMessageSize {
		pkb.Free()
		return nil, ErrPktTooBig
	}
	pktLen := int(pktHeaderLen + payloadLen)

	// resize data if we don't have enough room in it
	data = xbytes.Resize(data, pktLen)
	data = data[:cap(data)]

	// we might have more data already prefetched in rxbuf
	if l.rxbuf.Len() > 0 && n < pktLen {
		δn, _ := l.rxbuf.Read(data[n:pktLen])
		n += δn
	}

	// read rest of pkt data, if we need to
	if n < pktLen {
		δn, err := io.ReadAtLeast(l.conn, data[n:], pktLen-n)
		if err != nil {
			pkb.Free()
			return nil, xio.NoEOF(err)
		}
		n += δn
	}

	// put overread data into rxbuf for next reader
	if n > pktLen {
		l.rxbuf.Write(data[pktLen:n])
	}

	pkb.data = data[:pktLen]
	return pkb, nil
}

// ---- messages ----

// inMsg is InboundMessage received over Link.
type inMsg struct {
	pkb *pktBuf // nil after Close
	off int     // read position in payload
}

func (m *inMsg) Read(p []byte) (int, error) {
	if m.pkb == nil {
		return 0, ErrMessageClosed
	}
	data := m.pkb.Payload()[m.off:]
	if len(data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, data)
	m.off += n
	return n, nil
}

func (m *inMsg) ReadByte() (byte, error) {
	if m.pkb == nil {
		return 0, ErrMessageClosed
	}
	data := m.pkb.Payload()
	if m.off >= len(data) {
		return 0, io.EOF
	}
	b := data[m.off]
	m.off++
	return b, nil
}

func (m *inMsg) Close() error {
	if m.pkb != nil {
		m.pkb.Free()
		m.pkb = nil
	}
	return nil
}

// outMsg is OutboundMessage to be sent over Link.
type outMsg struct {
	link *Link
	pkb  *pktBuf // nil after Close or Cancel
}

func (m *outMsg) Write(p []byte) (int, error) {
	if m.pkb == nil {
		return 0, ErrMessageClosed
	}
	return m.pkb.Write(p)
}

func (m *outMsg) WriteByte(b byte) error {
	if m.pkb == nil {
		return ErrMessageClosed
	}
	return m.pkb.WriteByte(b)
}

func (m *outMsg) Close() error {
	pkb := m.pkb
	if pkb == nil {
		return nil
	}
	m.pkb = nil
	return m.link.sendPkt(pkb)
}

func (m *outMsg) Cancel() {
	if m.pkb != nil {
		m.pkb.Free()
		m.pkb = nil
	}
}

// ---- for convenience: addresses, String, errors ----

// LocalAddr returns local address of the underlying connection.
func (l *Link) LocalAddr() net.Addr {
	return l.conn.LocalAddr()
}

// RemoteAddr returns remote address of the underlying connection.
func (l *Link) RemoteAddr() net.Addr {
	return l.conn.RemoteAddr()
}

func (l *Link) String() string {
	return fmt.Sprintf("%s - %s", l.LocalAddr(), l.RemoteAddr())
}

// LinkError is returned by Link operations.
type LinkError struct {
	Link *Link
	Op   string
	Err  error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Link, e.Op, e.Err)
}

func (e *LinkError) Cause() error  { return e.Err }
func (e *LinkError) Unwrap() error { return e.Err }

func (l *Link) err(op string, e error) error {
	if e == nil {
		return nil
	}
	return &LinkError{Link: l, Op: op, Err: e}
}
