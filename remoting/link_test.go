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
	"context"
	"encoding/binary"
	"io"
	"io/ioutil"
	"net"
	"testing"
	"time"

	"github.com/kylelemons/godebug/pretty"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"lab.nexedi.com/kirr/go123/exc"
	"lab.nexedi.com/kirr/go123/xnet"
)

// event is what tReceiver observes.
type event struct {
	data []byte // message payload
	err  error  // HandleError
	end  bool   // HandleEnd
}

// tReceiver is Receiver that queues all events it sees to evq.
type tReceiver struct {
	evq   chan event
	rearm bool // whether to continue receiving after a message
}

func newReceiver(rearm bool) *tReceiver {
	return &tReceiver{evq: make(chan event, 16), rearm: rearm}
}

func (r *tReceiver) HandleMessage(ch Channel, msg InboundMessage) {
	data, err := ioutil.ReadAll(msg)
	exc.Raiseif(err)
	exc.Raiseif(msg.Close())
	r.evq <- event{data: data}
	if r.rearm {
		ch.ReceiveMessage(r)
	}
}

func (r *tReceiver) HandleError(ch Channel, err error) {
	r.evq <- event{err: err}
}

func (r *tReceiver) HandleEnd(ch Channel) {
	r.evq <- event{end: true}
}

// next returns next event or fails the test on timeout.
func (r *tReceiver) next(t *testing.T) event {
	t.Helper()
	select {
	case ev := <-r.evq:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for receiver event")
		panic("unreachable")
	}
}

func xsend(ch Channel, data string) {
	msg, err := ch.WriteMessage()
	exc.Raiseif(err)
	_, err = io.WriteString(msg, data)
	exc.Raiseif(err)
	exc.Raiseif(msg.Close())
}

func xclose(c io.Closer) {
	err := c.Close()
	exc.Raiseif(err)
}

// linkPipe creates Links connected via net.Pipe without handshake.
func linkPipe() (l1, l2 *Link) {
	c1, c2 := net.Pipe()
	return NewLink(c1), NewLink(c2)
}

func TestLinkExchange(t *testing.T) {
	l1, l2 := linkPipe()
	defer xclose(l1)
	defer xclose(l2)

	r := newReceiver(true)
	l2.ReceiveMessage(r)

	msgv := []string{"hello", "", "world", string(make([]byte, 10000))}
	wg := &errgroup.Group{}
	wg.Go(exc.Funcx(func() {
		for _, data := range msgv {
			xsend(l1, data)
		}
	}))

	for i, want := range msgv {
		ev := r.next(t)
		if ev.err != nil || ev.end {
			t.Fatalf("msg #%d: unexpected event %+v", i, ev)
		}
		if string(ev.data) != want {
			t.Fatalf("msg #%d: payload differ:\n%s", i, pretty.Compare(want, string(ev.data)))
		}
	}

	if err := wg.Wait(); err != nil {
		t.Fatal(err)
	}
}

func TestLinkCancel(t *testing.T) {
	l1, l2 := linkPipe()
	defer xclose(l1)
	defer xclose(l2)

	r := newReceiver(true)
	l2.ReceiveMessage(r)

	go func() {
		msg, err := l1.WriteMessage()
		exc.Raiseif(err)
		msg.Write([]byte("not to be seen"))
		msg.Cancel()
		// Close after Cancel is noop
		exc.Raiseif(msg.Close())
		if _, err := msg.Write([]byte("x")); err != ErrMessageClosed {
			panic(errors.Errorf("write after cancel: err = %v", err))
		}

		xsend(l1, "second")
	}()

	ev := r.next(t)
	if string(ev.data) != "second" {
		t.Fatalf("got %+v  ; want message \"second\"", ev)
	}
}

func TestLinkEnd(t *testing.T) {
	// peer closes -> HandleEnd
	l1, l2 := linkPipe()
	r := newReceiver(true)
	l2.ReceiveMessage(r)
	xclose(l1)
	if ev := r.next(t); !ev.end {
		t.Fatalf("after peer close: got %+v  ; want end", ev)
	}
	l2.Wait()
	xclose(l2)

	// local close while receiver is armed -> HandleEnd
	l1, l2 = linkPipe()
	r = newReceiver(true)
	l1.ReceiveMessage(r)
	xclose(l1)
	if ev := r.next(t); !ev.end {
		t.Fatalf("after local close: got %+v  ; want end", ev)
	}
	xclose(l2)

	// write after close
	_, err := l1.WriteMessage()
	if errors.Cause(err) != ErrChannelClosed {
		t.Fatalf("WriteMessage after close: err = %v", err)
	}
}

func TestLinkError(t *testing.T) {
	// truncated packet -> HandleError(ErrUnexpectedEOF)
	c1, c2 := net.Pipe()
	l2 := NewLink(c2)
	r := newReceiver(true)
	l2.ReceiveMessage(r)

	go func() {
		var hdr [pktHeaderLen]byte
		binary.BigEndian.PutUint32(hdr[:], 10)
		c1.Write(hdr[:])
		c1.Write([]byte("abc"))
		c1.Close()
	}()

	ev := r.next(t)
	if errors.Cause(ev.err) != io.ErrUnexpectedEOF {
		t.Fatalf("truncated packet: got %+v  ; want error %v", ev, io.ErrUnexpectedEOF)
	}
	l2.Wait()

	// too big packet -> HandleError(ErrPktTooBig)
	c1, c2 = net.Pipe()
	l2 = NewLink(c2)
	r = newReceiver(true)
	l2.ReceiveMessage(r)

	go func() {
		var hdr [pktHeaderLen]byte
		binary.BigEndian.PutUint32(hdr[:], MaxMessageSize+1)
		c1.Write(hdr[:])
	}()

	ev = r.next(t)
	if errors.Cause(ev.err) != ErrPktTooBig {
		t.Fatalf("too big packet: got %+v  ; want error %v", ev, ErrPktTooBig)
	}
	c1.Close()
}

func TestLinkReceiveArmedTwice(t *testing.T) {
	l1, l2 := linkPipe()
	defer xclose(l1)
	defer xclose(l2)

	r := newReceiver(false)
	l2.ReceiveMessage(r)
	defer func() {
		if recover() == nil {
			t.Fatal("second ReceiveMessage did not panic")
		}
	}()
	// serveRecv may already have taken first receiver; fill rxq until panic
	for i := 0; i < 3; i++ {
		l2.ReceiveMessage(r)
	}
}

func TestHandshake(t *testing.T) {
	ctx := context.Background()

	// ok
	c1, c2 := net.Pipe()
	wg := &errgroup.Group{}
	var l1, l2 *Link
	wg.Go(func() (err error) {
		l1, err = Handshake(ctx, c1)
		return err
	})
	wg.Go(func() (err error) {
		l2, err = Handshake(ctx, c2)
		return err
	})
	if err := wg.Wait(); err != nil {
		t.Fatal(err)
	}
	r := newReceiver(false)
	l2.ReceiveMessage(r)
	xsend(l1, "ping")
	if ev := r.next(t); string(ev.data) != "ping" {
		t.Fatalf("after handshake: got %+v", ev)
	}
	xclose(l1)
	xclose(l2)

	// version mismatch
	c1, c2 = net.Pipe()
	errch := make(chan error, 1)
	go func() {
		errch <- handshake(ctx, c2, Version+1)
	}()
	_, err := Handshake(ctx, c1)
	if _, ok := err.(*HandshakeError); !ok {
		t.Fatalf("handshake with version mismatch: err = %#v", err)
	}
	if err2 := <-errch; err2 == nil {
		t.Fatal("peer handshake with version mismatch: no error")
	}

	// cancel
	c1, _ = net.Pipe()
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		time.Sleep(time.Millisecond)
		cancel()
	}()
	_, err = Handshake(ctx, c1)
	if _, ok := err.(*HandshakeError); !ok {
		t.Fatalf("handshake cancel: err = %#v", err)
	}
}

func TestDial(t *testing.T) {
	ctx := context.Background()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	exc.Raiseif(err)
	defer xclose(l)

	srvq := make(chan *Link, 1)
	go func() {
		conn, err := l.Accept()
		exc.Raiseif(err)
		link, err := Handshake(ctx, conn)
		exc.Raiseif(err)
		srvq <- link
	}()

	cli, err := Dial(ctx, xnet.NetPlain("tcp"), l.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	srv := <-srvq

	r := newReceiver(false)
	cli.ReceiveMessage(r)
	xsend(srv, "pong")
	if ev := r.next(t); string(ev.data) != "pong" {
		t.Fatalf("dial: got %+v", ev)
	}
	xclose(cli)
	xclose(srv)
}
