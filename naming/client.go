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
// client: request sending and reply dispatching

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/dmlloyd/jboss-remote-jndi/internal/log"
	taskctx "github.com/dmlloyd/jboss-remote-jndi/internal/xcontext/task"
	"github.com/dmlloyd/jboss-remote-jndi/marshal"
	"github.com/dmlloyd/jboss-remote-jndi/naming/proto"
	"github.com/dmlloyd/jboss-remote-jndi/remoting"
)

// Client is connection to naming server over a remoting channel.
//
// Client is shared by all Contexts created from it. It is safe to use Client
// from multiple goroutines simultaneously.
type Client struct {
	ch      remoting.Channel
	factory marshal.Factory
	logctx  context.Context

	tab  *requestTab
	life lifecycle // in-flight requests + Close

	ctxRefs atomic.Int64 // live contexts owning the client

	chOnce   sync.Once
	chErr    error
	released chan struct{}
}

// NewClient creates new client that sends requests over ch and marshals
// objects with factory.
//
// The client starts receiving messages from ch immediately.
func NewClient(ch remoting.Channel, factory marshal.Factory) *Client {
	c := &Client{
		ch:       ch,
		factory:  factory,
		logctx:   taskctx.Backgroundf("naming %v", ch),
		tab:      newRequestTab(),
		released: make(chan struct{}),
	}
	ch.ReceiveMessage((*dispatcher)(c))
	return c
}

// Context returns new root context of the client namespace.
//
// If owner, the context and all contexts derived from it own the client: the
// client is closed when the last of them is closed.
func (c *Client) Context(env map[string]interface{}, owner bool) *Context {
	return newContext(c, Name{}, env, NewMarshalConfig(), owner)
}

// Close closes the client.
//
// Requests are no longer accepted after Close. The channel is closed when all
// in-flight requests complete.
func (c *Client) Close() error {
	if !c.life.close() {
		return nil
	}
	log.V(1).Info(c.logctx, "closing")
	if c.life.exit() {
		return c.release()
	}
	return nil
}

// Done returns channel that is closed after the client was closed and its
// remoting channel released.
func (c *Client) Done() <-chan struct{} {
	return c.released
}

// release is called once, when the client is closed and no request is in flight.
func (c *Client) release() error {
	err := c.closeChannel()
	close(c.released)
	log.V(1).Info(c.logctx, "released")
	return err
}

func (c *Client) closeChannel() error {
	c.chOnce.Do(func() {
		c.chErr = c.ch.Close()
	})
	return c.chErr
}

// requestDone returns client permit of request with future f.
func (c *Client) requestDone(f *future) {
	if !f.inflight.CompareAndSwap(true, false) {
		return
	}
	if c.life.exit() {
		c.release()
	}
}

// sendRequest allocates request id for future f and starts outbound message
// with request header for op.
//
// On success the caller has to write request arguments and close the
// message. On error f is completed with the error as well.
func (c *Client) sendRequest(op proto.Op, f *future) (_ uint8, _ remoting.OutboundMessage, err error) {
	if !c.life.tryEnter() {
		f.setError(ErrContextClosed)
		return 0, nil, ErrContextClosed
	}
	f.inflight.Store(true)

	id, ok := c.tab.allocate()
	if !ok {
		f.setError(ErrTooManyRequests)
		c.requestDone(f)
		return 0, nil, ErrTooManyRequests
	}
	c.tab.bind(id, f)

	out, err := c.ch.WriteMessage()
	if err == nil {
		err = out.WriteByte(byte(op))
		if err == nil {
			err = out.WriteByte(id)
		}
		if err != nil {
			out.Cancel()
		}
	}
	if err != nil {
		err = &CommunicationError{Op: "failed to send a request", Err: err}
		c.abortRequest(id, f, err)
		return 0, nil, err
	}

	return id, out, nil
}

// abortRequest releases request that could not be sent.
func (c *Client) abortRequest(id uint8, f *future, err error) {
	// a bogus reply could have already released the id
	c.tab.releaseFuture(id, f)
	if !f.setError(err) {
		if o := f.consume(); o.msg != nil {
			o.msg.Close()
		}
	}
	c.requestDone(f)
}

// call sends request op with arguments argv and waits for its reply.
//
// Returned reply is positioned at status byte, and the caller has to close it.
func (c *Client) call(ctx context.Context, cfg *marshal.Config, op proto.Op, argv ...interface{}) (remoting.InboundMessage, error) {
	f := newFuture()
	id, out, err := c.sendRequest(op, f)
	if err != nil {
		return nil, err
	}

	err = c.writeArgs(out, cfg, argv)
	if err == nil {
		err = out.Close()
	} else {
		out.Cancel()
	}
	if err != nil {
		err = &CommunicationError{Op: "failed to send a request", Err: err}
		c.abortRequest(id, f, err)
		return nil, err
	}

	if !f.await(ctx) && f.setCancelled() {
		// A reply can still come. The id stays allocated until then,
		// or until the channel ends, so that the reply is not taken as
		// reply to another request.
		c.requestDone(f)
		return nil, &InterruptedError{Err: ctx.Err()}
	}

	o := f.consume()
	if o.err != nil {
		return nil, o.err
	}
	return o.msg, nil
}

func (c *Client) writeArgs(w io.Writer, cfg *marshal.Config, argv []interface{}) error {
	m, err := c.factory.CreateMarshaller(cfg)
	if err != nil {
		return err
	}
	m.Start(w)
	for _, arg := range argv {
		err = m.WriteObject(arg)
		if err != nil {
			return err
		}
	}
	return m.Finish()
}

// terminate fails all in-flight requests after the channel stopped working.
func (c *Client) terminate(err error) {
	c.closeChannel()
	for id := 0; id < proto.MaxRequests; id++ {
		f := c.tab.release(uint8(id))
		if f == nil {
			continue
		}
		f.setError(err)
		c.requestDone(f)
	}
}

// ---- dispatching ----

// dispatcher receives messages from the channel on behalf of Client.
type dispatcher Client

var _ remoting.Receiver = (*dispatcher)(nil)

func (d *dispatcher) HandleMessage(ch remoting.Channel, msg remoting.InboundMessage) {
	c := (*Client)(d)
	ctx := c.logctx
	defer ch.ReceiveMessage(d)

	handed := false
	defer func() {
		if !handed {
			msg.Close()
		}
	}()

	b, err := msg.ReadByte()
	if err != nil {
		log.V(1).Info(ctx, "empty message; ignoring")
		return
	}
	if b != proto.MsgResponse {
		log.V(1).Infof(ctx, "unknown message %#02x; ignoring", b)
		return
	}

	id, err := msg.ReadByte()
	if err != nil {
		log.V(1).Info(ctx, "reply without request id; ignoring")
		return
	}
	if id >= proto.MaxRequests {
		log.V(1).Infof(ctx, "reply for invalid request id %d; ignoring", id)
		return
	}

	f := c.tab.release(id)
	if f == nil {
		log.V(1).Infof(ctx, "reply for unknown request id %d; ignoring", id)
		return
	}
	handed = f.setResult(msg)
	c.requestDone(f)
}

func (d *dispatcher) HandleError(ch remoting.Channel, err error) {
	c := (*Client)(d)
	log.Errorf(c.logctx, "error on channel %v (closing channel): %s", ch, err)
	c.terminate(&CommunicationError{Op: "channel failed", Err: err})
}

func (d *dispatcher) HandleEnd(ch remoting.Channel) {
	c := (*Client)(d)
	log.V(1).Infof(c.logctx, "finished stream processing on channel %v", ch)
	c.terminate(&CommunicationError{Op: "channel closed", Err: remoting.ErrChannelClosed})
}
