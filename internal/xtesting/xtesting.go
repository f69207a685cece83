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

// Package xtesting provides infrastructure for naming testing.
//
// It contains FakeServer, the server side of naming protocol speaking over
// a remoting channel, and Namespace, simple in-memory naming tree that
// FakeServer can serve.
package xtesting

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/dmlloyd/jboss-remote-jndi/marshal"
	"github.com/dmlloyd/jboss-remote-jndi/naming/proto"
	"github.com/dmlloyd/jboss-remote-jndi/remoting"
)

// FatalIf returns function that fails the test if called with non-nil error.
//
// use like this:
//
//	X := xtesting.FatalIf(t)
//	err := ...; X(err)
func FatalIf(t testing.TB) func(error) {
	return func(err error) {
		if err != nil {
			t.Helper()
			t.Fatal(err)
		}
	}
}

// Request is one request received by FakeServer.
type Request struct {
	Op   proto.Op
	ID   uint8
	Args []interface{} // decoded arguments; class instances are left as *marshal.Instance
}

// FakeServer is the server side of naming protocol.
//
// Received requests are queued and can be taken with Recv, or handled by
// Serve. Replies are sent with Reply.
type FakeServer struct {
	link    remoting.Channel
	factory marshal.Factory
	cfg     *marshal.Config

	reqq chan *Request
	down chan struct{}
}

// NewFakeServer creates new server on link that uses factory for marshalling.
func NewFakeServer(link remoting.Channel, factory marshal.Factory) *FakeServer {
	s := &FakeServer{
		link:    link,
		factory: factory,
		cfg:     &marshal.Config{},
		reqq:    make(chan *Request, proto.MaxRequests*2),
		down:    make(chan struct{}),
	}
	link.ReceiveMessage(s)
	return s
}

// HandleMessage implements remoting.Receiver.
func (s *FakeServer) HandleMessage(ch remoting.Channel, msg remoting.InboundMessage) {
	defer ch.ReceiveMessage(s)
	defer msg.Close()

	req, err := s.decode(msg)
	if err != nil {
		panic(fmt.Sprintf("fake server: bad request: %s", err))
	}
	s.reqq <- req
}

func (s *FakeServer) decode(msg remoting.InboundMessage) (*Request, error) {
	op, err := msg.ReadByte()
	if err != nil {
		return nil, err
	}
	id, err := msg.ReadByte()
	if err != nil {
		return nil, err
	}
	req := &Request{Op: proto.Op(op), ID: id}

	u, err := s.factory.CreateUnmarshaller(s.cfg)
	if err != nil {
		return nil, err
	}
	u.Start(msg)
	for {
		var arg interface{}
		err = u.ReadObject(&arg)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		req.Args = append(req.Args, arg)
	}
	return req, u.Finish()
}

// HandleError implements remoting.Receiver.
func (s *FakeServer) HandleError(ch remoting.Channel, err error) {
	close(s.down)
}

// HandleEnd implements remoting.Receiver.
func (s *FakeServer) HandleEnd(ch remoting.Channel) {
	close(s.down)
}

// Recv returns next received request.
//
// The test fails if no request comes in time.
func (s *FakeServer) Recv(t testing.TB) *Request {
	t.Helper()
	select {
	case req := <-s.reqq:
		return req
	case <-s.down:
		t.Fatal("fake server: link is down")
	case <-time.After(10 * time.Second):
		t.Fatal("fake server: timeout waiting for request")
	}
	panic("unreachable")
}

// Reply sends reply with status and objects in payload to request id.
func (s *FakeServer) Reply(id uint8, status byte, objv ...interface{}) error {
	out, err := s.link.WriteMessage()
	if err != nil {
		return err
	}
	out.WriteByte(proto.MsgResponse)
	out.WriteByte(id)
	out.WriteByte(status)

	m, err := s.factory.CreateMarshaller(s.cfg)
	if err != nil {
		out.Cancel()
		return err
	}
	m.Start(out)
	for _, obj := range objv {
		err = m.WriteObject(obj)
		if err != nil {
			out.Cancel()
			return err
		}
	}
	err = m.Finish()
	if err != nil {
		out.Cancel()
		return err
	}
	return out.Close()
}

// SendRaw sends message with arbitrary content.
func (s *FakeServer) SendRaw(data []byte) error {
	out, err := s.link.WriteMessage()
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	if err != nil {
		out.Cancel()
		return err
	}
	return out.Close()
}

// Serve handles requests with ns until the link goes down.
func (s *FakeServer) Serve(ns *Namespace) error {
	for {
		select {
		case <-s.down:
			return nil
		case req := <-s.reqq:
			status, objv := ns.Handle(req)
			err := s.Reply(req.ID, status, objv...)
			if err != nil {
				return err
			}
		}
	}
}

// Down returns channel that is closed when the link goes down.
func (s *FakeServer) Down() <-chan struct{} {
	return s.down
}

func (s *FakeServer) Close() error {
	return s.link.Close()
}
