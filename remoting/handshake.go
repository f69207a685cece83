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
// link establishment

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"lab.nexedi.com/kirr/go123/xnet"
	"lab.nexedi.com/kirr/go123/xsync"

	"github.com/dmlloyd/jboss-remote-jndi/internal/xio"
)

// hello is what both sides of a link send to each other first:
//
//	[magic "JNDI": be32][version: be32]
const (
	helloMagic = 0x4a4e4449
	helloLen   = 8

	// Version is the protocol version announced in hello.
	Version = 1
)

// HandshakeError is returned when there is an error while performing handshake.
type HandshakeError struct {
	LocalAddr  net.Addr
	RemoteAddr net.Addr
	Err        error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("%s - %s: handshake: %s", e.LocalAddr, e.RemoteAddr, e.Err)
}

func (e *HandshakeError) Cause() error  { return e.Err }
func (e *HandshakeError) Unwrap() error { return e.Err }

// Handshake performs protocol handshake just after raw connection between
// two peers was established.
//
// The handshake is symmetric: both sides announce protocol magic and
// version, and verify what the peer announced.
//
// On success raw connection is returned wrapped into Link.
// On error raw connection is closed.
func Handshake(ctx context.Context, conn net.Conn) (*Link, error) {
	err := handshake(ctx, conn, Version)
	if err != nil {
		return nil, err
	}
	return NewLink(conn), nil
}

func handshake(ctx context.Context, conn net.Conn, version uint32) (err error) {
	defer func() {
		if err != nil {
			err = &HandshakeError{conn.LocalAddr(), conn.RemoteAddr(), err}
			conn.Close()
		}
	}()

	// ready when/if both tx and rx of hello succeed
	hok := make(chan struct{})
	var txrx sync.WaitGroup
	txrx.Add(2)
	go func() {
		txrx.Wait()
		close(hok)
	}()

	wg := xsync.NewWorkGroup(ctx)

	// tx hello
	wg.Go(func(ctx context.Context) error {
		defer txrx.Done()
		var b [helloLen]byte
		binary.BigEndian.PutUint32(b[0:], helloMagic)
		binary.BigEndian.PutUint32(b[4:], version)
		_, err := conn.Write(b[:])
		if err != nil {
			return fmt.Errorf("tx: %s", err)
		}
		return nil
	})

	// rx hello
	wg.Go(func(ctx context.Context) error {
		defer txrx.Done()
		var b [helloLen]byte
		_, err := io.ReadFull(conn, b[:])
		if err != nil {
			return fmt.Errorf("rx: %s", xio.NoEOF(err))
		}
		magic := binary.BigEndian.Uint32(b[0:])
		peerVersion := binary.BigEndian.Uint32(b[4:])
		if magic != helloMagic {
			return fmt.Errorf("rx: invalid peer hello: % x", b[:])
		}
		if peerVersion != version {
			return fmt.Errorf("protocol version mismatch: peer = %d  ; our side = %d", peerVersion, version)
		}
		return nil
	})

	wg.Go(func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			// either ctx canceled from outside, or it is tx/rx problem.
			// Close connection in any case to interrupt IO there.
			conn.Close()
			return ctx.Err()

		case <-hok:
			return nil
		}
	})

	return wg.Wait()
}

// Dial connects to address on given network, performs protocol handshake and
// wraps the connection as Link.
func Dial(ctx context.Context, network xnet.Networker, addr string) (*Link, error) {
	conn, err := network.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	return Handshake(ctx, conn)
}
