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

// Package remoting provides asynchronous message channels.
//
// A Channel carries discrete messages in between two peers. Every message is
// independently written via OutboundMessage obtained from Channel.WriteMessage,
// and is delivered, as a whole, to the peer's Receiver armed with
// Channel.ReceiveMessage. Receivers are armed for exactly one next message:
// a receiver that wants to continue listening has to re-arm itself, usually
// at the end of its HandleMessage.
//
// Messages are delivered strictly one at a time and in the order they were
// sent: the next message is not delivered until handling of the previous one
// returns.
//
// Link is the Channel implementation on top of a stream connection, e.g.
// net.Conn. Use Dial to connect to a peer, or Handshake / NewLink to wrap
// an already established connection.
package remoting

import (
	"errors"
	"io"
)

// Channel is a bidirectional channel of discrete messages.
type Channel interface {
	// ReceiveMessage arms r to handle the next incoming message, or the
	// terminal event of the channel if there will be no more messages.
	//
	// Only one receiver can be armed at a time.
	ReceiveMessage(r Receiver)

	// WriteMessage opens new outbound message.
	//
	// The message is transmitted when it is closed. Cancelling the message
	// instead discards everything written to it.
	WriteMessage() (OutboundMessage, error)

	// Close closes the channel.
	//
	// It is safe to call Close several times.
	Close() error
}

// Receiver handles events of a Channel.
//
// Exactly one of the methods is called for every ReceiveMessage.
type Receiver interface {
	// HandleMessage handles one incoming message.
	//
	// Ownership of msg is passed to the receiver: it has to close msg
	// after it is done with it.
	HandleMessage(ch Channel, msg InboundMessage)

	// HandleError is called when the channel was terminated due to error.
	HandleError(ch Channel, err error)

	// HandleEnd is called when the channel was terminated normally - either
	// because the peer closed it, or because it was closed locally.
	HandleEnd(ch Channel)
}

// InboundMessage is a received message.
//
// io.EOF is returned when reading past the end of the message.
type InboundMessage interface {
	io.Reader
	io.ByteReader

	// Close releases resources associated with the message.
	Close() error
}

// OutboundMessage is a message being written.
//
// It is not safe to use an OutboundMessage from several goroutines simultaneously.
type OutboundMessage interface {
	io.Writer
	io.ByteWriter

	// Close finishes the message and transmits it.
	//
	// Close after Cancel, or after another Close, does nothing.
	Close() error

	// Cancel discards the message without transmitting anything.
	Cancel()
}

var (
	ErrChannelClosed = errors.New("channel is closed")
	ErrMessageClosed = errors.New("message is closed")
	ErrPktTooBig     = errors.New("message too big")
)
