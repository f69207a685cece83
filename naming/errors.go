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
// errors returned by naming operations

import (
	"errors"
	"fmt"

	"github.com/dmlloyd/jboss-remote-jndi/marshal"
	"github.com/dmlloyd/jboss-remote-jndi/naming/proto"
)

var (
	// ErrTooManyRequests is returned when all request ids are in use.
	ErrTooManyRequests = errors.New("too many concurrent requests")

	ErrCancelled     = errors.New("operation was cancelled by the user")
	ErrContextClosed = errors.New("context is closed")
	ErrUnsupported   = errors.New("operation is not supported")
)

// CommunicationError is returned when a request could not be sent, or its
// reply could not be received or decoded.
type CommunicationError struct {
	Op  string // e.g. "failed to send a request"
	Err error
}

func (e *CommunicationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *CommunicationError) Cause() error  { return e.Err }
func (e *CommunicationError) Unwrap() error { return e.Err }

// InterruptedError is returned when waiting for a reply was interrupted
// because caller's context was canceled.
type InterruptedError struct {
	Err error // ctx.Err()
}

func (e *InterruptedError) Error() string {
	return fmt.Sprintf("naming operation was interrupted locally: %s", e.Err)
}

func (e *InterruptedError) Cause() error  { return e.Err }
func (e *InterruptedError) Unwrap() error { return e.Err }

// RemoteError is returned when the server reports failure of an operation.
type RemoteError struct {
	Code  byte                 // reply status
	Cause *marshal.RemoteCause // cause sent by the server, if any
}

func (e *RemoteError) Error() string {
	s := "unknown server-side exception occurred"
	if e.Code != proto.ErrOther {
		s = fmt.Sprintf("%s (status %d)", s, e.Code)
	}
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

func (e *RemoteError) Unwrap() error {
	if e.Cause == nil {
		return nil
	}
	return e.Cause
}

// InvalidNameError is returned when a name string is not valid.
type InvalidNameError struct {
	Name   string
	Offset int // offset of invalid part in Name
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid name %q: empty component at offset %d", e.Name, e.Offset)
}

// OpError is the error returned by Context operations.
type OpError struct {
	Context string // name of the context in namespace
	Op      string // e.g. "lookup"
	Name    string // name passed to the operation
	Err     error
}

func (e *OpError) Error() string {
	s := "naming"
	if e.Context != "" {
		s += " " + e.Context
	}
	s += ": " + e.Op
	if e.Name != "" {
		s += " " + e.Name
	}
	return s + ": " + e.Err.Error()
}

func (e *OpError) Cause() error  { return e.Err }
func (e *OpError) Unwrap() error { return e.Err }
