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
// decoding of replies

import (
	"io"

	"github.com/dmlloyd/jboss-remote-jndi/internal/log"
	"github.com/dmlloyd/jboss-remote-jndi/internal/xio"
	"github.com/dmlloyd/jboss-remote-jndi/marshal"
	"github.com/dmlloyd/jboss-remote-jndi/naming/proto"
	"github.com/dmlloyd/jboss-remote-jndi/remoting"
)

// resultReader reads result of successful operation from reply.
type resultReader func(u marshal.Unmarshaller) error

// readReply decodes reply msg and closes it.
//
// On success the result is read by read, which can be nil for operations
// without result. On failure status *RemoteError is returned.
func (c *Client) readReply(msg remoting.InboundMessage, cfg *marshal.Config, read resultReader) (err error) {
	defer msg.Close()
	defer func() {
		switch err.(type) {
		case nil, *RemoteError:
		default:
			err = &CommunicationError{Op: "error reading reply", Err: err}
		}
	}()

	status, err := msg.ReadByte()
	if err != nil {
		return xio.NoEOF(err)
	}

	u, err := c.factory.CreateUnmarshaller(cfg)
	if err != nil {
		return err
	}
	u.Start(msg)

	if status != proto.StatusOK {
		rerr := &RemoteError{Code: status}
		var cause *marshal.RemoteCause
		err = u.ReadObject(&cause)
		switch err {
		case nil:
			rerr.Cause = cause
		case io.EOF:
			// no cause
		default:
			log.V(1).Infof(c.logctx, "status %d: cannot decode cause: %s", status, err)
		}
		return rerr
	}

	if read != nil {
		err = read(u)
		if err != nil {
			return err
		}
	}
	return u.Finish()
}

// readObject returns resultReader that reads one object into *ptr.
func readObject(ptr interface{}) resultReader {
	return func(u marshal.Unmarshaller) error {
		err := u.ReadObject(ptr)
		return xio.NoEOF(err)
	}
}

// readNameClassPairs returns resultReader that reads entries till end of reply.
func readNameClassPairs(pv *[]NameClassPair) resultReader {
	return func(u marshal.Unmarshaller) error {
		for {
			var p *NameClassPair
			err := u.ReadObject(&p)
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if p == nil {
				continue
			}
			*pv = append(*pv, *p)
		}
	}
}

func readBindings(bv *[]Binding) resultReader {
	return func(u marshal.Unmarshaller) error {
		for {
			var b *Binding
			err := u.ReadObject(&b)
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if b == nil {
				continue
			}
			*bv = append(*bv, *b)
		}
	}
}
