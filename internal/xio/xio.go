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

// Package xio provides addons to standard package io.
package xio

import (
	"context"
	"io"

	"github.com/dmlloyd/jboss-remote-jndi/internal/log"
)

// NoEOF returns err, but changes io.EOF to io.ErrUnexpectedEOF.
//
// It is handy to use when reading a structure of known size: running out of
// data in the middle is then not a normal end of stream.
func NoEOF(err error) error {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// ReadByte reads exactly one byte from r.
//
// io.EOF is returned only if r was at its end already.
func ReadByte(r io.Reader) (byte, error) {
	if br, ok := r.(io.ByteReader); ok {
		return br.ReadByte()
	}
	var b [1]byte
	_, err := io.ReadFull(r, b[:])
	return b[0], err
}

// SafeClose closes c and logs, but otherwise ignores, the error.
//
// It is used on paths where the resource has to be released, but there is
// nobody to report the close error to.
func SafeClose(ctx context.Context, c io.Closer) {
	err := c.Close()
	if err != nil {
		log.Depth(1).Warning(ctx, "close: ", err)
	}
}
