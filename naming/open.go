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
// open naming contexts by URL

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"lab.nexedi.com/kirr/go123/xerr"
	"lab.nexedi.com/kirr/go123/xnet"

	"github.com/dmlloyd/jboss-remote-jndi/marshal"
	"github.com/dmlloyd/jboss-remote-jndi/remoting"

	// well-known marshalling formats
	_ "github.com/dmlloyd/jboss-remote-jndi/marshal/msgpack"
	_ "github.com/dmlloyd/jboss-remote-jndi/marshal/pickle"
)

// EnvMarshalling is environment property that selects marshalling format
// used by Open when URL does not specify one.
const EnvMarshalling = "naming.marshalling"

// DefaultMarshalling is marshalling format used when nothing else is specified.
const DefaultMarshalling = "pickle"

// Open connects to naming server at URL and returns context for the
// namespace there.
//
// Supported URLs are
//
//	remote://<host>:<port>[/<base name>][?marshal=<format>]
//	remote+unix://<socket path>[?marshal=<format>]
//
// The returned context owns the connection: closing it closes the client
// once all requests in flight complete. env is copied into the context
// environment.
func Open(ctx context.Context, rawurl string, env map[string]interface{}) (_ *Context, err error) {
	defer xerr.Contextf(&err, "naming: open %s", rawurl)

	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, err
	}

	var network xnet.Networker
	var addr string
	base := Name{}
	switch u.Scheme {
	case "remote":
		network, addr = xnet.NetPlain("tcp"), u.Host
		base, err = ParseName(strings.Trim(u.Path, "/"))
		if err != nil {
			return nil, err
		}
	case "remote+unix":
		network, addr = xnet.NetPlain("unix"), u.Path
	default:
		return nil, fmt.Errorf("URL scheme \"%s://\" not supported", u.Scheme)
	}

	scheme := DefaultMarshalling
	if s, ok := env[EnvMarshalling].(string); ok {
		scheme = s
	}
	if s := u.Query().Get("marshal"); s != "" {
		scheme = s
	}
	factory, err := marshal.LookupFactory(scheme)
	if err != nil {
		return nil, err
	}

	link, err := remoting.Dial(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	c := NewClient(link, factory)
	return newContext(c, base, env, NewMarshalConfig(), true), nil
}
