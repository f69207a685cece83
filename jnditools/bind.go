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

package jnditools
// jndi bind, jndi unbind - modify bindings

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"lab.nexedi.com/kirr/go123/prog"

	"github.com/dmlloyd/jboss-remote-jndi/internal/task"
	"github.com/dmlloyd/jboss-remote-jndi/naming"
)

// parseValue converts command-line value to object to bind.
//
// Integers and booleans are bound as such, everything else as string.
func parseValue(s string) interface{} {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

// Bind binds value to name. If rebind, existing binding is replaced.
func Bind(ctx context.Context, nc *naming.Context, name string, value interface{}, rebind bool) (err error) {
	defer task.Runningf(&ctx, "bind %s", name)(&err)

	if rebind {
		return nc.Rebind(ctx, name, value)
	}
	return nc.Bind(ctx, name, value)
}

// Unbind removes bindings of all names in namev.
func Unbind(ctx context.Context, nc *naming.Context, namev []string) (err error) {
	defer task.Running(&ctx, "unbind")(&err)

	for _, name := range namev {
		err = nc.Unbind(ctx, name)
		if err != nil {
			return err
		}
	}
	return nil
}

// ----------------------------------------

const bindSummary = "bind value to a name"

func bindUsage(w io.Writer) {
	fmt.Fprintf(w,
		`Usage: jndi bind [OPTIONS] <url> <name> <value>
Bind value to a name.

Values that look like integers or booleans are bound as such; other values
are bound as strings.

Options:

    -f          replace existing binding
    -h --help   show this help
`)
}

func bindMain(argv []string) {
	rebind := false
	flags := flag.FlagSet{Usage: func() { bindUsage(os.Stderr) }}
	flags.Init("", flag.ExitOnError)
	flags.BoolVar(&rebind, "f", rebind, "replace existing binding")
	flags.Parse(argv[1:])

	ctx := context.Background()
	nc, argv := openContext(ctx, &flags, 2, 2)

	err := Bind(ctx, nc, argv[0], parseValue(argv[1]), rebind)
	closeErr := nc.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		prog.Fatal(err)
	}
}

const unbindSummary = "remove bindings"

func unbindUsage(w io.Writer) {
	fmt.Fprintf(w,
		`Usage: jndi unbind [OPTIONS] <url> <name> ...
Remove bindings of names.

Options:

    -h --help   show this help
`)
}

func unbindMain(argv []string) {
	flags := flag.FlagSet{Usage: func() { unbindUsage(os.Stderr) }}
	flags.Init("", flag.ExitOnError)
	flags.Parse(argv[1:])

	ctx := context.Background()
	nc, namev := openContext(ctx, &flags, 1, -1)

	err := Unbind(ctx, nc, namev)
	closeErr := nc.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		prog.Fatal(err)
	}
}
