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
// jndi lookup - print objects bound to names

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"lab.nexedi.com/kirr/go123/prog"

	"github.com/dmlloyd/jboss-remote-jndi/internal/task"
	"github.com/dmlloyd/jboss-remote-jndi/naming"
)

// Lookup looks up all names in namev and prints bound objects in the order
// of names.
//
// Lookups are performed in parallel.
func Lookup(ctx context.Context, w io.Writer, nc *naming.Context, namev []string, link bool) (err error) {
	defer task.Running(&ctx, "lookup")(&err)

	objv := make([]interface{}, len(namev))
	wg, ctx := errgroup.WithContext(ctx)
	for i, name := range namev {
		i, name := i, name
		wg.Go(func() error {
			var obj interface{}
			var err error
			if link {
				obj, err = nc.LookupLink(ctx, name)
			} else {
				obj, err = nc.Lookup(ctx, name)
			}
			if err != nil {
				return err
			}
			// subcontexts are returned as their names
			if name, ok := obj.(naming.Name); ok {
				obj = "context " + name.String()
			}
			objv[i] = obj
			return nil
		})
	}
	err = wg.Wait()
	if err != nil {
		return err
	}

	for i, name := range namev {
		_, err = fmt.Fprintf(w, "%s\t%v\n", name, objv[i])
		if err != nil {
			return err
		}
	}
	return nil
}

// ----------------------------------------

const lookupSummary = "print objects bound to names"

func lookupUsage(w io.Writer) {
	fmt.Fprintf(w,
		`Usage: jndi lookup [OPTIONS] <url> <name> ...
Print objects bound to names.

<url> is URL of the naming service (see 'jndi help url').

Options:

    -link       do not follow links
    -h --help   show this help
`)
}

func lookupMain(argv []string) {
	link := false
	flags := flag.FlagSet{Usage: func() { lookupUsage(os.Stderr) }}
	flags.Init("", flag.ExitOnError)
	flags.BoolVar(&link, "link", link, "do not follow links")
	flags.Parse(argv[1:])

	ctx := context.Background()
	nc, namev := openContext(ctx, &flags, 1, -1)

	err := Lookup(ctx, os.Stdout, nc, namev, link)
	// prog.Fatal does not run deferred functions
	closeErr := nc.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		prog.Fatal(err)
	}
}
