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
// jndi list - print context entries

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"lab.nexedi.com/kirr/go123/prog"

	"github.com/dmlloyd/jboss-remote-jndi/internal/task"
	"github.com/dmlloyd/jboss-remote-jndi/naming"
)

// List prints entries of context named name.
//
// If bindings, bound objects are printed too.
func List(ctx context.Context, w io.Writer, nc *naming.Context, name string, bindings bool) (err error) {
	defer task.Runningf(&ctx, "list %s", name)(&err)

	if !bindings {
		pairs, err := nc.List(ctx, name)
		if err != nil {
			return err
		}
		for _, p := range pairs {
			_, err = fmt.Fprintf(w, "%s\t%s\n", p.Name, p.Class)
			if err != nil {
				return err
			}
		}
		return nil
	}

	bv, err := nc.ListBindings(ctx, name)
	if err != nil {
		return err
	}
	for _, b := range bv {
		_, err = fmt.Fprintf(w, "%s\t%s\t%v\n", b.Name, b.Class, b.Object)
		if err != nil {
			return err
		}
	}
	return nil
}

// ----------------------------------------

const listSummary = "print entries of a context"

func listUsage(w io.Writer) {
	fmt.Fprintf(w,
		`Usage: jndi list [OPTIONS] <url> [name]
Print entries of a context.

Every entry is printed on its own line as name and class name of the bound
object. By default entries of the base context are printed.

Options:

    -bindings   print bound objects too
    -h --help   show this help
`)
}

func listMain(argv []string) {
	bindings := false
	flags := flag.FlagSet{Usage: func() { listUsage(os.Stderr) }}
	flags.Init("", flag.ExitOnError)
	flags.BoolVar(&bindings, "bindings", bindings, "print bound objects too")
	flags.Parse(argv[1:])

	ctx := context.Background()
	nc, argv := openContext(ctx, &flags, 0, 1)

	name := ""
	if len(argv) == 1 {
		name = argv[0]
	}

	err := List(ctx, os.Stdout, nc, name, bindings)
	closeErr := nc.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		prog.Fatal(err)
	}
}
