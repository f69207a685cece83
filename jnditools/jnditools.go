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

// Package jnditools provides tools for inspecting and modifying remote naming
// services.
package jnditools

import (
	"context"
	"flag"

	"lab.nexedi.com/kirr/go123/prog"

	"github.com/dmlloyd/jboss-remote-jndi/naming"
)

// registry of all jnditools commands
var commands = prog.CommandRegistry{
	// NOTE the order commands are listed here is the order how they will appear in help
	{Name: "lookup", Summary: lookupSummary, Usage: lookupUsage, Main: lookupMain},
	{Name: "list", Summary: listSummary, Usage: listUsage, Main: listMain},
	{Name: "bind", Summary: bindSummary, Usage: bindUsage, Main: bindMain},
	{Name: "unbind", Summary: unbindSummary, Usage: unbindUsage, Main: unbindMain},
}

// registry of all help topics
var helpTopics = prog.HelpRegistry{
	{Name: "url", Summary: "specifying naming service", Text: helpURL},
}

const helpURL = `Every jndi command works with a naming service.
The service is specified by URL:

    remote://<host>:<port>[/<base>][?marshal=<format>]
    remote+unix://<socket path>[?marshal=<format>]

<base> is name of the context, relative to which all names given to a command
are resolved. By default it is the root of the namespace.

<format> selects how objects are marshalled: "pickle" (default) or "msgpack".
`

// Prog is the main jnditools driver.
var Prog = prog.MainProg{
	Name:       "jndi",
	Summary:    "Jndi is a tool for inspecting and modifying remote naming services",
	Commands:   commands,
	HelpTopics: helpTopics,
}

// argsOK returns whether n is within [min, max] number of arguments.
// max < 0 means no upper limit.
func argsOK(n, min, max int) bool {
	return n >= min && (max < 0 || n <= max)
}

// openContext opens naming service given as first argument of a command.
//
// The command has to have from min to max arguments after the URL. This is
// checked before the service is dialed.
func openContext(ctx context.Context, flags *flag.FlagSet, min, max int) (*naming.Context, []string) {
	if max >= 0 {
		max++
	}
	if !argsOK(flags.NArg(), min+1, max) {
		flags.Usage()
		prog.Exit(2)
	}

	argv := flags.Args()
	nc, err := naming.Open(ctx, argv[0], nil)
	if err != nil {
		prog.Fatal(err)
	}
	return nc, argv[1:]
}
