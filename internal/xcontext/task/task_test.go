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

package task

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTask(t *testing.T) {
	ctx := context.Background()
	require.Nil(t, Current(ctx))
	require.Equal(t, "", Current(ctx).String())

	ctx = Backgroundf("naming %s", "127.0.0.1:1099")
	ctx = Running(ctx, "lookup a/b")
	task := Current(ctx)
	require.Equal(t, []string{"naming 127.0.0.1:1099", "lookup a/b"}, task.Stack())
	require.Equal(t, "naming 127.0.0.1:1099: lookup a/b", task.String())

	// only the current task name is prepended to errors
	err := errors.New("not found")
	ErrContext(&err, ctx)
	require.EqualError(t, err, "lookup a/b: not found")

	var noerr error
	ErrContext(&noerr, ctx)
	require.NoError(t, noerr)
}
