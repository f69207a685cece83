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

// Package log provides logging with severity levels and tasks integration.
//
// It is a thin layer over glog: every message is prefixed with the
// operational task stack carried by the context (see internal/xcontext/task).
package log

import (
	"context"
	"fmt"

	"github.com/golang/glog"

	"github.com/dmlloyd/jboss-remote-jndi/internal/xcontext/task"
)

// withTask prepends string describing current operational task stack to argv and returns it
// handy to use this way:
//
//	func info(ctx, argv ...interface{}) {
//		glog.Info(withTask(ctx, argv...)...)
//	}
//
// see https://golang.org/issues/21388
func withTask(ctx context.Context, argv ...interface{}) []interface{} {
	task := task.Current(ctx).String()
	if task == "" {
		return argv
	}

	if len(argv) != 0 {
		task += ": "
	}

	return append([]interface{}{task}, argv...)
}

type Depth int

func (d Depth) Info(ctx context.Context, argv ...interface{}) {
	glog.InfoDepth(int(d+1), withTask(ctx, argv...)...)
}

func (d Depth) Infof(ctx context.Context, format string, argv ...interface{}) {
	glog.InfoDepth(int(d+1), withTask(ctx, fmt.Sprintf(format, argv...))...)
}

func (d Depth) Warning(ctx context.Context, argv ...interface{}) {
	glog.WarningDepth(int(d+1), withTask(ctx, argv...)...)
}

func (d Depth) Warningf(ctx context.Context, format string, argv ...interface{}) {
	glog.WarningDepth(int(d+1), withTask(ctx, fmt.Sprintf(format, argv...))...)
}

func (d Depth) Error(ctx context.Context, argv ...interface{}) {
	glog.ErrorDepth(int(d+1), withTask(ctx, argv...)...)
}

func (d Depth) Errorf(ctx context.Context, format string, argv ...interface{}) {
	glog.ErrorDepth(int(d+1), withTask(ctx, fmt.Sprintf(format, argv...))...)
}

func Info(ctx context.Context, argv ...interface{})	{ Depth(1).Info(ctx, argv...) }
func Warning(ctx context.Context, argv ...interface{})	{ Depth(1).Warning(ctx, argv...) }
func Error(ctx context.Context, argv ...interface{})	{ Depth(1).Error(ctx, argv...) }

func Infof(ctx context.Context, format string, argv ...interface{}) {
	Depth(1).Infof(ctx, format, argv...)
}

func Warningf(ctx context.Context, format string, argv ...interface{}) {
	Depth(1).Warningf(ctx, format, argv...)
}

func Errorf(ctx context.Context, format string, argv ...interface{}) {
	Depth(1).Errorf(ctx, format, argv...)
}

// Verbose is glog.Verbose with tasks integration.
//
// use like this:
//
//	log.V(2).Infof(ctx, "entering %s", op)
type Verbose bool

// V reports whether verbose logging at level is enabled.
func V(level glog.Level) Verbose {
	return Verbose(glog.V(level))
}

func (v Verbose) Info(ctx context.Context, argv ...interface{}) {
	if v {
		glog.InfoDepth(1, withTask(ctx, argv...)...)
	}
}

func (v Verbose) Infof(ctx context.Context, format string, argv ...interface{}) {
	if v {
		glog.InfoDepth(1, withTask(ctx, fmt.Sprintf(format, argv...))...)
	}
}

func Flush()	{ glog.Flush() }
