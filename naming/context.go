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

import (
	"context"
	"runtime"
	"sync"

	"github.com/dmlloyd/jboss-remote-jndi/internal/log"
	taskctx "github.com/dmlloyd/jboss-remote-jndi/internal/xcontext/task"
	"github.com/dmlloyd/jboss-remote-jndi/marshal"
	"github.com/dmlloyd/jboss-remote-jndi/naming/proto"
)

// Context is a node of remote naming tree.
//
// Names passed to Context operations are relative to the context. Operations
// can be used from multiple goroutines simultaneously. After Close all
// operations fail with ErrContextClosed.
//
// A Context that becomes unreachable without being closed is closed on
// garbage collection.
//
// Contexts derived from an owning context own the client together with it:
// the client is closed after all of them are closed.
type Context struct {
	client *Client
	name   Name // absolute name of this context
	cfg    *marshal.Config
	owned  bool // the context holds a reference to the client
	life   lifecycle

	envMu sync.Mutex
	env   map[string]interface{}
}

func newContext(c *Client, name Name, env map[string]interface{}, cfg *marshal.Config, owned bool) *Context {
	nc := &Context{
		client: c,
		name:   name,
		cfg:    cfg,
		owned:  owned,
		env:    copyEnv(env),
	}
	if owned {
		c.ctxRefs.Add(1)
	}
	runtime.SetFinalizer(nc, (*Context).finalize)
	return nc
}

func (nc *Context) finalize() {
	err := nc.Close()
	if err != nil {
		log.Warningf(nc.client.logctx, "context %q: close on finalize: %s", nc.name, err)
	}
}

func copyEnv(env map[string]interface{}) map[string]interface{} {
	env2 := make(map[string]interface{}, len(env))
	for k, v := range env {
		env2[k] = v
	}
	return env2
}

// child returns new context for absolute name sharing client with nc.
func (nc *Context) child(name Name) *Context {
	nc.envMu.Lock()
	env := copyEnv(nc.env)
	nc.envMu.Unlock()
	return newContext(nc.client, name, env, nc.cfg, nc.owned)
}

// enter starts operation op on name.
//
// It registers the operation as active, makes *ctxp to be operation
// task and parses name. On success the caller has to call nc.exit.
func (nc *Context) enter(ctxp *context.Context, op proto.Op, name string) (Name, error) {
	err := nc.life.enter()
	if err != nil {
		return nil, err
	}
	ctx := taskctx.Runningf(*ctxp, "%s %s", op, name)
	*ctxp = ctx
	log.V(2).Info(ctx, "entered")

	n, err := ParseName(name)
	if err != nil {
		nc.exit(ctx)
		return nil, err
	}
	return n, nil
}

func (nc *Context) exit(ctx context.Context) {
	log.V(2).Info(ctx, "exited")
	if nc.life.exit() {
		nc.release()
	}
}

// opError wraps error of operation op into OpError.
func (nc *Context) opError(errp *error, op proto.Op, name string) {
	if *errp == nil {
		return
	}
	*errp = &OpError{Context: nc.name.String(), Op: op.String(), Name: name, Err: *errp}
}

// invoke performs remote operation op with arguments argv.
func (nc *Context) invoke(ctx context.Context, op proto.Op, read resultReader, argv ...interface{}) error {
	msg, err := nc.client.call(ctx, nc.cfg, op, argv...)
	if err != nil {
		return err
	}
	return nc.client.readReply(msg, nc.cfg, read)
}

// Lookup returns object bound to name.
//
// Lookup of empty name returns new Context for the same name as nc without
// contacting the server.
func (nc *Context) Lookup(ctx context.Context, name string) (_ interface{}, err error) {
	defer nc.opError(&err, proto.OpLookup, name)
	n, err := nc.enter(&ctx, proto.OpLookup, name)
	if err != nil {
		return nil, err
	}
	defer nc.exit(ctx)

	if n.IsEmpty() {
		return nc.child(nc.name), nil
	}

	var obj interface{}
	err = nc.invoke(ctx, proto.OpLookup, readObject(&obj), nc.name.Append(n))
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// LookupLink is like Lookup but does not follow the link bound to name.
func (nc *Context) LookupLink(ctx context.Context, name string) (_ interface{}, err error) {
	defer nc.opError(&err, proto.OpLookupLink, name)
	n, err := nc.enter(&ctx, proto.OpLookupLink, name)
	if err != nil {
		return nil, err
	}
	defer nc.exit(ctx)

	var obj interface{}
	err = nc.invoke(ctx, proto.OpLookupLink, readObject(&obj), nc.name.Append(n))
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// Bind binds obj to name. The name must not be already bound.
func (nc *Context) Bind(ctx context.Context, name string, obj interface{}) (err error) {
	defer nc.opError(&err, proto.OpBind, name)
	n, err := nc.enter(&ctx, proto.OpBind, name)
	if err != nil {
		return err
	}
	defer nc.exit(ctx)

	return nc.invoke(ctx, proto.OpBind, nil, nc.name.Append(n), obj)
}

// Rebind binds obj to name replacing existing binding, if any.
func (nc *Context) Rebind(ctx context.Context, name string, obj interface{}) (err error) {
	defer nc.opError(&err, proto.OpRebind, name)
	n, err := nc.enter(&ctx, proto.OpRebind, name)
	if err != nil {
		return err
	}
	defer nc.exit(ctx)

	return nc.invoke(ctx, proto.OpRebind, nil, nc.name.Append(n), obj)
}

func (nc *Context) Unbind(ctx context.Context, name string) (err error) {
	defer nc.opError(&err, proto.OpUnbind, name)
	n, err := nc.enter(&ctx, proto.OpUnbind, name)
	if err != nil {
		return err
	}
	defer nc.exit(ctx)

	return nc.invoke(ctx, proto.OpUnbind, nil, nc.name.Append(n))
}

// Rename binds object bound to oldName to newName and unbinds oldName.
func (nc *Context) Rename(ctx context.Context, oldName, newName string) (err error) {
	defer nc.opError(&err, proto.OpRename, oldName)
	n, err := nc.enter(&ctx, proto.OpRename, oldName)
	if err != nil {
		return err
	}
	defer nc.exit(ctx)

	n2, err := ParseName(newName)
	if err != nil {
		return err
	}
	return nc.invoke(ctx, proto.OpRename, nil, nc.name.Append(n), nc.name.Append(n2))
}

// List returns names and classes of objects bound in the context named name.
func (nc *Context) List(ctx context.Context, name string) (_ []NameClassPair, err error) {
	defer nc.opError(&err, proto.OpList, name)
	n, err := nc.enter(&ctx, proto.OpList, name)
	if err != nil {
		return nil, err
	}
	defer nc.exit(ctx)

	var pv []NameClassPair
	err = nc.invoke(ctx, proto.OpList, readNameClassPairs(&pv), nc.name.Append(n))
	if err != nil {
		return nil, err
	}
	return pv, nil
}

// ListBindings is like List but also returns bound objects.
func (nc *Context) ListBindings(ctx context.Context, name string) (_ []Binding, err error) {
	defer nc.opError(&err, proto.OpListBindings, name)
	n, err := nc.enter(&ctx, proto.OpListBindings, name)
	if err != nil {
		return nil, err
	}
	defer nc.exit(ctx)

	var bv []Binding
	err = nc.invoke(ctx, proto.OpListBindings, readBindings(&bv), nc.name.Append(n))
	if err != nil {
		return nil, err
	}
	return bv, nil
}

func (nc *Context) DestroySubcontext(ctx context.Context, name string) (err error) {
	defer nc.opError(&err, proto.OpDestroySubcontext, name)
	n, err := nc.enter(&ctx, proto.OpDestroySubcontext, name)
	if err != nil {
		return err
	}
	defer nc.exit(ctx)

	return nc.invoke(ctx, proto.OpDestroySubcontext, nil, nc.name.Append(n))
}

// CreateSubcontext creates new context bound to name and returns it.
func (nc *Context) CreateSubcontext(ctx context.Context, name string) (_ *Context, err error) {
	defer nc.opError(&err, proto.OpCreateSubcontext, name)
	n, err := nc.enter(&ctx, proto.OpCreateSubcontext, name)
	if err != nil {
		return nil, err
	}
	defer nc.exit(ctx)

	var newName Name
	err = nc.invoke(ctx, proto.OpCreateSubcontext, readObject(&newName), nc.name.Append(n))
	if err != nil {
		return nil, err
	}
	return nc.child(newName), nil
}

// NameInNamespace returns absolute name of the context.
func (nc *Context) NameInNamespace() string {
	return nc.name.String()
}

// Environment returns copy of the context environment.
func (nc *Context) Environment() map[string]interface{} {
	nc.envMu.Lock()
	defer nc.envMu.Unlock()
	return copyEnv(nc.env)
}

// AddToEnvironment sets environment property and returns its previous value.
func (nc *Context) AddToEnvironment(key string, value interface{}) interface{} {
	nc.envMu.Lock()
	defer nc.envMu.Unlock()
	old := nc.env[key]
	nc.env[key] = value
	return old
}

// RemoveFromEnvironment removes environment property and returns its value.
func (nc *Context) RemoveFromEnvironment(key string) interface{} {
	nc.envMu.Lock()
	defer nc.envMu.Unlock()
	old := nc.env[key]
	delete(nc.env, key)
	return old
}

// AddNamingListener is not supported.
func (nc *Context) AddNamingListener(name string, listener interface{}) error {
	return ErrUnsupported
}

// RemoveNamingListener is not supported.
func (nc *Context) RemoveNamingListener(listener interface{}) error {
	return ErrUnsupported
}

// NameParser is not supported.
func (nc *Context) NameParser(name string) (func(string) (Name, error), error) {
	return nil, ErrUnsupported
}

// ComposeName is not supported.
func (nc *Context) ComposeName(name, prefix string) (string, error) {
	return "", ErrUnsupported
}

// Close closes the context.
//
// Operations in progress are not interrupted; the context is released when
// the last of them completes. Closing already closed context does nothing.
func (nc *Context) Close() error {
	if !nc.life.close() {
		return nil
	}
	runtime.SetFinalizer(nc, nil)
	log.V(2).Infof(nc.client.logctx, "context %q: closing", nc.name)
	if nc.life.exit() {
		return nc.release()
	}
	return nil
}

// release is called once, when the context is closed and no operation is active.
func (nc *Context) release() error {
	if nc.owned && nc.client.ctxRefs.Add(-1) == 0 {
		return nc.client.Close()
	}
	return nil
}
