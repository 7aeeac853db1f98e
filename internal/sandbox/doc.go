/*
Package sandbox provides window contexts: isolated goja scopes whose global
object is mediated to a host-owned delegate.

# Overview

A window context lets a host run page scripts against a synthetic window.
Every named property read, write, delete or enumeration on the window goes
through a mediator to a Delegate the host owns, while the intrinsics the
scripts see (Array, String, Object, ...) belong to the context's own runtime,
so "x".constructor === String holds inside it.

# Architecture

 1. Catalog: ordered table of primitives and the code that produces each
 2. Mediator: get/set/delete/enumerate/query redirected to the delegate
 3. Host: shared catalog, logging, metrics and the entered-scope stack
 4. Context: one goja runtime plus its delegate, bootstrap and Evaluate
 5. Pool: bootstrapped contexts kept ready for hosts that open many windows

# Scopes

Source text runs inside a with block over the mediated window, so every
unqualified name resolves on the delegate. The mediator reports every name
as present: unknown names read as undefined and assignments to new names
land on the delegate. Top-level function declarations are copied onto the
delegate and persist across evaluations; let, const and class declarations
stay local to the evaluation that declared them. The window is the
receiver: top-level this in source text refers to it, and function payloads
are called with it as this. A "use strict" directive has no effect inside
the with block and is logged.

Primitives come from two places. Constructors reachable from literals are
produced with the window scope entered. The rest are copied from the
runtime's unmediated native global (the ambient scope).

# Usage Example

	host := sandbox.NewHost(sandbox.DefaultConfig(), sandbox.WithLogger(logger))

	window := sandbox.NewObject()
	ctx, err := host.NewContext(window)
	if err != nil {
		return err
	}
	defer ctx.Close()

	v, err := ctx.Evaluate("'x'.constructor === String", "check.js")

# Errors

Script failures are returned unchanged: *goja.Exception for thrown values
and syntax errors, *goja.InterruptedError for interruptions. Host errors are
sentinel values (ErrNilDelegate, ErrClosed, ...).

# Concurrency

A host and its contexts are single-threaded. Script may call back into
Evaluate; nested calls push and pop the host's scope stack. The Object
delegate is locked internally so a host can update it between evaluations
from another goroutine.
*/
package sandbox
