// Package app assembles the window runtime from configuration.
//
// Both the HTTP server and the command-line tool start here: New builds a
// metrics registry, a sandbox host (with an optional primitives file), the
// window manager and the page loader, all sharing one logger.
//
// Example Usage:
//
//	rt, err := app.New(config.LoadOrDefault(), logger.Logger)
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//
//	w, err := rt.Windows.Create(ctx)
package app
