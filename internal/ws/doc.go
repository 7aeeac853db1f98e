// Package ws provides live script evaluation for a window over WebSocket.
//
// A client connects to GET /windows/:id/ws and sends JSON frames; each
// frame is answered in order on the same connection. Evaluations share the
// window manager's lock with the REST handlers, so frames and HTTP
// requests against the same window never interleave inside the engine.
//
// Message Types (Client → Server):
//   - evaluate: Run script (with optional filename) in the window
//   - globals: List the window's properties
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - system: Connection accepted
//   - result: Evaluation result, console output included
//   - globals: Property listing
//   - pong: Ping reply
//   - error: Invalid frame or host failure
//
// Every reply carries the id of the frame it answers.
//
// Example Usage:
//
//	handler := ws.NewHandler(manager, logger)
//	router.GET("/windows/:id/ws", handler.HandleConnection)
package ws
