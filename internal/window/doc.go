/*
Package window manages named window contexts for the HTTP API and the CLI.

Each window is a sandbox.Context over a fresh sandbox.Object delegate, with
window, self and top pointing at the window itself and, when enabled, a
console object whose calls are captured per evaluation and mirrored to the
logger.

	manager, _ := window.NewManager(host, window.Config{MaxWindows: 16, Console: true}, logger, metrics)
	w, _ := manager.Create(ctx)
	result, _ := manager.Evaluate(ctx, w.ID(), "console.log('hi'); 1 + 1", "inline.js")
	// result.Value == int64(2), result.Console[0].Message == "hi"

Script failures land in Result.Error; Go errors mean the window is missing
or the host failed. Every method takes the manager lock, so windows may be
driven from many goroutines.
*/
package window
