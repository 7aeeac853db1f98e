// Package types provides the request and message shapes of the window API.
//
// Request Types:
//   - EvaluateRequest: script plus optional filename
//   - LoadRequest: page URL whose scripts run in a window
//   - WSMessage: frames on a window stream (evaluate, globals, ping)
//
// Example Usage:
//
//	var req types.EvaluateRequest
//	if err := c.ShouldBindJSON(&req); err != nil {
//	    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
//	    return
//	}
package types
