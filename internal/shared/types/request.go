package types

// EvaluateRequest asks a window to run a script
type EvaluateRequest struct {
	Script   string `json:"script" binding:"required"`
	Filename string `json:"filename"`
}

// LoadRequest asks a window to run the scripts of a page
type LoadRequest struct {
	URL string `json:"url" binding:"required"`
}

// WSMessage is a client frame on a window stream
type WSMessage struct {
	Type     string `json:"type"`
	ID       string `json:"id,omitempty"` // Echoed in the reply
	Script   string `json:"script,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// WSMessage types
const (
	WSEvaluate = "evaluate"
	WSGlobals  = "globals"
	WSPing     = "ping"
)
