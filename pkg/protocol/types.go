package protocol

import "encoding/json"

// Request represents a command received from the editor.
// ID is caller-assigned and opaque; the server only echoes it.
type Request struct {
	ID   json.RawMessage `json:"id"`
	Cmd  string          `json:"cmd"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Response represents the reply to a single request. For stream-class
// commands it is the immediate acknowledgment and Started is set.
type Response struct {
	ID      json.RawMessage `json:"id"`
	OK      bool            `json:"ok"`
	Started bool            `json:"started,omitempty"`
	Data    any             `json:"data,omitempty"`
	Meta    any             `json:"meta,omitempty"`
}

// StreamEvent represents one asynchronous event of a stream-class
// command. An "exit" event is terminal for its request id.
type StreamEvent struct {
	ID    json.RawMessage `json:"id"`
	Event string          `json:"event"`
	Data  string          `json:"data,omitempty"`
	Code  *int            `json:"code,omitempty"`
}

// Stream event types.
const (
	EventStdout = "stdout"
	EventStderr = "stderr"
	EventExit   = "exit"
)

// Command constants.
const (
	CmdReadFile   = "readFile"
	CmdWriteFile  = "writeFile"
	CmdListDir    = "listDir"
	CmdListDirs   = "listDirs"
	CmdCreateDir  = "createDir"
	CmdDeleteFile = "deleteFile"
	CmdDeleteDir  = "deleteDir"
	CmdIsDir      = "isDir"
	CmdRename     = "rename"
	CmdExec       = "exec"
	CmdAIChat     = "aiChat"
	CmdSetAPIKey  = "setApiKey"
	CmdAIStatus   = "aiStatus"
	CmdAIApprove  = "aiApprove"
	CmdPing       = "ping"
)

// ExitEvent builds a terminal exit event for the given request id.
func ExitEvent(id json.RawMessage, code int) StreamEvent {
	return StreamEvent{ID: id, Event: EventExit, Code: &code}
}
