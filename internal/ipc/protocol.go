package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// OpStatus is answered by the server itself rather than the host's operation
// table.
const OpStatus = "status"

// Request is one IPC request line. Payload is handed to the named operation
// unchanged; the response line is the operation's {ok|err} envelope.
type Request struct {
	Op      string          `json:"op"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// StatusData is the ok payload of the status op.
type StatusData struct {
	Backend       string   `json:"backend"`
	Instances     []uint32 `json:"instances"`
	UptimeSeconds int64    `json:"uptime_seconds"`
}

// RemoteError is an err envelope returned by the daemon.
type RemoteError struct {
	Op      string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// ParseRequest parses a request from JSON bytes.
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	if req.Op == "" {
		return nil, errors.New("missing op")
	}
	if len(req.Payload) == 0 {
		req.Payload = json.RawMessage("{}")
	}
	return &req, nil
}

// Marshal converts a request to a single JSON line.
func (r *Request) Marshal() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
