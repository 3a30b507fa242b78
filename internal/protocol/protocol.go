// Package protocol defines fswatchd's NDJSON wire types: one JSON object
// per line, requests discriminated by a "cmd" field, responses
// discriminated by their field set.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Request is a single client request, discriminated by Cmd.
type Request struct {
	Cmd        string `json:"cmd"`
	Root       string `json:"root,omitempty"`
	Path       string `json:"path,omitempty"`
	Glob       string `json:"glob,omitempty"`
	Persistent bool   `json:"persistent,omitempty"`
	Key        string `json:"key,omitempty"`
}

const (
	CmdHash    = "hash"
	CmdWatch   = "watch"
	CmdUnwatch = "unwatch"
)

// ParseRequest decodes a single NDJSON request line and validates that it
// carries the fields its cmd requires.
func ParseRequest(line []byte) (Request, error) {
	var request Request
	if err := json.Unmarshal(line, &request); err != nil {
		return Request{}, fmt.Errorf("malformed request: %w", err)
	}

	switch request.Cmd {
	case CmdHash, CmdWatch:
		if request.Root == "" || request.Path == "" || request.Glob == "" {
			return Request{}, fmt.Errorf("%q request requires root, path, and glob", request.Cmd)
		}
	case CmdUnwatch:
		if request.Key == "" {
			return Request{}, fmt.Errorf("%q request requires key", request.Cmd)
		}
	case "":
		return Request{}, fmt.Errorf("request missing cmd field")
	default:
		return Request{}, fmt.Errorf("unrecognized cmd %q", request.Cmd)
	}

	return request, nil
}

// HashResponse reports the result of a hash request.
type HashResponse struct {
	Hash      string `json:"hash"`
	FileCount int    `json:"file_count"`
}

// WatchResponse acknowledges a watch request with its subscription key.
type WatchResponse struct {
	Key string `json:"key"`
}

// OKResponse is a generic success acknowledgement.
type OKResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse reports a request-level failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Event is an unsolicited notification that the file set identified by Key
// changed at the listed paths.
type Event struct {
	Key   string   `json:"key"`
	Paths []string `json:"paths"`
}

// Marshal serializes any response or event value as a single JSON line
// terminated with '\n', ready to be written directly to a connection.
func Marshal(v interface{}) ([]byte, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(encoded, '\n'), nil
}
