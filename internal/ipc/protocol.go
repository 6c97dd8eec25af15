// Package ipc exposes a control-plane socket for conductorctl and any
// other local client (spec.md §4.6): a Unix stream socket under the
// user runtime directory, newline-framed JSON requests capped at 1 MiB,
// routed to named handlers. Every response is `{ok:true, ...}` or
// `{ok:false, error:{kind, message}}`.
package ipc

import (
	"encoding/json"

	"github.com/conductor-hq/conductord/internal/event"
)

// maxMessageBytes bounds a single request line (spec.md §4.6 "each ≤ 1 MiB").
const maxMessageBytes = 1 << 20

// Request is the envelope every line of client input decodes into.
type Request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is the envelope every handler result is serialised as.
type Response struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *errorBody      `json:"error,omitempty"`
}

type errorBody struct {
	Kind    event.ErrorKind `json:"kind"`
	Message string          `json:"message"`
}

func ok(result interface{}) Response {
	body, err := json.Marshal(result)
	if err != nil {
		return errResponse(event.NewInternal(err.Error()))
	}
	return Response{OK: true, Result: body}
}

func errResponse(err *event.Error) Response {
	return Response{OK: false, Error: &errorBody{Kind: err.Kind, Message: err.Error()}}
}

// Status is the result of the "status" handler.
type Status struct {
	Running           bool   `json:"running"`
	Connected         bool   `json:"connected"`
	LifecycleState    string `json:"lifecycle_state"`
	UptimeS           int64  `json:"uptime_s"`
	EventsProcessed   uint64 `json:"events_processed"`
	ConfigReloadCount uint64 `json:"config_reload_count"`
	ActiveMode        string `json:"active_mode"`
	Error             string `json:"error,omitempty"`
}

// PingResult is the result of the "ping" handler.
type PingResult struct {
	LatencyMs int64 `json:"latency_ms"`
}

// SaveConfigParams is the "save_config" request body.
type SaveConfigParams struct {
	Config string `json:"config"`
}

// StartMidiLearnParams is the "start_midi_learn" request body.
type StartMidiLearnParams struct {
	TimeoutS int `json:"timeout_s"`
}

// TestMidiOutputParams is the "test_midi_output" request body.
type TestMidiOutputParams struct {
	Port    string `json:"port"`
	Message []byte `json:"message"`
}
