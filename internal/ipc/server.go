package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/conductor-hq/conductord/internal/event"
)

// Handlers is implemented by the daemon; the server is otherwise
// transport-only and carries no domain logic of its own.
type Handlers interface {
	Status() Status
	Reload() error
	Validate() error
	Stop() error
	ListDevices() []string
	ListMidiOutputPorts() []string
	GetConfig() (string, error)
	SaveConfig(toml string) error
	StartMidiLearn(timeoutS int) error
	GetMidiLearnStatus() LearnState
	CancelMidiLearn()
	GetMidiLearnResult() *LearnResult
	TestMidiOutput(port string, message []byte) error
}

// Server owns the control socket (spec.md §4.6, §6).
type Server struct {
	path     string
	handlers Handlers
	ln       net.Listener
}

// New creates a Server for path without touching the filesystem; Listen
// creates the parent directory if missing and removes any stale socket
// file from a prior run before binding.
func New(path string, handlers Handlers) *Server {
	return &Server{path: path, handlers: handlers}
}

// Listen binds the socket with 0600 permissions (spec.md §6).
func (s *Server) Listen() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return event.NewInternal(fmt.Sprintf("creating socket directory: %v", err))
	}
	_ = os.Remove(s.path) // stale socket from an unclean prior shutdown

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return event.NewInternal(fmt.Sprintf("binding %s: %v", s.path, err))
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		ln.Close()
		return event.NewInternal(fmt.Sprintf("chmod %s: %v", s.path, err))
	}
	s.ln = ln
	return nil
}

// Serve accepts connections until ctx is cancelled or the listener is
// closed. Each connection is handled on its own goroutine; concurrent
// requests are permitted (spec.md §4.6).
func (s *Server) Serve(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[IPC] accept error: %v", err)
			return
		}
		go s.handleConn(conn)
	}
}

// Close removes the socket file.
func (s *Server) Close() error {
	if s.ln != nil {
		s.ln.Close()
	}
	return os.Remove(s.path)
}

func (s *Server) handleConn(conn net.Conn) {
	connID := uuid.NewString()
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageBytes)
	writer := bufio.NewWriter(conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		resp := s.dispatch(line)
		body, err := json.Marshal(resp)
		if err != nil {
			log.Printf("[IPC] %s: encoding response: %v", connID, err)
			return
		}
		if _, err := writer.Write(body); err != nil {
			return
		}
		if _, err := writer.WriteString("\n"); err != nil {
			return
		}
		if err := writer.Flush(); err != nil {
			return
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, bufio.ErrTooLong) {
		log.Printf("[IPC] %s: connection read error: %v", connID, err)
	}
}

func (s *Server) dispatch(line []byte) Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return errResponse(event.NewIPCProtocol("malformed request: " + err.Error()))
	}

	switch req.Method {
	case "ping":
		start := time.Now()
		return ok(PingResult{LatencyMs: time.Since(start).Milliseconds()})
	case "status":
		return ok(s.handlers.Status())
	case "reload":
		if err := s.handlers.Reload(); err != nil {
			return errResponse(asIPCError(err))
		}
		return ok(struct{}{})
	case "validate":
		if err := s.handlers.Validate(); err != nil {
			return errResponse(asIPCError(err))
		}
		return ok(struct{}{})
	case "stop":
		if err := s.handlers.Stop(); err != nil {
			return errResponse(asIPCError(err))
		}
		return ok(struct{}{})
	case "list_devices":
		return ok(s.handlers.ListDevices())
	case "list_midi_output_ports":
		return ok(s.handlers.ListMidiOutputPorts())
	case "get_config":
		cfg, err := s.handlers.GetConfig()
		if err != nil {
			return errResponse(asIPCError(err))
		}
		return ok(map[string]string{"config": cfg})
	case "save_config":
		var p SaveConfigParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return errResponse(event.NewIPCProtocol("malformed save_config params"))
		}
		if err := s.handlers.SaveConfig(p.Config); err != nil {
			return errResponse(asIPCError(err))
		}
		return ok(struct{}{})
	case "start_midi_learn":
		var p StartMidiLearnParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return errResponse(event.NewIPCProtocol("malformed start_midi_learn params"))
		}
		if err := s.handlers.StartMidiLearn(p.TimeoutS); err != nil {
			return errResponse(asIPCError(err))
		}
		return ok(struct{}{})
	case "get_midi_learn_status":
		return ok(map[string]LearnState{"state": s.handlers.GetMidiLearnStatus()})
	case "cancel_midi_learn":
		s.handlers.CancelMidiLearn()
		return ok(struct{}{})
	case "get_midi_learn_result":
		res := s.handlers.GetMidiLearnResult()
		return ok(map[string]*LearnResult{"result": res})
	case "test_midi_output":
		var p TestMidiOutputParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return errResponse(event.NewIPCProtocol("malformed test_midi_output params"))
		}
		if err := s.handlers.TestMidiOutput(p.Port, p.Message); err != nil {
			return errResponse(asIPCError(err))
		}
		return ok(struct{}{})
	default:
		return errResponse(event.NewIPCProtocol("unknown method: " + req.Method))
	}
}

func asIPCError(err error) *event.Error {
	var e *event.Error
	if errors.As(err, &e) {
		return e
	}
	return event.NewInternal(err.Error())
}

// DefaultPath returns the canonical socket path under the user runtime
// directory (spec.md §6: "$XDG_RUNTIME_DIR/conductor/conductor.sock").
func DefaultPath() string {
	if rt := os.Getenv("XDG_RUNTIME_DIR"); rt != "" {
		return filepath.Join(rt, "conductor", "conductor.sock")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("conductor-%d", os.Getuid()), "conductor.sock")
}
