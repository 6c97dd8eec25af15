package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/conductor-hq/conductord/internal/config"
	"github.com/conductor-hq/conductord/internal/ipc"
)

// Exit codes (spec.md §6): 0 ok, 1 connect/IPC failure (socket
// missing/refused, or an unreadable/malformed response), 2 daemon-reported
// error, 3 validation failure.
const (
	exitOK = iota
	exitUnreachable
	exitDaemonError
	exitValidationFailure
)

var CLI struct {
	Socket string `help:"Path to the control socket" type:"path" name:"socket"`

	Status   struct{} `cmd:"" help:"Print daemon status"`
	Ping     struct{} `cmd:"" help:"Check the daemon is responsive"`
	Validate struct {
		Config string `help:"Path to the config file to validate" type:"path" arg:"" optional:""`
	} `cmd:"" help:"Validate the active configuration"`
	Reload struct{} `cmd:"" help:"Reload the configuration"`
	Stop    struct{} `cmd:"" help:"Request graceful shutdown"`
}

func main() {
	log.SetFlags(0)
	ctx := kong.Parse(&CLI)

	socketPath := CLI.Socket
	if socketPath == "" {
		socketPath = ipc.DefaultPath()
	}

	// "validate <path>" checks a file directly, without needing a running
	// daemon; bare "validate" asks the daemon to re-check the file it
	// currently has loaded.
	if ctx.Command() == "validate <config>" || (ctx.Command() == "validate" && CLI.Validate.Config != "") {
		if err := config.Validate(CLI.Validate.Config); err != nil {
			fmt.Fprintf(os.Stderr, "conductorctl: %v\n", err)
			os.Exit(exitValidationFailure)
		}
		fmt.Println("ok")
		os.Exit(exitOK)
	}

	var req ipc.Request
	switch ctx.Command() {
	case "status":
		req = ipc.Request{Method: "status"}
	case "ping":
		req = ipc.Request{Method: "ping"}
	case "validate":
		req = ipc.Request{Method: "validate"}
	case "reload":
		req = ipc.Request{Method: "reload"}
	case "stop":
		req = ipc.Request{Method: "stop"}
	default:
		log.Fatal("unknown command")
	}

	resp, err := call(socketPath, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "conductorctl: %v\n", err)
		os.Exit(exitUnreachable)
	}
	if !resp.OK {
		fmt.Fprintf(os.Stderr, "conductorctl: %s: %s\n", resp.Error.Kind, resp.Error.Message)
		if ctx.Command() == "validate" {
			os.Exit(exitValidationFailure)
		}
		os.Exit(exitDaemonError)
	}

	printResult(ctx.Command(), resp)
	os.Exit(exitOK)
}

func call(socketPath string, req ipc.Request) (*responseEnvelope, error) {
	conn, err := net.DialTimeout("unix", socketPath, 3*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", socketPath, err)
	}
	defer conn.Close()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(append(body, '\n')); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}
		return nil, fmt.Errorf("connection closed with no response")
	}

	var resp responseEnvelope
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	return &resp, nil
}

// responseEnvelope mirrors ipc.Response but keeps Result raw for
// command-specific decoding.
type responseEnvelope struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *errorBody      `json:"error,omitempty"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func printResult(command string, resp *responseEnvelope) {
	switch command {
	case "status":
		var st ipc.Status
		if err := json.Unmarshal(resp.Result, &st); err != nil {
			fmt.Fprintf(os.Stderr, "conductorctl: malformed response: %v\n", err)
			os.Exit(exitUnreachable)
		}
		fmt.Printf("running=%v state=%s mode=%s uptime=%ds events=%d reloads=%d\n",
			st.Running, st.LifecycleState, st.ActiveMode, st.UptimeS, st.EventsProcessed, st.ConfigReloadCount)
	case "ping":
		var p ipc.PingResult
		if err := json.Unmarshal(resp.Result, &p); err == nil {
			fmt.Printf("pong (%dms)\n", p.LatencyMs)
		}
	default:
		fmt.Println("ok")
	}
}
