package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandlers struct {
	status       Status
	reloadErr    error
	validateErr  error
	stopCalled   bool
	devices      []string
	outputs      []string
	config       string
	savedConfig  string
	learnState   LearnState
	learnResult  *LearnResult
}

func (f *fakeHandlers) Status() Status                    { return f.status }
func (f *fakeHandlers) Reload() error                     { return f.reloadErr }
func (f *fakeHandlers) Validate() error                   { return f.validateErr }
func (f *fakeHandlers) Stop() error                       { f.stopCalled = true; return nil }
func (f *fakeHandlers) ListDevices() []string              { return f.devices }
func (f *fakeHandlers) ListMidiOutputPorts() []string       { return f.outputs }
func (f *fakeHandlers) GetConfig() (string, error)          { return f.config, nil }
func (f *fakeHandlers) SaveConfig(toml string) error        { f.savedConfig = toml; return nil }
func (f *fakeHandlers) StartMidiLearn(timeoutS int) error   { return nil }
func (f *fakeHandlers) GetMidiLearnStatus() LearnState      { return f.learnState }
func (f *fakeHandlers) CancelMidiLearn()                    {}
func (f *fakeHandlers) GetMidiLearnResult() *LearnResult    { return f.learnResult }
func (f *fakeHandlers) TestMidiOutput(port string, message []byte) error { return nil }

func startTestServer(t *testing.T, h Handlers) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conductor.sock")
	s := New(path, h)
	require.NoError(t, s.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	go s.Serve(ctx)
	t.Cleanup(func() {
		cancel()
		s.Close()
	})
	return path
}

func roundTrip(t *testing.T, path string, req Request) Response {
	t.Helper()
	conn, err := net.DialTimeout("unix", path, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	body, err := json.Marshal(req)
	require.NoError(t, err)
	_, err = conn.Write(append(body, '\n'))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	scanner := bufio.NewScanner(conn)
	require.True(t, scanner.Scan())
	var resp Response
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
	return resp
}

func TestServerPingSucceeds(t *testing.T) {
	path := startTestServer(t, &fakeHandlers{})
	resp := roundTrip(t, path, Request{Method: "ping"})
	assert.True(t, resp.OK)
}

func TestServerStatusReturnsHandlerData(t *testing.T) {
	h := &fakeHandlers{status: Status{Running: true, ActiveMode: "gaming", EventsProcessed: 42}}
	path := startTestServer(t, h)
	resp := roundTrip(t, path, Request{Method: "status"})
	require.True(t, resp.OK)
	var st Status
	require.NoError(t, json.Unmarshal(resp.Result, &st))
	assert.Equal(t, "gaming", st.ActiveMode)
	assert.EqualValues(t, 42, st.EventsProcessed)
}

func TestServerUnknownMethodReturnsProtocolError(t *testing.T) {
	path := startTestServer(t, &fakeHandlers{})
	resp := roundTrip(t, path, Request{Method: "nonsense"})
	require.False(t, resp.OK)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "IpcProtocol", string(resp.Error.Kind))
}

func TestServerReloadPropagatesHandlerError(t *testing.T) {
	h := &fakeHandlers{reloadErr: assertableErr()}
	path := startTestServer(t, h)
	resp := roundTrip(t, path, Request{Method: "reload"})
	assert.False(t, resp.OK)
	require.NotNil(t, resp.Error)
}

func TestServerSaveConfigPassesThroughParams(t *testing.T) {
	h := &fakeHandlers{}
	path := startTestServer(t, h)
	params, err := json.Marshal(SaveConfigParams{Config: "[device]\nname=\"x\""})
	require.NoError(t, err)
	resp := roundTrip(t, path, Request{Method: "save_config", Params: params})
	require.True(t, resp.OK)
	assert.Equal(t, "[device]\nname=\"x\"", h.savedConfig)
}

func TestServerStopInvokesHandler(t *testing.T) {
	h := &fakeHandlers{}
	path := startTestServer(t, h)
	resp := roundTrip(t, path, Request{Method: "stop"})
	require.True(t, resp.OK)
	assert.True(t, h.stopCalled)
}

func assertableErr() error {
	return &testErr{}
}

type testErr struct{}

func (*testErr) Error() string { return "reload failed" }
