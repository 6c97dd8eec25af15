package daemon

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/conductor-hq/conductord/internal/config"
	"github.com/conductor-hq/conductord/internal/event"
	"github.com/conductor-hq/conductord/internal/ipc"
)

// Status implements ipc.Handlers.
func (d *Daemon) Status() ipc.Status {
	d.mu.Lock()
	lifecycle := d.lifecycle
	started := d.startedAt
	lastErr := d.lastError
	d.mu.Unlock()

	snap := d.stateStore.Snapshot()
	uptime := int64(0)
	if !started.IsZero() {
		uptime = int64(time.Since(started).Seconds())
	}
	return ipc.Status{
		Running:           lifecycle == StateRunning,
		Connected:         d.midi != nil,
		LifecycleState:    string(lifecycle),
		UptimeS:           uptime,
		EventsProcessed:   snap.EventsProcessed,
		ConfigReloadCount: snap.ConfigReloadCount,
		ActiveMode:        d.engine.ActiveMode(),
		Error:             lastErr,
	}
}

// Reload implements ipc.Handlers: re-read and re-validate the config file,
// applying it atomically on success (spec.md §4.6 "reload").
func (d *Daemon) Reload() error {
	if err := d.cfgStore.Reload(); err != nil {
		d.setLastError(err)
		return err
	}
	d.stateStore.IncConfigReloadCount()
	return nil
}

// Validate implements ipc.Handlers: parse and validate without applying
// (spec.md §4.6 "validate").
func (d *Daemon) Validate() error {
	return config.Validate(d.configPath)
}

// Stop implements ipc.Handlers: request graceful shutdown asynchronously
// so the response can still be written back over the socket that asked
// for it.
func (d *Daemon) Stop() error {
	go d.shutdown()
	return nil
}

// ListDevices implements ipc.Handlers: enumerate connected input devices
// (MIDI input ports plus watched gamepad nodes), distinct from the MIDI
// output ports SendMidi actions target.
func (d *Daemon) ListDevices() []string {
	devices := d.midi.ListInputs()
	devices = append(devices, d.gamepad.ListDevices()...)
	return devices
}

// ListMidiOutputPorts implements ipc.Handlers.
func (d *Daemon) ListMidiOutputPorts() []string {
	return d.midi.ListOutputs()
}

// GetConfig implements ipc.Handlers: return the raw file contents of the
// currently-applied configuration.
func (d *Daemon) GetConfig() (string, error) {
	data, err := os.ReadFile(d.configPath)
	if err != nil {
		return "", event.NewConfigIO(d.configPath, err.Error())
	}
	return string(data), nil
}

// SaveConfig implements ipc.Handlers: validate the supplied TOML before
// writing it, then trigger a reload (spec.md §4.6 "save_config validates
// before writing").
func (d *Daemon) SaveConfig(tomlText string) error {
	var probe map[string]interface{}
	if _, err := toml.Decode(tomlText, &probe); err != nil {
		return event.NewConfigInvalid(d.configPath, "malformed TOML: "+err.Error(), 0)
	}
	tmp := d.configPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(tomlText), 0o600); err != nil {
		return event.NewConfigIO(d.configPath, err.Error())
	}
	if err := config.Validate(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, d.configPath); err != nil {
		os.Remove(tmp)
		return event.NewConfigIO(d.configPath, err.Error())
	}
	return d.Reload()
}

// StartMidiLearn implements ipc.Handlers.
func (d *Daemon) StartMidiLearn(timeoutS int) error {
	if timeoutS <= 0 {
		timeoutS = 10
	}
	return d.learn.Start(time.Duration(timeoutS) * time.Second)
}

// GetMidiLearnStatus implements ipc.Handlers.
func (d *Daemon) GetMidiLearnStatus() ipc.LearnState {
	return d.learn.Status()
}

// CancelMidiLearn implements ipc.Handlers.
func (d *Daemon) CancelMidiLearn() {
	d.learn.Cancel()
}

// GetMidiLearnResult implements ipc.Handlers.
func (d *Daemon) GetMidiLearnResult() *ipc.LearnResult {
	return d.learn.Result()
}

// TestMidiOutput implements ipc.Handlers: send a message straight out the
// named port, bypassing the engine entirely.
func (d *Daemon) TestMidiOutput(port string, message []byte) error {
	return d.midi.SendTo(port, message)
}
