// Package daemon composes every component into the running conductord
// process (spec.md §4.7): load config, restore state, enumerate
// devices, spawn adapters, engine, executor, plugin host, IPC server;
// on signal, broadcast shutdown, drain in-flight action trees up to a
// bounded deadline, save state, close sockets, exit.
package daemon

import (
	"context"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/conductor-hq/conductord/internal/config"
	"github.com/conductor-hq/conductord/internal/engine"
	"github.com/conductor-hq/conductord/internal/event"
	"github.com/conductor-hq/conductord/internal/executor"
	"github.com/conductor-hq/conductord/internal/input"
	"github.com/conductor-hq/conductord/internal/ipc"
	"github.com/conductor-hq/conductord/internal/plugin"
	"github.com/conductor-hq/conductord/internal/state"
)

// drainTimeout bounds how long shutdown waits for in-flight action trees
// to finish before proceeding anyway (spec.md §4.7 "e.g., 5 s").
const drainTimeout = 5 * time.Second

// LifecycleState is the coarse state status/IPC callers observe.
type LifecycleState string

const (
	StateStarting LifecycleState = "starting"
	StateRunning  LifecycleState = "running"
	StateDraining LifecycleState = "draining"
	StateStopped  LifecycleState = "stopped"
)

// Daemon owns every long-lived subsystem and implements ipc.Handlers.
type Daemon struct {
	configPath string

	cfgStore   *config.Store
	stateStore *state.Store
	engine     *engine.Engine
	executor   *executor.Executor
	pluginHost *plugin.Host
	ipcServer  *ipc.Server
	midi       *input.MidiAdapter
	gamepad    *input.GamepadAdapter
	learn      *ipc.LearnSession

	mu            sync.Mutex
	lifecycle     LifecycleState
	startedAt     time.Time
	lastError     string
	inFlight      sync.WaitGroup
	stopOnce      sync.Once
	shutdownCh    chan struct{}
	eventsCounted atomic.Uint64
}

// New constructs every component from the configuration at configPath
// but does not start anything yet (call Run to start).
func New(configPath string) (*Daemon, error) {
	cfgStore, err := config.New(configPath)
	if err != nil {
		return nil, err
	}
	stStore, err := state.Open(state.DefaultPath(configPath))
	if err != nil {
		return nil, err
	}

	cfg := cfgStore.Current()
	activeMode := stStore.Snapshot().ActiveMode
	if cfg.ModeByName(activeMode) == nil && len(cfg.Modes) > 0 {
		activeMode = cfg.Modes[0].Name
	}
	eng := engine.New(cfg, activeMode)

	midiAdapter := input.NewMidiAdapter(cfg.DevicePrefs.Name, cfg.DevicePrefs.AutoConnect)
	gamepadAdapter := input.NewGamepadAdapter()

	d := &Daemon{
		configPath: configPath,
		cfgStore:   cfgStore,
		stateStore: stStore,
		engine:     eng,
		midi:       midiAdapter,
		gamepad:    gamepadAdapter,
		learn:      ipc.NewLearnSession(),
		lifecycle:  StateStarting,
		shutdownCh: make(chan struct{}),
	}

	d.pluginHost = plugin.New(context.Background(), plugin.Limits{})
	d.executor = executor.New(executor.ShellPolicy{}, nil, nil, midiAdapter, d.pluginHost, d, input.ProcessAppQuery{}, d.engine.ActiveMode)
	d.ipcServer = ipc.New(ipc.DefaultPath(), d)

	cfgStore.OnReload(func(cfg *event.Configuration) {
		d.engine.SetConfiguration(cfg)
		d.reloadPlugins()
	})
	return d, nil
}

// Run loads plugins, starts every adapter and the IPC server, and blocks
// until ctx is cancelled, at which point it drains and shuts down.
func (d *Daemon) Run(ctx context.Context) error {
	d.mu.Lock()
	d.startedAt = time.Now()
	d.lifecycle = StateRunning
	d.mu.Unlock()

	d.loadPlugins(ctx)

	if err := d.ipcServer.Listen(); err != nil {
		return err
	}
	log.Printf("[Daemon] IPC listening")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go d.ipcServer.Serve(runCtx)
	go d.cfgStore.Watch(runCtx)
	go d.midi.Start(runCtx, d.dispatch)
	go d.gamepad.Start(runCtx, d.dispatch)
	go d.runTimers(runCtx)

	notifyReady()

	watchdog := time.NewTicker(10 * time.Second)
	defer watchdog.Stop()
	for {
		select {
		case <-ctx.Done():
			d.shutdown()
			return nil
		case <-watchdog.C:
			notifyWatchdog()
		}
	}
}

func (d *Daemon) loadPlugins(ctx context.Context) {
	for _, spec := range d.cfgStore.PluginSpecs() {
		data, err := os.ReadFile(spec.Path)
		if err != nil {
			log.Printf("[Daemon] plugin %q: %v", spec.ID, err)
			continue
		}
		if err := d.pluginHost.Load(ctx, spec.ID, data, spec.Capabilities); err != nil {
			log.Printf("[Daemon] plugin %q failed to load: %v", spec.ID, err)
		}
	}
}

// reloadPlugins re-loads every plugin named in the current manifest after
// a config reload. Plugins are cheap to recompile and the host keys them
// by id, so a changed capability grant or path simply replaces the prior
// entry.
func (d *Daemon) reloadPlugins() {
	d.loadPlugins(context.Background())
}

// dispatch is the single entry point every adapter funnels normalised
// events through: match, then dispatch the resulting action tree without
// blocking the caller (spec.md §5 "the engine never blocks on an
// action").
func (d *Daemon) dispatch(ev event.Event) {
	d.eventsCounted.Add(1)
	d.stateStore.IncEventsProcessed()

	if d.learn.Status() == ipc.LearnActive {
		d.learn.Offer(ev)
	}

	match := d.engine.Process(ev)
	if match == nil {
		return
	}
	d.dispatchMatch(match, ev)
}

// dispatchMatch runs a matched mapping's action tree in its own goroutine
// so the caller -- an input adapter or the timer loop -- never blocks on
// it (spec.md §5 "the engine never blocks on an action").
func (d *Daemon) dispatchMatch(match *engine.Match, ev event.Event) {
	d.inFlight.Add(1)
	go func() {
		defer d.inFlight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		ac := &executor.ActionContext{
			ResolvedVelocity: match.Velocity,
			Band:             match.Band,
			Timestamp:        match.Timestamp,
			TriggeringEvent:  ev,
			ActiveMode:       d.engine.ActiveMode(),
		}
		if err := d.executor.Execute(ctx, &match.Mapping.Action, ac); err != nil {
			d.stateStore.IncActionsFailed()
			d.setLastError(err)
			log.Printf("[Daemon] action failed: %v", err)
		} else {
			d.stateStore.IncActionsExecuted()
		}
	}()
}

// runTimers wakes the engine at its earliest pending deadline to let a
// LongPress fire or an incomplete NoteChord abandon in favor of its
// deferred single-note mappings (spec.md §4.1 "Pending-timer handling").
// It drains every timer due at a given wakeup before recomputing the next
// deadline, and idles on a coarse poll when nothing is pending so a
// mapping added by a later config reload is still picked up.
func (d *Daemon) runTimers(ctx context.Context) {
	const idlePoll = time.Second

	timer := time.NewTimer(idlePoll)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		now := time.Now()
		for {
			match := d.engine.Tick(now)
			if match == nil {
				break
			}
			d.dispatchMatch(match, event.Event{Timestamp: match.Timestamp})
		}

		wait := idlePoll
		if deadline, ok := d.engine.NextDeadline(); ok {
			if until := time.Until(deadline); until < wait {
				wait = until
			}
		}
		if wait < 0 {
			wait = 0
		}
		timer.Reset(wait)
	}
}

func (d *Daemon) shutdown() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.lifecycle = StateDraining
		d.mu.Unlock()
		notifyStopping()
		log.Printf("[Daemon] draining in-flight actions (up to %s)", drainTimeout)

		done := make(chan struct{})
		go func() {
			d.inFlight.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(drainTimeout):
			log.Printf("[Daemon] drain deadline exceeded, shutting down anyway")
		}

		d.stateStore.SetActiveMode(d.engine.ActiveMode())
		if err := d.stateStore.Save(); err != nil {
			log.Printf("[Daemon] failed to save state: %v", err)
		}
		if err := d.ipcServer.Close(); err != nil {
			log.Printf("[Daemon] failed to close IPC socket: %v", err)
		}
		if err := d.pluginHost.Close(context.Background()); err != nil {
			log.Printf("[Daemon] failed to close plugin host: %v", err)
		}
		close(d.shutdownCh)
		d.mu.Lock()
		d.lifecycle = StateStopped
		d.mu.Unlock()
		log.Printf("[Daemon] stopped")
	})
}

// Done is closed once shutdown completes.
func (d *Daemon) Done() <-chan struct{} { return d.shutdownCh }

// SetMode implements executor.ModeChanger.
func (d *Daemon) SetMode(name string) error {
	return d.engine.SetActiveMode(name)
}

// NextMode implements executor.ModeChanger.
func (d *Daemon) NextMode() error {
	names := d.cfgStore.Current().ModeNames()
	return d.engine.SetActiveMode(adjacentMode(names, d.engine.ActiveMode(), 1))
}

// PrevMode implements executor.ModeChanger.
func (d *Daemon) PrevMode() error {
	names := d.cfgStore.Current().ModeNames()
	return d.engine.SetActiveMode(adjacentMode(names, d.engine.ActiveMode(), -1))
}

// setLastError records the most recent failure surfaced to IPC status
// callers (spec.md §3 "last_error?"), under the same mutex guarding the
// other lifecycle fields.
func (d *Daemon) setLastError(err error) {
	d.mu.Lock()
	d.lastError = err.Error()
	d.mu.Unlock()
}

func adjacentMode(names []string, current string, delta int) string {
	if len(names) == 0 {
		return current
	}
	idx := 0
	for i, n := range names {
		if n == current {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(names)) % len(names)
	return names[idx]
}

