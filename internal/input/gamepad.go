// Package input adapts physical devices into the normalised event.Event
// stream the mapping engine consumes (spec.md §4.7 "adapters"). The
// gamepad adapter generalises the teacher's /dev/input activity-scanning
// technique (internal/monitor.IdleMonitor): same glob-then-watch
// discovery and the same js_event wire layout, but decoding button/axis
// identity and value instead of merely timestamping "something moved".
package input

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conductor-hq/conductord/internal/event"
)

// Emit receives one normalised event from an adapter.
type Emit func(event.Event)

// GamepadAdapter watches /dev/input/js* joystick nodes and decodes the
// kernel's js_event records (8 bytes: u32 time, s16 value, u8 type, u8
// number) directly, same as the teacher's idle-activity scanner.
type GamepadAdapter struct {
	deadzone int16 // |value| below this on an axis is not reported

	mu      sync.Mutex
	watched map[string]bool
}

// NewGamepadAdapter creates an adapter with the teacher's ~12% deadzone
// default (4000/32767).
func NewGamepadAdapter() *GamepadAdapter {
	return &GamepadAdapter{deadzone: 4000, watched: make(map[string]bool)}
}

// Start scans for existing joystick nodes, watches /dev/input for hotplug,
// and emits a normalised event.Event for every button/axis record it
// decodes. It never returns an error for a missing /dev/input -- a
// headless or gamepad-less host is a normal, not a fatal, configuration.
func (a *GamepadAdapter) Start(ctx context.Context, emit Emit) {
	if err := a.scanAndWatch(ctx, emit); err != nil {
		log.Printf("[Gamepad] initial scan failed: %v", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("[Gamepad] hotplug watcher unavailable: %v", err)
		return
	}
	if err := watcher.Add("/dev/input"); err != nil {
		log.Printf("[Gamepad] cannot watch /dev/input: %v", err)
		watcher.Close()
		return
	}
	go a.handleHotplug(ctx, watcher, emit)
}

func (a *GamepadAdapter) scanAndWatch(ctx context.Context, emit Emit) error {
	joysticks, err := filepath.Glob("/dev/input/js*")
	if err != nil {
		return err
	}
	log.Printf("[Gamepad] found %d joystick device(s)", len(joysticks))
	for _, path := range joysticks {
		go a.watchDevice(ctx, path, emit)
	}
	return nil
}

func (a *GamepadAdapter) handleHotplug(ctx context.Context, watcher *fsnotify.Watcher, emit Emit) {
	defer watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create == 0 {
				continue
			}
			if match, _ := filepath.Match("js*", filepath.Base(ev.Name)); match {
				log.Printf("[Gamepad] hotplug: new device %s", ev.Name)
				time.Sleep(100 * time.Millisecond)
				go a.watchDevice(ctx, ev.Name, emit)
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[Gamepad] hotplug watcher error: %v", werr)
		}
	}
}

// ListDevices returns the joystick device nodes currently being watched,
// for the IPC list_devices response.
func (a *GamepadAdapter) ListDevices() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := make([]string, 0, len(a.watched))
	for path := range a.watched {
		names = append(names, path)
	}
	sort.Strings(names)
	return names
}

const jsEventSize = 8

// js_event type byte flags (linux/joystick.h).
const (
	jsEventButton = 0x01
	jsEventAxis   = 0x02
	jsEventInit   = 0x80
)

func (a *GamepadAdapter) watchDevice(ctx context.Context, path string, emit Emit) {
	a.mu.Lock()
	if a.watched[path] {
		a.mu.Unlock()
		return
	}
	a.watched[path] = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		delete(a.watched, path)
		a.mu.Unlock()
	}()

	file, err := os.Open(path)
	if err != nil {
		log.Printf("[Gamepad] failed to open %s: %v", path, err)
		return
	}
	defer file.Close()
	log.Printf("[Gamepad] watching %s", path)

	buf := make([]byte, jsEventSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := file.Read(buf)
		if err != nil {
			log.Printf("[Gamepad] %s disconnected: %v", path, err)
			return
		}
		if n < jsEventSize {
			continue
		}
		a.decode(buf, emit)
	}
}

func (a *GamepadAdapter) decode(buf []byte, emit Emit) {
	typeByte := buf[6]
	number := int(buf[7])
	if typeByte&jsEventInit != 0 {
		return // synthetic startup-state replay, not live input
	}
	val := int16(uint16(buf[4]) | uint16(buf[5])<<8)
	now := time.Now()

	switch typeByte & 0x7f {
	case jsEventButton:
		emit(event.Event{
			Kind: event.KindGamepadButton, Timestamp: now,
			ButtonID: number, Pressed: val != 0,
		})
	case jsEventAxis:
		if val > -a.deadzone && val < a.deadzone {
			return
		}
		emit(event.Event{
			Kind: event.KindGamepadAxis, Timestamp: now,
			AxisID: number, AxisVal: float64(val) / 32767.0,
		})
	}
}
