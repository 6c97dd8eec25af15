// Package config loads, validates, and hot-reloads conductor.toml
// (spec.md §3, §6). A Store never exposes a partially-applied
// configuration: reload builds and validates an entirely new
// event.Configuration off to the side and only then swaps the pointer
// live readers see. A reload that fails validation logs the failure and
// leaves the previous snapshot in place.
package config

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"

	"github.com/conductor-hq/conductord/internal/event"
)

// reloadDebounce coalesces the burst of fsnotify events a single editor
// save tends to produce (write-then-rename, multiple WRITE events) into
// one reload.
const reloadDebounce = 500 * time.Millisecond

// Store owns the live configuration snapshot and its plugin manifest.
type Store struct {
	path    string
	current atomic.Pointer[event.Configuration]
	plugins atomic.Pointer[[]pluginSpec]

	onReload func(*event.Configuration)
}

// New loads path once synchronously; the returned Store has no watcher
// until Watch is called.
func New(path string) (*Store, error) {
	s := &Store{path: path}
	cfg, specs, err := load(path)
	if err != nil {
		return nil, err
	}
	s.current.Store(cfg)
	s.plugins.Store(&specs)
	return s, nil
}

// Current returns the active, validated configuration snapshot.
func (s *Store) Current() *event.Configuration {
	return s.current.Load()
}

// PluginSpecs returns the active plugin manifest.
func (s *Store) PluginSpecs() []pluginSpec {
	if p := s.plugins.Load(); p != nil {
		return *p
	}
	return nil
}

// OnReload registers a callback invoked after every successful reload,
// with the new configuration; the new plugin manifest is available from
// PluginSpecs by then. Only one callback is supported; the daemon is the
// sole subscriber.
func (s *Store) OnReload(fn func(*event.Configuration)) {
	s.onReload = fn
}

// Reload re-reads and re-validates the config file, swapping the live
// snapshot only on success (spec.md §3: "atomic apply, or reject the
// whole file and keep the current configuration").
func (s *Store) Reload() error {
	cfg, specs, err := load(s.path)
	if err != nil {
		log.Printf("[Config] reload rejected: %v", err)
		return err
	}
	s.current.Store(cfg)
	s.plugins.Store(&specs)
	log.Printf("[Config] reloaded %s (%d modes, %d global mappings)", s.path, len(cfg.Modes), len(cfg.GlobalMappings))
	if s.onReload != nil {
		s.onReload(cfg)
	}
	return nil
}

// Watch debounce-reloads on filesystem changes to path until ctx is
// cancelled. Errors setting up the watcher are logged, not fatal: the
// daemon still runs off the initially-loaded snapshot (spec.md §5:
// "config watcher failure degrades to no-hot-reload, never crashes the
// daemon").
func (s *Store) Watch(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("[Config] watcher unavailable, hot-reload disabled: %v", err)
		return
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		log.Printf("[Config] cannot watch %s, hot-reload disabled: %v", dir, err)
		return
	}

	var debounce *time.Timer
	reload := make(chan struct{}, 1)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
				continue
			}
			if debounce == nil {
				debounce = time.AfterFunc(reloadDebounce, func() {
					select {
					case reload <- struct{}{}:
					default:
					}
				})
			} else {
				debounce.Reset(reloadDebounce)
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[Config] watcher error: %v", werr)
		case <-reload:
			_ = s.Reload()
		}
	}
}

// Validate parses and fully validates the file at path without applying
// it to any Store (spec.md §4.6 "validate -- parse and validate without
// applying").
func Validate(path string) error {
	_, _, err := load(path)
	return err
}

func load(path string) (*event.Configuration, []pluginSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, event.NewConfigIO(path, err.Error())
	}
	var raw rawConfig
	meta, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, nil, event.NewConfigInvalid(path, err.Error(), 0)
	}
	if undec := meta.Undecoded(); len(undec) > 0 {
		log.Printf("[Config] %s: ignoring unrecognised keys %v", path, undec)
	}
	return translate(path, &raw)
}

// DefaultPath returns the user-scoped config location, following the
// platform's XDG config home convention.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "conductor", "conductor.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "conductor.toml"
	}
	return filepath.Join(home, ".config", "conductor", "conductor.toml")
}
