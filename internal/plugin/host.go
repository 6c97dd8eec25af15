// Package plugin hosts fuel-metered, capability-gated WebAssembly action
// extensions (spec.md §4.3). Each plugin exports init()/execute()/alloc()/
// dealloc(); the host never grants ambient filesystem, network, or
// process access beyond what its metadata-declared and config-allowed
// capabilities admit.
package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/conductor-hq/conductord/internal/event"
	"github.com/conductor-hq/conductord/internal/executor"
)

const (
	// DefaultMemoryLimitBytes caps a plugin's linear memory (spec.md §4.3).
	DefaultMemoryLimitBytes = 128 * 1024 * 1024
	wasmPageSize            = 64 * 1024

	// DefaultTimeout is the per-invocation wall-clock ceiling (spec.md §4.3).
	DefaultTimeout = 5 * time.Second
)

// Limits configures the host's per-invocation ceilings.
type Limits struct {
	MemoryLimitBytes uint32
	FuelBudget       uint64
	Timeout          time.Duration
}

func (l Limits) withDefaults() Limits {
	if l.MemoryLimitBytes == 0 {
		l.MemoryLimitBytes = DefaultMemoryLimitBytes
	}
	if l.FuelBudget == 0 {
		l.FuelBudget = DefaultFuelBudget
	}
	if l.Timeout == 0 {
		l.Timeout = DefaultTimeout
	}
	return l
}

// loadedPlugin is a validated, compiled module ready to be instantiated
// per invocation.
type loadedPlugin struct {
	id       string
	meta     Metadata
	compiled wazero.CompiledModule
	allowed  map[Capability]bool
}

// Host manages the lifecycle of every configured plugin.
type Host struct {
	mu      sync.RWMutex
	runtime wazero.Runtime
	plugins map[string]*loadedPlugin
	limits  Limits

	// invokeMu serialises instantiate calls: the host module that gates
	// capabilities is registered under a fixed name, so two invocations
	// racing to register it would collide.
	invokeMu sync.Mutex
}

// New creates a Host with the given limits (zero-value fields default per
// spec.md §4.3).
func New(ctx context.Context, limits Limits) *Host {
	limits = limits.withDefaults()
	cfg := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(limits.MemoryLimitBytes / wasmPageSize).
		WithCloseOnContextDone(true)
	return &Host{
		runtime: wazero.NewRuntimeWithConfig(ctx, cfg),
		plugins: make(map[string]*loadedPlugin),
		limits:  limits,
	}
}

// Close releases the underlying wazero runtime and every compiled module.
func (h *Host) Close(ctx context.Context) error {
	return h.runtime.Close(ctx)
}

// Load validates and compiles a plugin module. allowedCaps is the set of
// capabilities configuration grants this plugin id; the module is
// rejected if its declared metadata requests anything outside that set
// (spec.md §4.3: "capabilities subset of allowed set").
func (h *Host) Load(ctx context.Context, id string, wasmBytes []byte, allowedCaps []Capability) error {
	compiled, err := h.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return event.NewPluginError(id, event.PluginLoad, err.Error())
	}
	if !hasRequiredExports(compiled) {
		return event.NewPluginError(id, event.PluginValidate, "missing required export (init/execute/alloc/dealloc)")
	}

	allowed := make(map[Capability]bool, len(allowedCaps))
	for _, c := range allowedCaps {
		allowed[c] = true
	}

	meta, err := h.readMetadata(ctx, id, compiled, allowed)
	if err != nil {
		return err
	}
	if !meta.subsetOf(allowed) {
		return event.NewPluginError(id, event.PluginCapabilityDenied, "declares capabilities outside the allowed set")
	}

	h.mu.Lock()
	h.plugins[id] = &loadedPlugin{id: id, meta: meta, compiled: compiled, allowed: allowed}
	h.mu.Unlock()
	log.Printf("[Plugin] loaded %q (capabilities: %v)", id, meta.Capabilities)
	return nil
}

func hasRequiredExports(compiled wazero.CompiledModule) bool {
	required := []string{"init", "execute", "alloc", "dealloc"}
	exports := compiled.ExportedFunctions()
	for _, name := range required {
		if _, ok := exports[name]; !ok {
			return false
		}
	}
	return true
}

// readMetadata instantiates the module once to call init() and decode its
// returned JSON metadata.
func (h *Host) readMetadata(ctx context.Context, id string, compiled wazero.CompiledModule, allowed map[Capability]bool) (Metadata, error) {
	inst, cleanup, err := h.instantiate(ctx, id, compiled, allowed, nil)
	if err != nil {
		return Metadata{}, event.NewPluginError(id, event.PluginInstantiate, err.Error())
	}
	defer cleanup()

	init := inst.ExportedFunction("init")
	results, err := init.Call(ctx)
	if err != nil || len(results) < 1 {
		return Metadata{}, event.NewPluginError(id, event.PluginValidate, "init() failed")
	}
	ptr, size := unpackPtrLen(results[0])
	data, ok := inst.Memory().Read(ptr, size)
	if !ok {
		return Metadata{}, event.NewPluginError(id, event.PluginValidate, "init() returned invalid memory region")
	}
	meta, err := parseMetadata(data)
	if err != nil {
		return Metadata{}, event.NewPluginError(id, event.PluginValidate, "malformed metadata JSON: "+err.Error())
	}
	return meta, nil
}

// Invoke runs one execute() call against a fresh instance (spec.md §4.3:
// "instances are not shared concurrently"), enforcing the wall-clock
// timeout and fuel budget, and translating the documented return code
// into a typed error.
func (h *Host) Invoke(ctx context.Context, id string, payload json.RawMessage, ac *executor.ActionContext) error {
	h.mu.RLock()
	p := h.plugins[id]
	h.mu.RUnlock()
	if p == nil {
		return event.NewPluginError(id, event.PluginLoad, "plugin not loaded")
	}

	callCtx, cancel := context.WithTimeout(ctx, h.limits.Timeout)
	defer cancel()

	meter := newFuelMeter(h.limits.FuelBudget)
	inst, cleanup, err := h.instantiate(callCtx, id, p.compiled, p.allowed, meter)
	if err != nil {
		return event.NewPluginError(id, event.PluginInstantiate, err.Error())
	}
	defer cleanup()

	body, err := json.Marshal(map[string]interface{}{
		"action":  id,
		"payload": payload,
		"context": map[string]interface{}{
			"resolved_velocity": ac.ResolvedVelocity,
			"band":              ac.Band,
			"timestamp":         ac.Timestamp,
			"active_mode":       ac.ActiveMode,
		},
	})
	if err != nil {
		return event.NewPluginError(id, event.PluginValidate, "failed to encode invocation payload")
	}

	ptr, err := writeBuffer(callCtx, inst, body)
	if err != nil {
		return event.NewPluginError(id, event.PluginTrap, err.Error())
	}

	execute := inst.ExportedFunction("execute")
	results, err := execute.Call(callCtx, ptr, uint64(len(body)))

	if meter.Exhausted() {
		return event.NewPluginError(id, event.PluginOutOfFuel, fmt.Sprintf("exceeded fuel budget (%d calls)", meter.Spent()))
	}
	if callCtx.Err() == context.DeadlineExceeded {
		return event.NewPluginError(id, event.PluginTimeout, "invocation exceeded wall-clock timeout")
	}
	if err != nil {
		return event.NewPluginError(id, event.PluginTrap, err.Error())
	}
	if len(results) > 0 && int32(results[0]) != 0 {
		return event.NewPluginError(id, event.PluginTrap, fmt.Sprintf("execute() returned code %d", int32(results[0])))
	}
	return nil
}

func unpackPtrLen(v uint64) (uint32, uint32) {
	return uint32(v >> 32), uint32(v)
}

func writeBuffer(ctx context.Context, inst api.Module, data []byte) (uint64, error) {
	alloc := inst.ExportedFunction("alloc")
	results, err := alloc.Call(ctx, uint64(len(data)))
	if err != nil || len(results) < 1 {
		return 0, fmt.Errorf("alloc failed: %w", err)
	}
	ptr := uint32(results[0])
	if !inst.Memory().Write(ptr, data) {
		return 0, fmt.Errorf("failed writing %d bytes at offset %d", len(data), ptr)
	}
	return uint64(ptr), nil
}
