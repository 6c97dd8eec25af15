package plugin

import (
	"context"
	"fmt"
	"log"
	"os/exec"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
)

const hostModuleName = "conductor"

// instantiate links a compiled module against the "conductor" host module,
// registering only the imports the plugin's allowed capability set
// admits. A guest that imports a function outside its allowed set fails
// instantiation with an unresolved-import error -- the trap spec.md §4.3
// requires for a denied capability, enforced at link time rather than by
// runtime permission checks inside each host function.
func (h *Host) instantiate(ctx context.Context, id string, compiled wazero.CompiledModule, allowed map[Capability]bool, meter *fuelListener) (api.Module, func(), error) {
	h.invokeMu.Lock()
	builder := h.runtime.NewHostModuleBuilder(hostModuleName)
	registerLogImport(builder)
	if allowed[CapNetwork] {
		registerNetworkImports(builder)
	}
	if allowed[CapFilesystem] {
		registerFilesystemImports(builder)
	}
	if allowed[CapProcess] {
		registerProcessImports(builder)
	}
	hostInst, err := builder.Instantiate(ctx)
	if err != nil {
		h.invokeMu.Unlock()
		return nil, nil, fmt.Errorf("building host module for %q: %w", id, err)
	}

	cfg := wazero.NewModuleConfig().WithName(id + "#invocation")
	if meter != nil {
		ctx = experimental.WithFunctionListenerFactory(ctx, meter.factory())
	}

	inst, err := h.runtime.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		_ = hostInst.Close(context.Background())
		h.invokeMu.Unlock()
		return nil, nil, err
	}
	// The host module is scoped to this single invocation's capability
	// grant and must be closed alongside the guest: its fixed name
	// ("conductor") would otherwise collide with the next instantiate
	// call, and its per-call registration is what lets two plugins with
	// different allowed sets coexist in the same runtime. invokeMu stays
	// held until cleanup so invocations never overlap their host modules.
	cleanup := func() {
		_ = inst.Close(context.Background())
		_ = hostInst.Close(context.Background())
		h.invokeMu.Unlock()
	}
	return inst, cleanup, nil
}

// registerLogImport exposes host_log(ptr,len) unconditionally -- logging
// carries no capability risk on its own.
func registerLogImport(b wazero.HostModuleBuilder) {
	b.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, ptr, size uint32) {
			if data, ok := mod.Memory().Read(ptr, size); ok {
				log.Printf("[Plugin:%s] %s", mod.Name(), string(data))
			}
		}).
		Export("host_log")
}

// registerNetworkImports exposes the HTTP fetch surface a Network-capable
// plugin may call. The real transport is out of this repository's
// fast-path scope (spec.md §9 leaves outbound transport to the platform
// adapter); registered here as the link-time gate the capability model
// requires.
func registerNetworkImports(b wazero.HostModuleBuilder) {
	b.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, urlPtr, urlLen uint32) int32 {
			return -1 // unimplemented transport; denial-by-capability is what's under test here
		}).
		Export("host_http_get")
}

// registerFilesystemImports exposes host_read_file to a
// Filesystem-capable plugin as the link-time gate. The function always
// returns -1; it reads no file.
func registerFilesystemImports(b wazero.HostModuleBuilder) {
	b.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, pathPtr, pathLen uint32) int32 {
			return -1 // no data-directory read is performed
		}).
		Export("host_read_file")
}

// registerProcessImports exposes host_spawn to a Process-capable plugin
// as the link-time gate. It only checks that the named command resolves
// via exec.LookPath, returning 0 if it does and -1 otherwise; it starts no
// process and does not apply the Shell action's ShellPolicy whitelist or
// metacharacter rejection.
func registerProcessImports(b wazero.HostModuleBuilder) {
	b.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, mod api.Module, cmdPtr, cmdLen uint32) int32 {
			data, ok := mod.Memory().Read(cmdPtr, cmdLen)
			if !ok {
				return -1
			}
			if _, err := exec.LookPath(string(data)); err != nil {
				return -1
			}
			return 0
		}).
		Export("host_spawn")
}
