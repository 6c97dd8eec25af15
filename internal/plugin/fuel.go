package plugin

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
)

// DefaultFuelBudget is the per-invocation instruction budget (spec.md
// §4.3: "Fuel metering with a bounded budget per invocation (default
// 100 M instructions)").
const DefaultFuelBudget = 100_000_000

// fuelListener approximates fuel metering by counting function-call
// boundaries (wazero has no native fuel counter; this is the documented
// technique for bounding execution via experimental.FunctionListener). On
// exhaustion it closes the module, which aborts the in-flight call with a
// module-closed trap that the caller maps to PluginOutOfFuel.
type fuelListener struct {
	budget    uint64
	spent     uint64
	exhausted bool
}

func newFuelMeter(budget uint64) *fuelListener {
	return &fuelListener{budget: budget}
}

// factory adapts the meter into a wazero experimental.FunctionListenerFactory.
func (f *fuelListener) factory() experimental.FunctionListenerFactory {
	return experimental.FunctionListenerFactoryFunc(func(def api.FunctionDefinition) experimental.FunctionListener {
		return f
	})
}

func (f *fuelListener) Before(ctx context.Context, mod api.Module, def api.FunctionDefinition, params []uint64, stack experimental.StackIterator) context.Context {
	f.spent++
	if f.spent > f.budget {
		f.exhausted = true
		_ = mod.CloseWithExitCode(ctx, fuelExhaustedExitCode)
	}
	return ctx
}

func (f *fuelListener) After(ctx context.Context, mod api.Module, def api.FunctionDefinition, results []uint64) {}

// fuelExhaustedExitCode is the sentinel exit code a closed-on-exhaustion
// module reports, distinguishing it from a context-timeout close.
const fuelExhaustedExitCode = 137

// Exhausted reports whether this invocation's fuel ran out.
func (f *fuelListener) Exhausted() bool { return f.exhausted }

// Spent returns the instruction-boundary count observed so far.
func (f *fuelListener) Spent() uint64 { return f.spent }
