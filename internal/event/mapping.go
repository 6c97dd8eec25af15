package event

// CurveType selects the velocity-to-velocity transfer function applied
// before a resolved velocity is bound to an action.
type CurveType string

const (
	CurveLinear      CurveType = "Linear"
	CurveExponential CurveType = "Exponential"
	CurveLogarithmic CurveType = "Logarithmic"
	CurveSCurve      CurveType = "SCurve"
)

// VelocityCurve names a transfer function and its intensity in [0,1].
type VelocityCurve struct {
	Type      CurveType
	Intensity float64
}

// Mapping pairs a trigger with an action tree.
type Mapping struct {
	Trigger     Trigger
	Action      Action
	Description string
	Curve       *VelocityCurve // nil means CurveLinear with intensity 0 (identity)

	// Order is the mapping's position within its containing list, used as
	// the precedence tie-break "defined earlier outranks later"
	// (spec.md §4.1 step 4c). Populated by the config loader.
	Order int
}

// Mode is a named set of mappings; exactly one mode is active at a time.
type Mode struct {
	Name     string
	Mappings []Mapping
}

// AdvancedTimings carries the global timing thresholds referenced by
// triggers that don't specify their own (e.g. a bare NoteChord relying on
// the configured default chord_timeout_ms).
type AdvancedTimings struct {
	ChordTimeoutMs     int
	DoubleTapTimeoutMs int
	HoldThresholdMs    int
}

// DevicePrefs carries device connection preferences.
type DevicePrefs struct {
	Name        string
	AutoConnect bool
}

// Configuration is the immutable, validated snapshot produced by the
// config store. It is never mutated in place; reload produces a new
// Configuration and the store swaps a pointer atomically.
type Configuration struct {
	Modes           []Mode
	GlobalMappings  []Mapping
	DevicePrefs     DevicePrefs
	AdvancedTimings AdvancedTimings
}

// ModeByName returns the mode with the given name, or nil.
func (c *Configuration) ModeByName(name string) *Mode {
	for i := range c.Modes {
		if c.Modes[i].Name == name {
			return &c.Modes[i]
		}
	}
	return nil
}

// ModeNames returns the configured mode names in declaration order.
func (c *Configuration) ModeNames() []string {
	names := make([]string, len(c.Modes))
	for i, m := range c.Modes {
		names[i] = m.Name
	}
	return names
}
