package config

// rawConfig is the literal shape of conductor.toml. Every nested action/
// condition/trigger is decoded into these raw, string-tagged structs
// first; translate.go converts and validates them into the closed
// event.* domain types so malformed TOML never reaches the engine.
type rawConfig struct {
	AdvancedTimings rawTimings     `toml:"advanced_settings"`
	Device          rawDevice      `toml:"device"`
	Modes           []rawMode      `toml:"modes"`
	GlobalMappings  []rawMapping   `toml:"global_mappings"`
	Plugins         []rawPlugin    `toml:"plugins"`
}

type rawTimings struct {
	ChordTimeoutMs     int `toml:"chord_timeout_ms"`
	DoubleTapTimeoutMs int `toml:"double_tap_timeout_ms"`
	HoldThresholdMs    int `toml:"hold_threshold_ms"`
}

type rawDevice struct {
	Name        string `toml:"name"`
	AutoConnect bool   `toml:"auto_connect"`
}

type rawMode struct {
	Name     string       `toml:"name"`
	Mappings []rawMapping `toml:"mappings"`
}

type rawMapping struct {
	Description string      `toml:"description"`
	Trigger     rawTrigger  `toml:"trigger"`
	Curve       *rawCurve   `toml:"curve"`
	Action      rawAction   `toml:"action"`
}

type rawCurve struct {
	Type      string  `toml:"type"`
	Intensity float64 `toml:"intensity"`
}

type rawTrigger struct {
	Type string `toml:"type"`

	Note        int `toml:"note"`
	VelocityMin int `toml:"velocity_min"`

	SoftMax   int `toml:"soft_max"`
	MediumMax int `toml:"medium_max"`

	DurationMs int `toml:"duration_ms"`
	TimeoutMs  int `toml:"timeout_ms"`

	Notes []int `toml:"notes"`

	CC        int    `toml:"cc"`
	Direction string `toml:"direction"`
	Absolute  bool   `toml:"absolute"`

	ValueMin int `toml:"value_min"`

	// A plain int would read 0 when unset in TOML, which collides with
	// channel 0. Channel is a pointer, nil when the key is absent, so
	// translate.go can fall back to -1 ("any channel") only on true absence.
	Channel    *int `toml:"channel"`
	ButtonID   int  `toml:"button_id"`
	AxisID     int  `toml:"axis_id"`
}

type rawAction struct {
	Type string `toml:"type"`

	Keys      []string `toml:"keys"`
	Modifiers []string `toml:"modifiers"`

	Text string `toml:"text"`

	Command string   `toml:"command"`
	Args    []string `toml:"args"`

	App string `toml:"app"`

	Port    string `toml:"port"`
	Message []int  `toml:"message"`

	ModeName string `toml:"mode_name"`

	PluginID string `toml:"plugin_id"`
	Payload  string `toml:"payload"` // raw JSON, embedded as a TOML string

	Steps []rawAction `toml:"steps"`

	DelayMs int `toml:"delay_ms"`

	RepeatAction *rawAction `toml:"repeat_action"`
	Count        int        `toml:"count"`

	Condition *rawCondition `toml:"condition"`
	Then      *rawAction    `toml:"then"`
	Else      *rawAction    `toml:"else"`

	Soft   *rawAction `toml:"soft"`
	Medium *rawAction `toml:"medium"`
	Hard   *rawAction `toml:"hard"`
}

type rawCondition struct {
	Type string `toml:"type"`

	Start string `toml:"start"`
	End   string `toml:"end"`

	Days []int `toml:"days"`

	AppName  string `toml:"app_name"`
	ModeName string `toml:"mode_name"`

	List []rawCondition `toml:"list"`
	Not  *rawCondition  `toml:"not"`
}

type rawPlugin struct {
	ID           string   `toml:"id"`
	Path         string   `toml:"path"`
	Capabilities []string `toml:"capabilities"`
}
