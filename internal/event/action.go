package event

import "encoding/json"

// KeyCode is a domain key identifier, independent of any host keystroke
// synthesis library (spec.md §9: action leaves must not carry UI-library
// types). Conversion to OS-level key codes happens strictly in the
// executor.
type KeyCode string

// ModifierKey is a domain modifier identifier.
type ModifierKey string

const (
	ModCmd  ModifierKey = "cmd"
	ModCtrl ModifierKey = "ctrl"
	ModAlt  ModifierKey = "alt"
	ModMeta ModifierKey = "meta"
)

// MouseButton is a domain mouse-button identifier, reserved for future
// pointer-synthesis actions; no current Action leaf emits one, but it
// lives in the core per spec.md §9 rather than in the executor.
type MouseButton string

const (
	MouseLeft   MouseButton = "left"
	MouseRight  MouseButton = "right"
	MouseMiddle MouseButton = "middle"
)

// ActionType tags which Action variant is populated.
type ActionType string

const (
	ActionKeystroke     ActionType = "Keystroke"
	ActionText          ActionType = "Text"
	ActionShell         ActionType = "Shell"
	ActionLaunch        ActionType = "Launch"
	ActionSendMidi      ActionType = "SendMidi"
	ActionModeChange    ActionType = "ModeChange"
	ActionPlugin        ActionType = "Plugin"
	ActionSequence      ActionType = "Sequence"
	ActionDelay         ActionType = "Delay"
	ActionRepeat        ActionType = "Repeat"
	ActionConditional   ActionType = "Conditional"
	ActionVelocityRange ActionType = "VelocityRange"
)

// ModeTarget selects which mode a ModeChange action activates.
type ModeTarget string

const (
	ModeNext ModeTarget = "__next__"
	ModePrev ModeTarget = "__prev__"
)

// MaxRepeatCount bounds Repeat.Count; configs exceeding it are rejected at
// load time (spec.md §4.2).
const MaxRepeatCount = 1000

// Action is the closed, tagged-variant action tree (spec.md §9: prefer a
// traversal function over dynamic dispatch to keep the core embeddable).
type Action struct {
	Type ActionType

	// Keystroke
	Keys      []KeyCode
	Modifiers []ModifierKey

	// Text
	Text string

	// Shell
	Command string
	Args    []string

	// Launch
	App string

	// SendMidi
	Port    string
	Message []byte

	// ModeChange
	ModeName string // a mode name, or ModeNext/ModePrev for Next/Prev

	// Plugin
	PluginID string
	Payload  json.RawMessage

	// Sequence
	Steps []Action

	// Delay
	DelayMs int

	// Repeat
	RepeatAction *Action
	Count        int

	// Conditional
	Condition *Condition
	Then      *Action
	Else      *Action

	// VelocityRange (as an action: picks by resolved band)
	Soft   *Action
	Medium *Action
	Hard   *Action
}
