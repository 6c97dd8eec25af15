package event

// EncoderDirection constrains which turn direction an EncoderTurn trigger matches.
type EncoderDirection string

const (
	DirCw  EncoderDirection = "cw"
	DirCcw EncoderDirection = "ccw"
	DirAny EncoderDirection = "any"
)

// TriggerType tags which trigger variant is populated.
type TriggerType string

const (
	TriggerNote          TriggerType = "Note"
	TriggerVelocityRange TriggerType = "VelocityRange"
	TriggerLongPress     TriggerType = "LongPress"
	TriggerDoubleTap     TriggerType = "DoubleTap"
	TriggerNoteChord     TriggerType = "NoteChord"
	TriggerEncoderTurn   TriggerType = "EncoderTurn"
	TriggerCC            TriggerType = "CC"
	TriggerAftertouch    TriggerType = "Aftertouch"
	TriggerPitchBend     TriggerType = "PitchBend"
	TriggerGamepadButton TriggerType = "GamepadButton"
	TriggerGamepadAxis   TriggerType = "GamepadAxis"
)

// Trigger is the declarative, tagged-variant gesture description parsed
// from configuration. Only the fields relevant to Type are meaningful.
type Trigger struct {
	Type TriggerType

	Note        int
	VelocityMin int // Note

	SoftMax   int // VelocityRange
	MediumMax int // VelocityRange

	DurationMs int // LongPress

	TimeoutMs int // DoubleTap, NoteChord

	Notes []int // NoteChord, sorted+deduped at validation time

	CC        int // EncoderTurn, CC
	Direction EncoderDirection
	Absolute  bool // EncoderTurn: compare against last value instead of relative two's-complement

	ValueMin int // CC

	Channel int // most triggers, -1 means "any"

	ButtonID int // GamepadButton
	AxisID   int // GamepadAxis
}

// precedenceRank orders trigger types for match tie-breaking per spec.md
// §4.1 step 4: Chord > DoubleTap > LongPress > VelocityRange > Note. All
// other trigger types (simple field matches) rank alongside Note.
func precedenceRank(t TriggerType) int {
	switch t {
	case TriggerNoteChord:
		return 0
	case TriggerDoubleTap:
		return 1
	case TriggerLongPress:
		return 2
	case TriggerVelocityRange:
		return 3
	default:
		return 4
	}
}

// Less reports whether a outranks b under the composite-gesture precedence
// order (lower rank = higher precedence, i.e. fires first).
func (t TriggerType) Less(other TriggerType) bool {
	return precedenceRank(t) < precedenceRank(other)
}
