package event

// ConditionType tags which Condition variant is populated.
type ConditionType string

const (
	CondTimeRange    ConditionType = "TimeRange"
	CondDayOfWeek    ConditionType = "DayOfWeek"
	CondAppRunning   ConditionType = "AppRunning"
	CondAppFrontmost ConditionType = "AppFrontmost"
	CondModeIs       ConditionType = "ModeIs"
	CondAnd          ConditionType = "And"
	CondOr           ConditionType = "Or"
	CondNot          ConditionType = "Not"
)

// MaxConditionDepth bounds nested And/Or/Not trees (spec.md §3: "condition
// trees bounded in depth (reject beyond 8)").
const MaxConditionDepth = 8

// Condition is the predicate tree evaluated against an Environment by the
// executor's conditional evaluator.
type Condition struct {
	Type ConditionType

	// TimeRange ("HH:MM", wraps midnight)
	Start string
	End   string

	// DayOfWeek, 0=Sunday..6=Saturday
	Days map[int]bool

	// AppRunning / AppFrontmost
	AppName string

	// ModeIs
	ModeName string

	// And / Or
	List []Condition

	// Not
	Inner *Condition
}

// Depth returns the nesting depth of the condition tree, leaves counting
// as 1.
func (c *Condition) Depth() int {
	if c == nil {
		return 0
	}
	switch c.Type {
	case CondAnd, CondOr:
		max := 0
		for i := range c.List {
			if d := c.List[i].Depth(); d > max {
				max = d
			}
		}
		return max + 1
	case CondNot:
		return c.Inner.Depth() + 1
	default:
		return 1
	}
}
