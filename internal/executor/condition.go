package executor

import (
	"strconv"
	"strings"

	"github.com/conductor-hq/conductord/internal/event"
)

// EvaluateCondition walks the predicate tree against env (spec.md §3
// Condition, §4.2 "Conditional"). A nil condition evaluates true.
func EvaluateCondition(c *event.Condition, env Environment) bool {
	if c == nil {
		return true
	}
	switch c.Type {
	case event.CondTimeRange:
		return evalTimeRange(c, env)
	case event.CondDayOfWeek:
		return c.Days[int(env.Now.Weekday())]
	case event.CondAppRunning:
		for _, a := range env.ActiveApps {
			if a == c.AppName {
				return true
			}
		}
		return false
	case event.CondAppFrontmost:
		return env.FrontmostApp == c.AppName
	case event.CondModeIs:
		return env.ActiveMode == c.ModeName
	case event.CondAnd:
		for i := range c.List {
			if !EvaluateCondition(&c.List[i], env) {
				return false
			}
		}
		return true
	case event.CondOr:
		for i := range c.List {
			if EvaluateCondition(&c.List[i], env) {
				return true
			}
		}
		return false
	case event.CondNot:
		return !EvaluateCondition(c.Inner, env)
	default:
		return false
	}
}

// evalTimeRange handles a range that may wrap midnight (e.g. 22:00-06:00).
func evalTimeRange(c *event.Condition, env Environment) bool {
	start, ok1 := parseHHMM(c.Start)
	end, ok2 := parseHHMM(c.End)
	if !ok1 || !ok2 {
		return false
	}
	now := env.Now.Hour()*60 + env.Now.Minute()

	if start <= end {
		return now >= start && now <= end
	}
	// wraps midnight
	return now >= start || now <= end
}

func parseHHMM(s string) (int, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
