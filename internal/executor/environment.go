package executor

import "time"

// Environment is the evaluation context for the conditional evaluator
// (spec.md §4.2: "Environment{now, active_apps, frontmost_app,
// active_mode}"). It is queried lazily and cached for the duration of one
// action tree.
type Environment struct {
	Now          time.Time
	ActiveApps   []string
	FrontmostApp string
	ActiveMode   string
}

// AppQuery is the external collaborator that answers which applications
// are running/frontmost. Detecting this is explicitly out of this
// repository's scope (spec.md §1: "active/frontmost application" is
// consumed, not implemented, by the core); a platform adapter supplies a
// concrete AppQuery to the daemon at startup. NoopAppQuery below is the
// zero-collaborator fallback used when no adapter is wired.
type AppQuery interface {
	ActiveApps() []string
	FrontmostApp() string
}

// NoopAppQuery answers "nothing running, nothing frontmost" -- used in
// environments with no window-manager integration (headless, tests).
type NoopAppQuery struct{}

func (NoopAppQuery) ActiveApps() []string { return nil }
func (NoopAppQuery) FrontmostApp() string { return "" }

// buildEnvironment constructs an Environment once per action-tree
// execution; Context caches it so nested Conditional nodes share one
// snapshot (spec.md §4.2: "queried lazily and cached for the duration of
// one action tree").
func buildEnvironment(now time.Time, apps AppQuery, activeMode string) Environment {
	if apps == nil {
		apps = NoopAppQuery{}
	}
	return Environment{
		Now:          now,
		ActiveApps:   apps.ActiveApps(),
		FrontmostApp: apps.FrontmostApp(),
		ActiveMode:   activeMode,
	}
}
