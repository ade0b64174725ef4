// Package plan turns scored issues into an explicit, ordered cleanup plan.
// A plan is data: what would be done, in what order, reclaiming how much.
// Whether it is approved and executed is someone else's decision, which
// keeps planning testable without a filesystem or a prompt.
package plan

// ActionKind is the type of one cleanup action.
type ActionKind int

const (
	// DeletePath removes one file or directory tree.
	DeletePath ActionKind = iota

	// StripDatabaseSidecars removes the -wal and -shm files next to a
	// SQLite database, forcing a clean reopen. Never touches the main
	// database file.
	StripDatabaseSidecars

	// SetPreference writes one preference key to a new value.
	SetPreference
)

func (k ActionKind) String() string {
	switch k {
	case DeletePath:
		return "delete"
	case StripDatabaseSidecars:
		return "strip sidecars"
	case SetPreference:
		return "set preference"
	default:
		return "unknown"
	}
}

// Action is one planned mutation.
type Action struct {
	Kind ActionKind

	// Path is the delete target, the main database for a sidecar strip,
	// or the preference file for SetPreference.
	Path string

	// PrefKey and PrefValue apply to SetPreference only.
	PrefKey   string
	PrefValue any

	// ExpectedBytes estimates the reclaim; zero when unknown.
	ExpectedBytes int64

	// Reason says why the action made the plan, in user-facing terms.
	Reason string
}

// Plan is an ordered list of actions: sidecar strips first, then deletions
// largest-first, then preference writes.
type Plan struct {
	Actions []Action
}

// Empty reports whether the plan contains no actions.
func (p *Plan) Empty() bool { return len(p.Actions) == 0 }

// ExpectedBytes sums the estimated reclaim across all actions.
func (p *Plan) ExpectedBytes() int64 {
	var total int64
	for _, a := range p.Actions {
		total += a.ExpectedBytes
	}
	return total
}

// Targets returns every path the plan will mutate, including the sidecar
// paths a strip action implies. The backup stage must cover all of them.
func (p *Plan) Targets() []string {
	var out []string
	for _, a := range p.Actions {
		switch a.Kind {
		case StripDatabaseSidecars:
			out = append(out, a.Path+"-wal", a.Path+"-shm")
		default:
			out = append(out, a.Path)
		}
	}
	return out
}
