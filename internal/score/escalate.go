package score

// Escalator decides whether a standard diagnosis should be followed by the
// advanced probe pass. Two conditions trigger it: the score looks healthy
// while the user still reports slowness, or any issue reached critical
// severity. It is a two-state machine: once fired it never fires again, so
// rescoring the merged basic and advanced findings cannot loop.
type Escalator struct {
	perfect int
	fired   bool
}

// NewEscalator returns an escalator that treats scores at or above
// perfectThreshold as "looks healthy".
func NewEscalator(perfectThreshold int) *Escalator {
	return &Escalator{perfect: perfectThreshold}
}

// ShouldEscalate reports whether the advanced pass should run. stillSlow is
// the user's claim that the browser remains slow despite the score.
func (e *Escalator) ShouldEscalate(s Score, stillSlow bool) bool {
	if e.fired {
		return false
	}
	if (stillSlow && s.Value >= e.perfect) || s.Critical() {
		e.fired = true
		return true
	}
	return false
}

// Fired reports whether escalation has already happened.
func (e *Escalator) Fired() bool { return e.fired }
