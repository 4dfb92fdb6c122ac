package linkcheck

type Verdict int

const (
	Indeterminate Verdict = iota
	Live
	Dead
)

func (v Verdict) String() string {
	switch v {
	case Live:
		return "live"
	case Dead:
		return "dead"
	default:
		return "indeterminate"
	}
}

// Outcome is the result of one probe. Err explains an Indeterminate verdict, or
// records the error an override turned into Dead.
type Outcome struct {
	Verdict Verdict
	Err     error
}
