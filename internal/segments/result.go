package segments

import "fmt"

// Outcome says why a detection run ended the way it did.
type Outcome int

const (
	// OutcomeFound means at least one segment was selected.
	OutcomeFound Outcome = iota
	// OutcomeSourceUnreadable means the video could not be opened or queried.
	OutcomeSourceUnreadable
	// OutcomeDegenerateSignal means fewer than two motion samples were collected.
	OutcomeDegenerateSignal
	// OutcomeNoQualifyingWindow means no window cleared the threshold or the
	// duration limits.
	OutcomeNoQualifyingWindow
	// OutcomeRemoteUnavailable means the remote service failed; the detector
	// always follows it with a local run.
	OutcomeRemoteUnavailable
)

var outcomeNames = map[Outcome]string{
	OutcomeFound:              "found",
	OutcomeSourceUnreadable:   "source_unreadable",
	OutcomeDegenerateSignal:   "degenerate_signal",
	OutcomeNoQualifyingWindow: "no_qualifying_window",
	OutcomeRemoteUnavailable:  "remote_unavailable",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// MarshalText renders the outcome by name in JSON and YAML.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText parses an outcome name.
func (o *Outcome) UnmarshalText(b []byte) error {
	for k, v := range outcomeNames {
		if v == string(b) {
			*o = k
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", string(b))
}

// Source names which strategy produced a result.
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// Result is the outcome of one detection run. Segments is empty unless
// Outcome is OutcomeFound. Reason holds the underlying cause for the
// non-found outcomes and is meant for logs.
type Result struct {
	Segments []Segment
	Outcome  Outcome
	Source   Source
	Reason   error
}

// Found builds a result carrying segments. An empty slice becomes
// OutcomeNoQualifyingWindow.
func Found(src Source, segs []Segment) Result {
	if len(segs) == 0 {
		return Result{Outcome: OutcomeNoQualifyingWindow, Source: src, Segments: []Segment{}}
	}
	return Result{Outcome: OutcomeFound, Source: src, Segments: segs}
}

// Empty builds a result with no segments for the given outcome and cause.
func Empty(src Source, outcome Outcome, reason error) Result {
	return Result{Outcome: outcome, Source: src, Reason: reason, Segments: []Segment{}}
}

// OK reports whether segments were found.
func (r Result) OK() bool {
	return r.Outcome == OutcomeFound
}
