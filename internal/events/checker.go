package events

import "time"

// CheckerStart is emitted before an access checker executes.
type CheckerStart struct {
	Checker    string
	Coordinate string
}

// CheckerFinish is emitted with the checker's decision.
type CheckerFinish struct {
	Checker    string
	Coordinate string
	Allowed    bool
	Duration   time.Duration
}
