package events

import "time"

// ResolverBatchStart is emitted when a wave flush invokes a resolver.
// Kind is "field" or "node".
type ResolverBatchStart struct {
	Resolver string
	Kind     string
	Size     int
}

// ResolverBatchFinish is emitted when the batch call returns. Err is the
// whole-call error, nil when individual items may still have failed.
type ResolverBatchFinish struct {
	Resolver string
	Kind     string
	Size     int
	Err      error
	Duration time.Duration
}
