// Package events defines the event types published on the bus during
// execution. Subscribers (tracing, logging, metrics) attach through
// eventbus without the engine knowing about them.
package events

import "time"

// OperationStart is emitted before executing an operation.
type OperationStart struct {
	OperationName string
	OperationType string
}

// OperationFinish is emitted after an operation's response is assembled.
type OperationFinish struct {
	OperationName string
	OperationType string
	ErrorCount    int
	Duration      time.Duration
}
