// Package events defines the coordinator events emitted on the event bus.
//
// Available event types:
//   - IterationEvent: one dual update completed
//   - RunEvent: a run started or finished, with its outcome
package events

// Event is implemented by every coordinator event.
type Event interface {
	// Run returns the identifier of the run that emitted the event.
	Run() string
}
