package progress

// Sink consumes individual progress events. Implementations may be invoked
// from the harvest aggregator goroutine only, so they need not be
// concurrency-safe, but they must be cheap: a slow sink delays progress
// reporting, never correctness.
type Sink interface {
	Consume(evt Event) error
}

// Emitter publishes individual events. Fanout satisfies this interface so the
// harvest coordinator stays agnostic about where events land.
type Emitter interface {
	Emit(evt Event)
}
