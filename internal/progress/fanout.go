package progress

import (
	"go.uber.org/zap"
)

// Fanout forwards each event to every registered sink. Sink errors and panics
// are logged and swallowed: progress reporting is observational and must
// never abort the harvest that feeds it.
type Fanout struct {
	sinks  []Sink
	logger *zap.Logger
}

// NewFanout builds a Fanout over the given sinks.
func NewFanout(logger *zap.Logger, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{
		sinks:  append([]Sink(nil), sinks...),
		logger: logger,
	}
}

// Emit validates the event and hands it to each sink in order.
func (f *Fanout) Emit(evt Event) {
	if f == nil {
		return
	}
	if err := evt.Validate(); err != nil {
		f.logger.Debug("discarding invalid progress event", zap.Error(err))
		return
	}
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		f.consume(sink, evt)
	}
}

func (f *Fanout) consume(sink Sink, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Warn("progress sink panicked", zap.Any("panic", r))
		}
	}()
	if err := sink.Consume(evt); err != nil {
		f.logger.Warn("progress sink consume failed", zap.Error(err))
	}
}
