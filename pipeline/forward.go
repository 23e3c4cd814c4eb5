package pipeline

import (
	"github.com/justapithecus/logbook/adapter"
	"github.com/justapithecus/logbook/types"
	"github.com/justapithecus/logbook/world"
)

// ChangeForwarder turns world changes into context_changed events for a
// dispatcher. Dispatch never blocks, so it is safe on the fold path.
type ChangeForwarder struct {
	dispatcher *adapter.Dispatcher
	sessionID  string
}

// ForwardChanges returns an observer that dispatches every change.
func ForwardChanges(d *adapter.Dispatcher, sessionID string) *ChangeForwarder {
	return &ChangeForwarder{dispatcher: d, sessionID: sessionID}
}

// OnContextChanged dispatches the change.
func (f *ChangeForwarder) OnContextChanged(c world.Change) error {
	rec := adapter.ChangeRecord{
		Aggregate: string(c.Aggregate),
		Version:   c.Version,
		Samples:   c.Samples,
	}
	if c.DataType != types.Undefined {
		rec.DataType = c.DataType.String()
	}
	f.dispatcher.Dispatch(adapter.NewChangeEvent(f.sessionID, rec))
	return nil
}

var _ world.Observer = (*ChangeForwarder)(nil)
