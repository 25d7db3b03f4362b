package sim

import (
	"reflect"

	"github.com/skycoin/skycoin/src/util/logging"
)

// A Named object is an object that has a name.
type Named interface {
	Name() string
}

// EventLogger is an hook that prints the event information
type EventLogger struct {
	log *logging.Logger
}

// NewEventLogger returns a new EventLogger which will write in to the logger
func NewEventLogger(logger *logging.Logger) *EventLogger {
	h := new(EventLogger)
	h.log = logger

	return h
}

// Func writes the event information into the logger
func (h *EventLogger) Func(ctx HookCtx) {
	evt, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	if ctx.Pos == HookPosAfterEvent {
		if err, isErr := ctx.Detail.(error); isErr && err != nil {
			h.log.WithError(err).Warnf("%d, %s failed", evt.Time(), reflect.TypeOf(evt))
		}

		return
	}

	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	named, ok := evt.Handler().(Named)
	if ok {
		h.log.Debugf("%d, %s -> %s", evt.Time(), reflect.TypeOf(evt), named.Name())
	} else {
		h.log.Debugf("%d, %s", evt.Time(), reflect.TypeOf(evt))
	}
}
