package tracing

import (
	"fmt"

	"github.com/sarchlab/trafficapp/message"
	"github.com/sarchlab/trafficapp/sim"
	"github.com/sarchlab/trafficapp/trafficapp"
)

// NamedHookable represent something both have a name and can be hooked
type NamedHookable interface {
	sim.Named
	sim.Hookable
}

// CollectTrace lets the tracer follow the messages that the endpoint sends
// and receives. A message task starts at the sender and ends at the receiver,
// so the same tracer is usually attached to every endpoint.
func CollectTrace(domain NamedHookable, tracer Tracer) {
	h := traceHook{t: tracer, where: domain.Name()}
	domain.AcceptHook(&h)
}

// A traceHook turns endpoint hooks into tasks.
type traceHook struct {
	t     Tracer
	where string
}

// Func calls the tracer interfaces when the hook is triggered
func (h *traceHook) Func(ctx sim.HookCtx) {
	msg, ok := ctx.Item.(message.Message)
	if !ok {
		return
	}

	switch ctx.Pos {
	case trafficapp.HookPosMsgSent:
		h.t.StartTask(Task{
			ID:    MsgTaskID(msg),
			Kind:  TaskKindMsg,
			What:  fmt.Sprintf("%s->%s:%d", msg.Sender, msg.Receiver, msg.ReceiverPort),
			Where: h.where,
		})
	case trafficapp.HookPosMsgDelivered:
		h.t.EndTask(Task{
			ID:    MsgTaskID(msg),
			Kind:  TaskKindMsg,
			Where: h.where,
		})
	}
}
