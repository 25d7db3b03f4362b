package tracing

import (
	"fmt"

	"github.com/sarchlab/trafficapp/message"
	"github.com/sarchlab/trafficapp/sim"
)

// A Task is a piece of work with a start and an end in virtual time.
type Task struct {
	ID        string        `json:"id"`
	Kind      string        `json:"kind"`
	What      string        `json:"what"`
	Where     string        `json:"where"`
	StartTime sim.VTimeInMs `json:"start_time"`
	EndTime   sim.VTimeInMs `json:"end_time"`
}

// TaskFilter is a function that can filter interesting tasks. If this function
// returns true, the task is considered useful.
type TaskFilter func(t Task) bool

// TaskKindMsg is the kind of the tasks that follow a message from the moment
// it is handed to the transport until it is decoded by the receiver.
const TaskKindMsg = "msg"

// MsgTaskID returns the ID of the task that traces msg. Message IDs are only
// unique per sender.
func MsgTaskID(msg message.Message) string {
	return fmt.Sprintf("%s.msg-%d", msg.Sender, msg.ID)
}
