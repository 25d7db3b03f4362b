// Package schedule provides the due-time index over pending outbound
// messages.
package schedule

import (
	"cmp"
	"errors"

	rb "github.com/glycerine/rbtree"
	"github.com/sarchlab/trafficapp/message"
	"github.com/sarchlab/trafficapp/sim"
)

var (
	// ErrScheduleEmpty is returned when a peer has no pending message.
	ErrScheduleEmpty = errors.New("schedule: no pending message for peer")

	// ErrSendLater is returned when the earliest message of a peer is not
	// due yet.
	ErrSendLater = errors.New("schedule: earliest message is not due yet")
)

type pendingItem struct {
	time sim.VTimeInMs
	msg  message.Message
}

type dueSlot struct {
	time  sim.VTimeInMs
	ports []int
}

func (s *dueSlot) has(port int) bool {
	for _, p := range s.ports {
		if p == port {
			return true
		}
	}

	return false
}

// Schedule keeps two coupled indexes. perPeer orders the pending messages of
// every peer port by send time. dueIndex orders the send times and remembers,
// in insertion order, which peer ports have something due at each of them.
//
// At most one message is kept per (peer port, send time). Enqueueing a second
// message for the same pair replaces the first one.
type Schedule struct {
	perPeer  map[int]*rb.Tree
	dueIndex *rb.Tree
}

// New creates an empty schedule.
func New() *Schedule {
	return &Schedule{
		perPeer: make(map[int]*rb.Tree),
		dueIndex: rb.NewTree(func(a, b rb.Item) int {
			return cmp.Compare(a.(*dueSlot).time, b.(*dueSlot).time)
		}),
	}
}

func newPendingTree() *rb.Tree {
	return rb.NewTree(func(a, b rb.Item) int {
		return cmp.Compare(a.(*pendingItem).time, b.(*pendingItem).time)
	})
}

// Enqueue adds a message to the schedule.
func (s *Schedule) Enqueue(msg message.Message) {
	port := msg.ReceiverPort

	tree, ok := s.perPeer[port]
	if !ok {
		tree = newPendingTree()
		s.perPeer[port] = tree
	}

	query := &pendingItem{time: msg.SendTime, msg: msg}
	it, found := tree.FindGE_isEqual(query)
	if found {
		it.Item().(*pendingItem).msg = msg
	} else {
		tree.Insert(query)
	}

	s.markDue(msg.SendTime, port)
}

func (s *Schedule) markDue(t sim.VTimeInMs, port int) {
	query := &dueSlot{time: t}
	it, found := s.dueIndex.FindGE_isEqual(query)
	if found {
		slot := it.Item().(*dueSlot)
		if !slot.has(port) {
			slot.ports = append(slot.ports, port)
		}

		return
	}

	query.ports = []int{port}
	s.dueIndex.Insert(query)
}

// NextDueTime returns the earliest time at which some peer has a message due.
// The second return value is false if nothing is due anymore.
func (s *Schedule) NextDueTime() (sim.VTimeInMs, bool) {
	for it := s.dueIndex.Min(); !it.Limit(); it = it.Next() {
		slot := it.Item().(*dueSlot)
		if len(slot.ports) > 0 {
			return slot.time, true
		}
	}

	return 0, false
}

// DrainDue removes the due entry at time t and returns the peer ports that
// were due at t, in the order they were enqueued. The pending messages stay in
// the schedule until they are taken with TakeEarliest.
func (s *Schedule) DrainDue(t sim.VTimeInMs) []int {
	it, found := s.dueIndex.FindGE_isEqual(&dueSlot{time: t})
	if !found {
		return nil
	}

	ports := it.Item().(*dueSlot).ports
	s.dueIndex.DeleteWithIterator(it)

	return ports
}

// TakeEarliest removes and returns the earliest message to the given peer
// port if it is due at now. It returns ErrSendLater without changing anything
// if the earliest message is still in the future, and ErrScheduleEmpty if the
// peer has no pending message.
func (s *Schedule) TakeEarliest(
	port int,
	now sim.VTimeInMs,
) (message.Message, error) {
	tree, ok := s.perPeer[port]
	if !ok || tree.Len() == 0 {
		return message.Message{}, ErrScheduleEmpty
	}

	it := tree.Min()
	item := it.Item().(*pendingItem)

	if item.time > now {
		return message.Message{}, ErrSendLater
	}

	tree.DeleteWithIterator(it)
	if tree.Len() == 0 {
		delete(s.perPeer, port)
	}

	return item.msg, nil
}

// PeekEarliest returns the earliest pending message to the given peer port
// without removing it.
func (s *Schedule) PeekEarliest(port int) (message.Message, bool) {
	tree, ok := s.perPeer[port]
	if !ok || tree.Len() == 0 {
		return message.Message{}, false
	}

	return tree.Min().Item().(*pendingItem).msg, true
}

// Pending returns the number of messages waiting for the given peer port.
func (s *Schedule) Pending(port int) int {
	tree, ok := s.perPeer[port]
	if !ok {
		return 0
	}

	return tree.Len()
}

// Len returns the number of pending messages to all peers.
func (s *Schedule) Len() int {
	n := 0
	for _, tree := range s.perPeer {
		n += tree.Len()
	}

	return n
}

// NumDueTimes returns the number of distinct due times not drained yet.
func (s *Schedule) NumDueTimes() int {
	return s.dueIndex.Len()
}
