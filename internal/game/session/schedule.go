package session

import (
	"container/heap"

	"github.com/eapache/queue"
)

// Event is a deferred callback. It receives the tick at which it runs.
type Event func(tick uint64)

// Schedule holds deferred events keyed by the tick they become due.
// It is not safe for concurrent use; the owning Registry serializes access.
//
// Invariant: events due at the same tick are returned in insertion order, and
// events for an earlier tick are always returned before those for a later one.
type Schedule struct {
	ticks   tickHeap
	pending map[uint64]*queue.Queue
	count   int
}

// NewSchedule creates an empty Schedule.
func NewSchedule() *Schedule {
	return &Schedule{pending: make(map[uint64]*queue.Queue)}
}

// At schedules ev to run once the tick counter reaches tick.
//
// Precondition: ev must be non-nil.
func (s *Schedule) At(tick uint64, ev Event) {
	q, ok := s.pending[tick]
	if !ok {
		q = queue.New()
		s.pending[tick] = q
		heap.Push(&s.ticks, tick)
	}
	q.Add(ev)
	s.count++
}

// PopDue removes and returns every event due at or before now.
//
// Postcondition: Returned events are ordered by (tick, insertion order).
func (s *Schedule) PopDue(now uint64) []Event {
	var due []Event
	for len(s.ticks) > 0 && s.ticks[0] <= now {
		tick := heap.Pop(&s.ticks).(uint64)
		q := s.pending[tick]
		delete(s.pending, tick)
		for q.Length() > 0 {
			due = append(due, q.Remove().(Event))
		}
	}
	s.count -= len(due)
	return due
}

// Next returns the earliest tick with a pending event.
func (s *Schedule) Next() (uint64, bool) {
	if len(s.ticks) == 0 {
		return 0, false
	}
	return s.ticks[0], true
}

// Len returns the number of pending events.
func (s *Schedule) Len() int {
	return s.count
}

type tickHeap []uint64

func (h tickHeap) Len() int           { return len(h) }
func (h tickHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h tickHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *tickHeap) Push(x any)        { *h = append(*h, x.(uint64)) }
func (h *tickHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
