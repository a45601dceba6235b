package processor

import (
	"time"

	"github.com/BarkinBalci/feature-flag-events/internal/domain"
)

type itemKind int

const (
	itemEvent itemKind = iota
	itemFlush
	itemShutdown
)

// item is either a user event or a control signal. Signals share the
// channel with events so they are handled in enqueue order.
type item struct {
	kind  itemKind
	event domain.UserEvent
}

type eventQueue struct {
	items chan item
}

func newEventQueue(capacity int) *eventQueue {
	return &eventQueue{items: make(chan item, capacity)}
}

// offer enqueues without blocking and reports whether the item was accepted
func (q *eventQueue) offer(it item) bool {
	select {
	case q.items <- it:
		return true
	default:
		return false
	}
}

// put waits up to timeout for room in the queue
func (q *eventQueue) put(it item, timeout time.Duration) bool {
	if q.offer(it) {
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case q.items <- it:
		return true
	case <-timer.C:
		return false
	}
}

func (q *eventQueue) len() int {
	return len(q.items)
}
