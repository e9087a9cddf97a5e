package event

import (
	"sync"

	"github.com/xiaonanln/regioncache/util/logger"
	"github.com/xiaonanln/regioncache/util/metrics"
)

// record is an immutable (listener, event) pair awaiting delivery. The
// queue owns it exclusively from submission until delivery.
type record struct {
	listener Listener
	event    ElementEvent
}

// Queue propagates ordered cache lifecycle events to one and only one
// target listener per submission.
//
// Producers hand events off with Submit, which never blocks beyond a
// brief mutex hold; a single dedicated goroutine started by Start drains
// the queue in strict submission order and invokes listeners outside the
// mutex. The queue is unbounded: a permanently slow listener grows it
// without limit, which is surfaced through the queue depth metric rather
// than masked by backpressure.
type Queue struct {
	name string

	mu        sync.Mutex
	cond      *sync.Cond
	records   []record
	started   bool
	destroyed bool

	done   chan struct{}
	logger *logger.Logger
}

// NewQueue creates an event queue for the named region. Call Start to
// launch the delivery loop.
func NewQueue(name string) *Queue {
	q := &Queue{
		name:   name,
		done:   make(chan struct{}),
		logger: logger.NewLogger("EventQueue"),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Start launches the delivery loop. Exactly one loop runs per queue; a
// second Start is a caller error and is logged and ignored, since the
// ordering contract depends on single-consumer execution.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.destroyed {
		q.logger.Warnf("Start on destroyed event queue %q ignored", q.name)
		return
	}
	if q.started {
		q.logger.Warnf("Event queue %q already has a delivery loop, ignoring second Start", q.name)
		return
	}
	q.started = true
	go q.run()
}

// Submit appends a (listener, event) pair to the queue and wakes the
// delivery loop. It is O(1) and never waits on listener execution.
// Submissions after Destroy are silently dropped.
func (q *Queue) Submit(l Listener, ev ElementEvent) {
	if l == nil {
		return
	}

	q.mu.Lock()
	if q.destroyed {
		q.mu.Unlock()
		return
	}
	q.records = append(q.records, record{listener: l, event: ev})
	metrics.SetEventQueueDepth(q.name, len(q.records))
	q.mu.Unlock()

	q.cond.Signal()
}

// Destroy marks the queue destroyed and wakes the delivery loop so it
// exits promptly. Events still queued are discarded undelivered: the
// queue exists to feed a live listener, and that purpose is gone.
// Destroy is idempotent and waits for the delivery loop to exit.
func (q *Queue) Destroy() {
	q.mu.Lock()
	if q.destroyed {
		q.mu.Unlock()
		return
	}
	q.destroyed = true
	started := q.started
	if !started {
		// No delivery loop to do the discarding.
		q.dropAllLocked()
	}
	q.mu.Unlock()

	q.cond.Broadcast()
	if started {
		<-q.done
	}
	q.logger.Infof("Event queue destroyed: %s", q.name)
}

// IsActive reports whether the queue still accepts submissions.
func (q *Queue) IsActive() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return !q.destroyed
}

// Len returns the number of events queued and not yet handed to the
// listener.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}

// run is the delivery loop. It waits for a record, pops it, and invokes
// the listener outside the mutex so producers are never blocked by a
// slow listener. A listener error is terminal for that one event only.
func (q *Queue) run() {
	defer close(q.done)

	for {
		q.mu.Lock()
		for len(q.records) == 0 && !q.destroyed {
			q.cond.Wait()
		}
		if q.destroyed {
			q.dropAllLocked()
			q.mu.Unlock()
			q.logger.Infof("Delivery loop exiting for %s", q.name)
			return
		}

		rec := q.records[0]
		q.records[0] = record{}
		q.records = q.records[1:]
		metrics.SetEventQueueDepth(q.name, len(q.records))
		q.mu.Unlock()

		if err := rec.listener.HandleElementEvent(rec.event); err != nil {
			q.logger.Warnf("Giving up %s event for key %q on queue %s: %v",
				rec.event.Kind, rec.event.Key, q.name, err)
			metrics.RecordEventFailed(q.name)
		} else {
			metrics.RecordEventDelivered(q.name)
		}
	}
}

// dropAllLocked discards all queued records. Caller must hold q.mu.
func (q *Queue) dropAllLocked() {
	if n := len(q.records); n > 0 {
		q.records = nil
		metrics.RecordEventsDropped(q.name, n)
		metrics.SetEventQueueDepth(q.name, 0)
		q.logger.Infof("Dropped %d undelivered events for destroyed queue %s", n, q.name)
	}
}
