package event

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/xiaonanln/regioncache/util/testutil"
)

// recordingListener records delivered events in order and can be told to
// fail on specific keys or block until released.
type recordingListener struct {
	mu      sync.Mutex
	events  []ElementEvent
	failOn  map[string]bool
	blockCh chan struct{}
}

func newRecordingListener() *recordingListener {
	return &recordingListener{failOn: make(map[string]bool)}
}

func (l *recordingListener) HandleElementEvent(ev ElementEvent) error {
	if l.blockCh != nil {
		<-l.blockCh
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failOn[ev.Key] {
		return errors.New("listener rejected event")
	}
	l.events = append(l.events, ev)
	return nil
}

func (l *recordingListener) recorded() []ElementEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ElementEvent, len(l.events))
	copy(out, l.events)
	return out
}

// TestQueue_DeliversInSubmissionOrder tests that placed then removed on
// the same key arrive in exactly that order
func TestQueue_DeliversInSubmissionOrder(t *testing.T) {
	q := NewQueue("region1")
	q.Start()
	defer q.Destroy()

	l := newRecordingListener()
	q.Submit(l, ElementEvent{Kind: ElementPlaced, Key: "k1", Value: []byte("v1")})
	q.Submit(l, ElementEvent{Kind: ElementRemoved, Key: "k1"})

	testutil.WaitFor(t, time.Second, "both events to be delivered", func() bool {
		return len(l.recorded()) == 2
	})

	got := l.recorded()
	if got[0].Kind != ElementPlaced || got[0].Key != "k1" {
		t.Errorf("Expected first event placed(k1), got %s(%s)", got[0].Kind, got[0].Key)
	}
	if got[1].Kind != ElementRemoved || got[1].Key != "k1" {
		t.Errorf("Expected second event removed(k1), got %s(%s)", got[1].Kind, got[1].Key)
	}
}

// TestQueue_OrderUnderManyEvents tests strict FIFO over a long submission burst
func TestQueue_OrderUnderManyEvents(t *testing.T) {
	q := NewQueue("region1")
	q.Start()
	defer q.Destroy()

	l := newRecordingListener()
	const numEvents = 1000
	for i := 0; i < numEvents; i++ {
		q.Submit(l, ElementEvent{Kind: ElementPlaced, Key: fmt.Sprintf("k%04d", i)})
	}

	testutil.WaitFor(t, 5*time.Second, "all events to be delivered", func() bool {
		return len(l.recorded()) == numEvents
	})

	for i, ev := range l.recorded() {
		want := fmt.Sprintf("k%04d", i)
		if ev.Key != want {
			t.Fatalf("Event %d out of order: expected key %s, got %s", i, want, ev.Key)
		}
	}
}

// TestQueue_ListenerFailureDoesNotStopDelivery tests that a failing event
// is dropped and subsequent events still arrive
func TestQueue_ListenerFailureDoesNotStopDelivery(t *testing.T) {
	q := NewQueue("region1")
	q.Start()
	defer q.Destroy()

	l := newRecordingListener()
	l.failOn["bad"] = true

	q.Submit(l, ElementEvent{Kind: ElementPlaced, Key: "k1"})
	q.Submit(l, ElementEvent{Kind: ElementPlaced, Key: "bad"})
	q.Submit(l, ElementEvent{Kind: ElementPlaced, Key: "k2"})

	testutil.WaitFor(t, time.Second, "surviving events to be delivered", func() bool {
		return len(l.recorded()) == 2
	})

	got := l.recorded()
	if got[0].Key != "k1" || got[1].Key != "k2" {
		t.Errorf("Expected [k1 k2] after dropping the failed event, got [%s %s]", got[0].Key, got[1].Key)
	}
}

// TestQueue_DestroyDropsQueuedEvents tests that events still queued at
// destruction time are never delivered
func TestQueue_DestroyDropsQueuedEvents(t *testing.T) {
	q := NewQueue("region1")
	q.Start()

	l := newRecordingListener()
	l.blockCh = make(chan struct{})

	// First event parks the delivery loop inside the listener; the rest
	// pile up behind it.
	q.Submit(l, ElementEvent{Kind: ElementPlaced, Key: "k1"})
	q.Submit(l, ElementEvent{Kind: ElementPlaced, Key: "k2"})
	q.Submit(l, ElementEvent{Kind: ElementPlaced, Key: "k3"})

	testutil.WaitFor(t, time.Second, "queued events to pile up", func() bool {
		return q.Len() == 2
	})

	// Destroy while the loop is mid-delivery, then release the listener.
	destroyed := make(chan struct{})
	go func() {
		q.Destroy()
		close(destroyed)
	}()
	testutil.WaitFor(t, time.Second, "destroy flag to be set", func() bool {
		return !q.IsActive()
	})
	close(l.blockCh)
	<-destroyed

	// Only the in-flight event was delivered; k2 and k3 were dropped.
	got := l.recorded()
	if len(got) != 1 || got[0].Key != "k1" {
		t.Errorf("Expected only the in-flight event k1 delivered, got %v", got)
	}
	if q.Len() != 0 {
		t.Errorf("Expected queue emptied on destroy, got %d records", q.Len())
	}
}

// TestQueue_SubmitAfterDestroyIsDropped tests that submissions after
// Destroy have no effect
func TestQueue_SubmitAfterDestroyIsDropped(t *testing.T) {
	q := NewQueue("region1")
	q.Start()
	q.Destroy()

	l := newRecordingListener()
	q.Submit(l, ElementEvent{Kind: ElementPlaced, Key: "k1"})

	time.Sleep(50 * time.Millisecond)
	if len(l.recorded()) != 0 {
		t.Error("Expected no delivery for events submitted after Destroy")
	}
	if q.Len() != 0 {
		t.Errorf("Expected nothing queued after Destroy, got %d records", q.Len())
	}
}

// TestQueue_DestroyIdempotent tests repeated and unstarted Destroy calls
func TestQueue_DestroyIdempotent(t *testing.T) {
	q := NewQueue("region1")
	q.Start()
	q.Destroy()
	q.Destroy()

	if q.IsActive() {
		t.Error("Expected queue inactive after Destroy")
	}

	// A queue that was never started can still be destroyed
	q2 := NewQueue("region2")
	l := newRecordingListener()
	q2.Submit(l, ElementEvent{Kind: ElementPlaced, Key: "k1"})
	q2.Destroy()
	if q2.Len() != 0 {
		t.Errorf("Expected unstarted queue emptied on destroy, got %d records", q2.Len())
	}
}

// TestQueue_SecondStartIsIgnored tests that a second Start never spawns
// a second consumer; ordering stays intact under concurrent producers
func TestQueue_SecondStartIsIgnored(t *testing.T) {
	q := NewQueue("region1")
	q.Start()
	q.Start()
	defer q.Destroy()

	l := newRecordingListener()
	const numEvents = 500
	for i := 0; i < numEvents; i++ {
		q.Submit(l, ElementEvent{Kind: ElementPlaced, Key: fmt.Sprintf("k%03d", i)})
	}

	testutil.WaitFor(t, 5*time.Second, "all events to be delivered", func() bool {
		return len(l.recorded()) == numEvents
	})

	// With a single consumer the order is exact; a second consumer would
	// interleave and break it.
	for i, ev := range l.recorded() {
		want := fmt.Sprintf("k%03d", i)
		if ev.Key != want {
			t.Fatalf("Event %d out of order: expected key %s, got %s", i, want, ev.Key)
		}
	}
}

// TestQueue_IsActive tests the active flag across the lifecycle
func TestQueue_IsActive(t *testing.T) {
	q := NewQueue("region1")
	if !q.IsActive() {
		t.Error("Expected a fresh queue to be active")
	}
	q.Start()
	if !q.IsActive() {
		t.Error("Expected a started queue to be active")
	}
	q.Destroy()
	if q.IsActive() {
		t.Error("Expected a destroyed queue to be inactive")
	}
}

// TestQueue_ConcurrentProducers tests that concurrent submitters never
// lose events and per-producer order is preserved
func TestQueue_ConcurrentProducers(t *testing.T) {
	q := NewQueue("region1")
	q.Start()
	defer q.Destroy()

	l := newRecordingListener()
	const numProducers = 4
	const eventsPerProducer = 200

	var wg sync.WaitGroup
	for p := 0; p < numProducers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < eventsPerProducer; i++ {
				q.Submit(l, ElementEvent{Kind: ElementPlaced, Key: fmt.Sprintf("p%d-%04d", p, i)})
			}
		}(p)
	}
	wg.Wait()

	testutil.WaitFor(t, 5*time.Second, "all events to be delivered", func() bool {
		return len(l.recorded()) == numProducers*eventsPerProducer
	})

	// Delivery order must preserve each producer's submission order.
	lastSeen := make(map[string]int)
	for p := 0; p < numProducers; p++ {
		lastSeen[fmt.Sprintf("p%d", p)] = -1
	}
	for _, ev := range l.recorded() {
		var producer string
		var seq int
		if _, err := fmt.Sscanf(ev.Key, "p%1s-%d", &producer, &seq); err != nil {
			t.Fatalf("Unexpected key %q: %v", ev.Key, err)
		}
		producer = "p" + producer
		if seq <= lastSeen[producer] {
			t.Fatalf("Producer %s events out of order: %d after %d", producer, seq, lastSeen[producer])
		}
		lastSeen[producer] = seq
	}
}
