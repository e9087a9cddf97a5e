package event

// Kind identifies the cache lifecycle transition an event describes.
type Kind int

const (
	// ElementPlaced signals that an element was put into a region.
	ElementPlaced Kind = iota
	// ElementRemoved signals that an element was explicitly removed.
	ElementRemoved
	// ElementExpired signals that an element was discarded past its max life.
	ElementExpired
	// QueueDisposed signals that the region's queue is shutting down.
	QueueDisposed
)

// String returns the string representation of the event kind
func (k Kind) String() string {
	switch k {
	case ElementPlaced:
		return "element-placed"
	case ElementRemoved:
		return "element-removed"
	case ElementExpired:
		return "element-expired"
	case QueueDisposed:
		return "queue-disposed"
	default:
		return "unknown"
	}
}

// ElementEvent is a cache lifecycle notification. Value may be nil for
// kinds that carry no element payload.
type ElementEvent struct {
	Kind  Kind
	Key   string
	Value []byte
}

// Listener receives lifecycle events from a queue's delivery loop. A
// returned error means the listener could not handle the event; the
// event is logged and dropped, never redelivered.
type Listener interface {
	HandleElementEvent(ev ElementEvent) error
}
