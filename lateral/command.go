package lateral

// Op identifies a lateral replication command.
type Op int

const (
	// OpUpdate replicates a placed element to peer caches.
	OpUpdate Op = iota + 1
	// OpRemove replicates a single-element removal.
	OpRemove
	// OpRemoveAll replicates a whole-region clear.
	OpRemoveAll
	// OpGet requests an element from a peer cache.
	OpGet
)

// String returns the string representation of the command op
func (op Op) String() string {
	switch op {
	case OpUpdate:
		return "UPDATE"
	case OpRemove:
		return "REMOVE"
	case OpRemoveAll:
		return "REMOVEALL"
	case OpGet:
		return "GET"
	default:
		return "UNKNOWN"
	}
}

// Command is the descriptor for one outbound or inbound replication
// operation. RequesterID tags the node that originated the command so a
// node receiving back its own command can drop it instead of
// re-processing it (echo suppression). Transport and wire encoding are
// the sender's concern.
type Command struct {
	Op          Op
	Region      string
	Key         string
	Value       []byte
	RequesterID string
}

// Sender carries commands to peer caches. Implementations own the
// transport; the bridge only hands them fully formed descriptors.
type Sender interface {
	Send(cmd Command) error
}
