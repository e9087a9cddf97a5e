package lateral

import (
	"fmt"

	"github.com/xiaonanln/regioncache/event"
	"github.com/xiaonanln/regioncache/util/logger"
	"github.com/xiaonanln/regioncache/util/uniqueid"
)

// Store is the slice of a cache region the bridge applies inbound
// commands to. The mutations must not publish lifecycle events, or an
// applied command would be replicated again and bounce between peers
// forever.
type Store interface {
	PutLocal(key string, value []byte)
	RemoveLocal(key string)
	RemoveAll()
}

// Bridge connects a region's lifecycle events to lateral replication.
//
// As an event.Listener it converts placed/removed/expired events into
// replication commands tagged with this node's requester ID and hands
// them to the Sender. On the inbound side, Receive applies a peer's
// command to the local store, dropping commands this node originated.
type Bridge struct {
	regionName  string
	requesterID string
	sender      Sender
	store       Store
	logger      *logger.Logger
}

// NewBridge creates a bridge for the named region with a fresh requester
// identity.
func NewBridge(regionName string, sender Sender, store Store) *Bridge {
	return &Bridge{
		regionName:  regionName,
		requesterID: uniqueid.UniqueId(),
		sender:      sender,
		store:       store,
		logger:      logger.NewLogger("LateralBridge"),
	}
}

// RequesterID returns the identity this bridge stamps on outbound
// commands.
func (b *Bridge) RequesterID() string {
	return b.requesterID
}

// HandleElementEvent converts a lifecycle event into a replication
// command and sends it. Queue disposal is not replicated; it only means
// this node's listener is going away.
func (b *Bridge) HandleElementEvent(ev event.ElementEvent) error {
	var op Op
	switch ev.Kind {
	case event.ElementPlaced:
		op = OpUpdate
	case event.ElementRemoved, event.ElementExpired:
		op = OpRemove
	case event.QueueDisposed:
		return nil
	default:
		return fmt.Errorf("no replication mapping for event kind %v", ev.Kind)
	}

	cmd := Command{
		Op:          op,
		Region:      b.regionName,
		Key:         ev.Key,
		Value:       ev.Value,
		RequesterID: b.requesterID,
	}
	if err := b.sender.Send(cmd); err != nil {
		return fmt.Errorf("send %s for key %q: %w", cmd.Op, cmd.Key, err)
	}
	return nil
}

// Receive applies an inbound command from a peer to the local store.
// Commands originated by this node are dropped (echo suppression), as
// are commands addressed to a different region.
func (b *Bridge) Receive(cmd Command) {
	if cmd.RequesterID == b.requesterID {
		b.logger.Debugf("Suppressing echoed %s command for key %q", cmd.Op, cmd.Key)
		return
	}
	if cmd.Region != b.regionName {
		b.logger.Warnf("Dropping %s command for region %q, bridge serves %q", cmd.Op, cmd.Region, b.regionName)
		return
	}

	switch cmd.Op {
	case OpUpdate:
		b.store.PutLocal(cmd.Key, cmd.Value)
	case OpRemove:
		b.store.RemoveLocal(cmd.Key)
	case OpRemoveAll:
		b.store.RemoveAll()
	case OpGet:
		// Gets are answered by the transport layer, which can read the
		// region directly; nothing to apply here.
		b.logger.Debugf("Ignoring GET command for key %q", cmd.Key)
	default:
		b.logger.Warnf("Dropping command with unknown op %d for key %q", cmd.Op, cmd.Key)
	}
}
