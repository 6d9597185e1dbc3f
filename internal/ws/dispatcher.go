package ws

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/averho/banter/internal/models"
)

var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotMember       = errors.New("not a group member")
)

// Gateway is the slice of the persistence layer the dispatcher needs.
// store.Store satisfies it.
type Gateway interface {
	SavePrivateMessage(senderID, receiverID int, content string) (*models.Message, error)
	SaveGroupMessage(groupID, senderID int, content string) (*models.Message, error)
	IsGroupMember(groupID, userID int) (bool, error)
}

// Dispatcher drives one inbound message event from validation through
// persistence to fan-out. It is called from each connection's read
// goroutine, so one sender blocking on the store never stalls another
// connection's joins or deliveries; the registry lock is only taken for
// the snapshot, after the persist completed.
type Dispatcher struct {
	gateway  Gateway
	registry *Registry
	logger   *slog.Logger
}

func NewDispatcher(gateway Gateway, registry *Registry, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{gateway: gateway, registry: registry, logger: logger}
}

// DispatchPrivate persists a private message from sender and broadcasts the
// persisted result to the pair's room. Any returned error is reported to
// the sender only; nothing was broadcast.
func (d *Dispatcher) DispatchPrivate(sender *Client, receiverID int, content string) error {
	content, err := d.validate(sender, receiverID, content)
	if err != nil {
		return err
	}

	msg, err := d.gateway.SavePrivateMessage(sender.UserID(), receiverID, content)
	if err != nil {
		return fmt.Errorf("persisting private message: %w", err)
	}

	d.broadcast(PrivateRoom(sender.UserID(), receiverID), EventReceivePrivateMessage, msg)
	return nil
}

// DispatchGroup is the group counterpart. The sender must be a member of
// the group; non-members are rejected before anything is persisted.
func (d *Dispatcher) DispatchGroup(sender *Client, groupID int, content string) error {
	content, err := d.validate(sender, groupID, content)
	if err != nil {
		return err
	}

	member, err := d.gateway.IsGroupMember(groupID, sender.UserID())
	if err != nil {
		return fmt.Errorf("checking group membership: %w", err)
	}
	if !member {
		return ErrNotMember
	}

	msg, err := d.gateway.SaveGroupMessage(groupID, sender.UserID(), content)
	if err != nil {
		return fmt.Errorf("persisting group message: %w", err)
	}

	d.broadcast(GroupRoom(groupID), EventReceiveGroupMessage, msg)
	return nil
}

// validate rejects events that must never reach the store: anonymous
// senders, missing targets, and content that is empty once trimmed.
func (d *Dispatcher) validate(sender *Client, target int, content string) (string, error) {
	if !sender.Authenticated() {
		return "", ErrUnauthenticated
	}
	if target <= 0 {
		return "", fmt.Errorf("%w: missing target", ErrInvalidInput)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("%w: empty content", ErrInvalidInput)
	}
	return content, nil
}

// broadcast delivers the persisted message to a snapshot of the room's
// subscribers, the sender's own connection included if subscribed. Delivery
// is a non-blocking enqueue per subscriber: a client whose send buffer is
// full is disconnected rather than allowed to stall the rest. An empty
// snapshot is not an error; the message is durable and retrievable over
// REST.
func (d *Dispatcher) broadcast(room Room, event string, msg *models.Message) {
	payload, err := encodeEvent(event, msg)
	if err != nil {
		d.logger.Error("encoding broadcast", "room", room.String(), "error", err)
		return
	}

	subscribers := d.registry.SubscribersOf(room)
	delivered := 0
	for _, c := range subscribers {
		if c.enqueue(payload) {
			delivered++
			continue
		}
		d.logger.Warn("dropping slow subscriber", "room", room.String(), "conn", c.ID())
		c.disconnect()
	}

	d.logger.Debug("broadcast",
		"room", room.String(),
		"message_id", msg.ID,
		"subscribers", len(subscribers),
		"delivered", delivered)
}
