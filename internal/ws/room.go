package ws

import (
	"fmt"
	"sync"

	"github.com/averho/banter/internal/models"
)

// Room identifies one logical broadcast group: either the canonicalized
// private pair of two user ids or a group chat id. Rooms are comparable
// values used directly as map keys.
type Room struct {
	kind    models.MessageKind
	userOne int
	userTwo int
	groupID int
}

// PrivateRoom returns the room for an unordered pair of users. The pair is
// sorted so PrivateRoom(3, 7) and PrivateRoom(7, 3) are the same room.
func PrivateRoom(a, b int) Room {
	if a > b {
		a, b = b, a
	}
	return Room{kind: models.KindPrivate, userOne: a, userTwo: b}
}

func GroupRoom(groupID int) Room {
	return Room{kind: models.KindGroup, groupID: groupID}
}

func (r Room) String() string {
	if r.kind == models.KindGroup {
		return fmt.Sprintf("group_%d", r.groupID)
	}
	return fmt.Sprintf("private_%d_%d", r.userOne, r.userTwo)
}

// Registry maps rooms to their currently subscribed clients. All methods are
// safe for concurrent use; none of them block on anything but the internal
// lock, so callers must not hold it across persistence calls (they can't —
// it is private).
type Registry struct {
	mu      sync.RWMutex
	rooms   map[Room]map[*Client]struct{}
	members map[*Client]map[Room]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:   make(map[Room]map[*Client]struct{}),
		members: make(map[*Client]map[Room]struct{}),
	}
}

// Subscribe joins a client to a room. Subscribing twice is a no-op, so a
// client never receives duplicate deliveries for one room.
func (r *Registry) Subscribe(room Room, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[room] == nil {
		r.rooms[room] = make(map[*Client]struct{})
	}
	r.rooms[room][c] = struct{}{}

	if r.members[c] == nil {
		r.members[c] = make(map[Room]struct{})
	}
	r.members[c][room] = struct{}{}
}

// UnsubscribeAll removes a client from every room it joined. Rooms left
// empty are dropped from the map so the registry does not grow unbounded.
func (r *Registry) UnsubscribeAll(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for room := range r.members[c] {
		delete(r.rooms[room], c)
		if len(r.rooms[room]) == 0 {
			delete(r.rooms, room)
		}
	}
	delete(r.members, c)
}

// SubscribersOf returns a point-in-time copy of a room's subscribers.
// Broadcast iterates this snapshot, never the live set, so concurrent
// joins and disconnects cannot perturb an in-flight delivery.
func (r *Registry) SubscribersOf(room Room) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subscribers := make([]*Client, 0, len(r.rooms[room]))
	for c := range r.rooms[room] {
		subscribers = append(subscribers, c)
	}
	return subscribers
}
