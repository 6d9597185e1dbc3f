package models

import "time"

// MessageKind discriminates the two message shapes stored in the messages
// table. A private message carries a receiver id, a group message a group id.
type MessageKind string

const (
	KindPrivate MessageKind = "private"
	KindGroup   MessageKind = "group"
)

type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type Group struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedBy   int       `json:"created_by"`
	CreatorName string    `json:"created_by_username,omitempty"`
	MemberCount int       `json:"member_count,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PrivateChat is the durable record that a private room exists for a pair of
// users. UserOne < UserTwo always; the store canonicalizes on write.
type PrivateChat struct {
	ID        int       `json:"id"`
	UserOne   int       `json:"user1_id"`
	UserTwo   int       `json:"user2_id"`
	OtherID   int       `json:"other_user_id,omitempty"`
	OtherName string    `json:"other_user_username,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is the persisted, hydrated representation handed back by the store
// and broadcast to subscribers. ReceiverID is set for private messages,
// GroupID and GroupName for group messages.
type Message struct {
	ID         int         `json:"id"`
	SenderID   int         `json:"sender_id"`
	SenderName string      `json:"sender_username"`
	ReceiverID int         `json:"receiver_id,omitempty"`
	GroupID    int         `json:"group_id,omitempty"`
	GroupName  string      `json:"group_name,omitempty"`
	Kind       MessageKind `json:"message_type"`
	Content    string      `json:"content"`
	CreatedAt  time.Time   `json:"created_at"`
}
