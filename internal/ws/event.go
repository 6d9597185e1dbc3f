package ws

import (
	"encoding/json"
	"errors"

	"github.com/averho/banter/internal/store"
)

// Wire event names. Inbound events arrive wrapped in an Envelope; outbound
// events are sent the same way.
const (
	EventJoinPrivateChat    = "join_private_chat"
	EventJoinGroupChat      = "join_group_chat"
	EventSendPrivateMessage = "send_private_message"
	EventSendGroupMessage   = "send_group_message"

	EventReceivePrivateMessage = "receive_private_message"
	EventReceiveGroupMessage   = "receive_group_message"
	EventError                 = "error"
)

type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type JoinPrivateChatPayload struct {
	OtherUserID int `json:"other_user_id" validate:"required,gt=0"`
}

type JoinGroupChatPayload struct {
	GroupID int `json:"group_id" validate:"required,gt=0"`
}

type SendPrivateMessagePayload struct {
	ReceiverID int    `json:"receiver_id" validate:"required,gt=0"`
	Content    string `json:"content" validate:"required"`
}

type SendGroupMessagePayload struct {
	GroupID int    `json:"group_id" validate:"required,gt=0"`
	Content string `json:"content" validate:"required"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func encodeEvent(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// errorMessage maps an internal failure to what the originating connection
// is told. Validation errors are safe to echo; storage errors are not.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "not authenticated"
	case errors.Is(err, ErrNotMember):
		return "not a member of this group"
	case errors.Is(err, ErrInvalidInput):
		return err.Error()
	case errors.Is(err, store.ErrUnavailable), errors.Is(err, store.ErrConstraint):
		return "message could not be saved"
	default:
		return "internal error"
	}
}
