package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Identity is the authenticated principal bound to a connection for its
// lifetime, supplied by the auth boundary. A nil Identity is an anonymous
// connection: admitted, but every join and send event is rejected.
type Identity struct {
	UserID   int
	Username string
}

// Client is one live connection session. It owns the websocket, a buffered
// outbound queue drained by writePump, and the identity. Room membership
// lives in the hub's registry and is torn down exactly once when the
// connection closes, however it closes.
type Client struct {
	id       string
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	identity *Identity

	mu     sync.Mutex
	closed bool
}

func (c *Client) ID() string { return c.id }

func (c *Client) Authenticated() bool { return c.identity != nil }

// UserID panics on anonymous clients; callers check Authenticated first.
func (c *Client) UserID() int { return c.identity.UserID }

func (c *Client) Username() string {
	if c.identity == nil {
		return ""
	}
	return c.identity.Username
}

// enqueue hands a payload to the write pump without blocking. It reports
// false when the client is gone or its buffer is full.
func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// closeSend marks the client closed and closes the send channel, which ends
// the write pump. Safe to call once only via the hub's unregister path.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// disconnect forces the transport closed; the read pump then exits and the
// hub unregisters the client.
func (c *Client) disconnect() {
	if c.conn != nil {
		c.conn.Close()
	}
}

func (c *Client) sendError(err error) {
	payload, encErr := encodeEvent(EventError, ErrorPayload{Message: errorMessage(err)})
	if encErr != nil {
		return
	}
	c.enqueue(payload)
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read", "conn", c.id, "error", err)
			}
			break
		}
		c.handleEvent(raw)
	}
}

// handleEvent routes one inbound envelope. Failures are reported to this
// connection only; nothing an individual client sends can error out anyone
// else's session.
func (c *Client) handleEvent(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.sendError(fmt.Errorf("%w: malformed event", ErrInvalidInput))
		return
	}

	var err error
	switch env.Event {
	case EventJoinPrivateChat:
		err = c.joinPrivateChat(env.Data)
	case EventJoinGroupChat:
		err = c.joinGroupChat(env.Data)
	case EventSendPrivateMessage:
		err = c.sendPrivateMessage(env.Data)
	case EventSendGroupMessage:
		err = c.sendGroupMessage(env.Data)
	default:
		err = fmt.Errorf("%w: unknown event %q", ErrInvalidInput, env.Event)
	}

	if err != nil {
		c.hub.logger.Warn("event rejected", "event", env.Event, "conn", c.id, "user", c.Username(), "error", err)
		c.sendError(err)
	}
}

func (c *Client) joinPrivateChat(data json.RawMessage) error {
	if !c.Authenticated() {
		return ErrUnauthenticated
	}
	var payload JoinPrivateChatPayload
	if err := c.decode(data, &payload); err != nil {
		return err
	}

	room := PrivateRoom(c.UserID(), payload.OtherUserID)
	c.hub.registry.Subscribe(room, c)
	c.hub.logger.Info("joined room", "room", room.String(), "user", c.Username(), "conn", c.id)
	return nil
}

func (c *Client) joinGroupChat(data json.RawMessage) error {
	if !c.Authenticated() {
		return ErrUnauthenticated
	}
	var payload JoinGroupChatPayload
	if err := c.decode(data, &payload); err != nil {
		return err
	}

	room := GroupRoom(payload.GroupID)
	c.hub.registry.Subscribe(room, c)
	c.hub.logger.Info("joined room", "room", room.String(), "user", c.Username(), "conn", c.id)
	return nil
}

func (c *Client) sendPrivateMessage(data json.RawMessage) error {
	var payload SendPrivateMessagePayload
	if err := c.decode(data, &payload); err != nil {
		return err
	}
	return c.hub.dispatcher.DispatchPrivate(c, payload.ReceiverID, payload.Content)
}

func (c *Client) sendGroupMessage(data json.RawMessage) error {
	var payload SendGroupMessagePayload
	if err := c.decode(data, &payload); err != nil {
		return err
	}
	return c.hub.dispatcher.DispatchGroup(c, payload.GroupID, payload.Content)
}

func (c *Client) decode(data json.RawMessage, payload any) error {
	if err := json.Unmarshal(data, payload); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := c.hub.validate.Struct(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One frame per envelope so every read on the client side
			// is a single JSON document.
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs upgrades an HTTP request to a websocket connection and registers
// the session with the hub. identity may be nil for anonymous connections.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, identity *Identity) {
	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Warn("websocket upgrade", "error", err)
		return
	}

	client := &Client{
		id:       uuid.NewString(),
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, hub.cfg.SendBufferSize),
		identity: identity,
	}
	select {
	case hub.register <- client:
	case <-hub.ctx.Done():
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
