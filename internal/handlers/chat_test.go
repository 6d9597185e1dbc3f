package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averho/banter/internal/auth"
	"github.com/averho/banter/internal/middleware"
	"github.com/averho/banter/internal/models"
	"github.com/averho/banter/internal/store/sqlstore"
)

func newChatHandler(t *testing.T) (*ChatHandler, *sqlstore.SQLStore, *auth.Signer) {
	t.Helper()
	s, err := sqlstore.New("sqlite3", ":memory:", 1)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	h := &ChatHandler{
		Store:    s,
		Validate: validator.New(validator.WithRequiredStructEnabled()),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return h, s, auth.NewSigner("test-secret")
}

func mustCreateUser(t *testing.T, s *sqlstore.SQLStore, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Password: "hash"}
	require.NoError(t, s.CreateUser(u))
	return u
}

// doAuthed runs a request through the auth middleware as the given user,
// with mux vars set the way the router would.
func doAuthed(t *testing.T, signer *auth.Signer, handler http.HandlerFunc, method, path string, userID int, vars map[string]string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: signer.Sign(strconv.Itoa(userID))})

	rr := httptest.NewRecorder()
	middleware.Auth(signer)(handler).ServeHTTP(rr, req)
	return rr
}

func TestStartPrivateChat(t *testing.T) {
	h, s, signer := newChatHandler(t)
	alice := mustCreateUser(t, s, "alice")
	bob := mustCreateUser(t, s, "bob")

	rr := doAuthed(t, signer, h.StartPrivateChat, "POST", "/api/private/start-chat/2", alice.ID,
		map[string]string{"id": strconv.Itoa(bob.ID)}, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var chat models.PrivateChat
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&chat))
	assert.Less(t, chat.UserOne, chat.UserTwo)

	// Starting it again returns the same record.
	rr = doAuthed(t, signer, h.StartPrivateChat, "POST", "/api/private/start-chat/1", bob.ID,
		map[string]string{"id": strconv.Itoa(alice.ID)}, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var again models.PrivateChat
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&again))
	assert.Equal(t, chat.ID, again.ID)
}

func TestCreateAndJoinGroup(t *testing.T) {
	h, s, signer := newChatHandler(t)
	alice := mustCreateUser(t, s, "alice")
	bob := mustCreateUser(t, s, "bob")

	rr := doAuthed(t, signer, h.CreateGroup, "POST", "/api/groups/create", alice.ID, nil,
		map[string]string{"name": "general", "description": "chitchat"})
	require.Equal(t, http.StatusCreated, rr.Code)

	var created struct {
		GroupID int `json:"group_id"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&created))
	require.NotZero(t, created.GroupID)

	vars := map[string]string{"id": strconv.Itoa(created.GroupID)}
	rr = doAuthed(t, signer, h.JoinGroup, "POST", "/api/groups/1/join", bob.ID, vars, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	member, err := s.IsGroupMember(created.GroupID, bob.ID)
	require.NoError(t, err)
	assert.True(t, member)
}

func TestCreateGroupRequiresName(t *testing.T) {
	h, s, signer := newChatHandler(t)
	alice := mustCreateUser(t, s, "alice")

	rr := doAuthed(t, signer, h.CreateGroup, "POST", "/api/groups/create", alice.ID, nil,
		map[string]string{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestJoinMissingGroup(t *testing.T) {
	h, s, signer := newChatHandler(t)
	alice := mustCreateUser(t, s, "alice")

	rr := doAuthed(t, signer, h.JoinGroup, "POST", "/api/groups/99/join", alice.ID,
		map[string]string{"id": "99"}, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSendGroupMessageRequiresMembership(t *testing.T) {
	h, s, signer := newChatHandler(t)
	alice := mustCreateUser(t, s, "alice")
	mallory := mustCreateUser(t, s, "mallory")

	groupID, err := s.CreateGroup("general", "", alice.ID)
	require.NoError(t, err)
	vars := map[string]string{"id": strconv.Itoa(groupID)}

	rr := doAuthed(t, signer, h.SendGroupMessage, "POST", "/api/groups/1/send-message", mallory.ID, vars,
		map[string]string{"content": "hello"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = doAuthed(t, signer, h.SendGroupMessage, "POST", "/api/groups/1/send-message", alice.ID, vars,
		map[string]string{"content": "hello"})
	require.Equal(t, http.StatusCreated, rr.Code)

	var msg models.Message
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&msg))
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "general", msg.GroupName)
}

func TestGetPrivateMessagesHistory(t *testing.T) {
	h, s, signer := newChatHandler(t)
	alice := mustCreateUser(t, s, "alice")
	bob := mustCreateUser(t, s, "bob")

	_, err := s.SavePrivateMessage(alice.ID, bob.ID, "hi bob")
	require.NoError(t, err)
	_, err = s.SavePrivateMessage(bob.ID, alice.ID, "hi alice")
	require.NoError(t, err)

	rr := doAuthed(t, signer, h.GetPrivateMessages, "GET", "/api/private/messages/2", alice.ID,
		map[string]string{"id": strconv.Itoa(bob.ID)}, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var messages []models.Message
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&messages))
	require.Len(t, messages, 2)
	assert.Equal(t, "hi bob", messages[0].Content)
	assert.Equal(t, "hi alice", messages[1].Content)
}

func TestSendPrivateMessage(t *testing.T) {
	h, s, signer := newChatHandler(t)
	alice := mustCreateUser(t, s, "alice")
	bob := mustCreateUser(t, s, "bob")

	rr := doAuthed(t, signer, h.SendPrivateMessage, "POST", "/api/private/send-message", alice.ID, nil,
		map[string]any{"receiver_id": bob.ID, "content": "  hi bob  "})
	require.Equal(t, http.StatusCreated, rr.Code)

	var msg models.Message
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&msg))
	assert.Equal(t, alice.ID, msg.SenderID)
	assert.Equal(t, bob.ID, msg.ReceiverID)
	assert.Equal(t, "hi bob", msg.Content)
	assert.Equal(t, "alice", msg.SenderName)

	// First contact over REST establishes the pairing too.
	chats, err := s.GetUserPrivateChats(bob.ID)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, alice.ID, chats[0].OtherID)
}

func TestSendPrivateMessageRejectsBlank(t *testing.T) {
	h, s, signer := newChatHandler(t)
	alice := mustCreateUser(t, s, "alice")
	bob := mustCreateUser(t, s, "bob")

	rr := doAuthed(t, signer, h.SendPrivateMessage, "POST", "/api/private/send-message", alice.ID, nil,
		map[string]any{"receiver_id": bob.ID, "content": "   "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doAuthed(t, signer, h.SendPrivateMessage, "POST", "/api/private/send-message", alice.ID, nil,
		map[string]any{"content": "hello"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
