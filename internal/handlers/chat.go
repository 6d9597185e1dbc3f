package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/averho/banter/internal/middleware"
	"github.com/averho/banter/internal/store"
)

type ChatHandler struct {
	Store    store.Store
	Validate *validator.Validate
	Logger   *slog.Logger
}

func pathID(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	return id, err == nil && id > 0
}

// StartPrivateChat establishes (or returns) the private chat with another
// user without sending a message.
func (h *ChatHandler) StartPrivateChat(w http.ResponseWriter, r *http.Request) {
	otherID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	chat, err := h.Store.EnsurePrivateChat(middleware.UserID(r), otherID)
	if err != nil {
		h.Logger.Error("ensuring private chat", "error", err)
		respondError(w, storeStatus(err), "Failed to create chat")
		return
	}
	respondJSON(w, http.StatusOK, chat)
}

func (h *ChatHandler) GetPrivateMessages(w http.ResponseWriter, r *http.Request) {
	otherID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	messages, err := h.Store.GetPrivateMessages(middleware.UserID(r), otherID)
	if err != nil {
		h.Logger.Error("getting private messages", "error", err)
		respondError(w, storeStatus(err), "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, messages)
}

func (h *ChatHandler) GetPrivateChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.Store.GetUserPrivateChats(middleware.UserID(r))
	if err != nil {
		h.Logger.Error("getting private chats", "error", err)
		respondError(w, storeStatus(err), "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, chats)
}

type sendPrivateMessageRequest struct {
	ReceiverID int    `json:"receiver_id" validate:"required,gt=0"`
	Content    string `json:"content" validate:"required"`
}

// SendPrivateMessage persists a private message over REST. Live subscribers
// are not notified here; the websocket path is the delivery channel.
func (h *ChatHandler) SendPrivateMessage(w http.ResponseWriter, r *http.Request) {
	var req sendPrivateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "No JSON data provided")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if err := h.Validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Receiver and content are required")
		return
	}

	message, err := h.Store.SavePrivateMessage(middleware.UserID(r), req.ReceiverID, req.Content)
	if err != nil {
		h.Logger.Error("saving private message", "receiver", req.ReceiverID, "error", err)
		respondError(w, storeStatus(err), "Failed to send message")
		return
	}
	respondJSON(w, http.StatusCreated, message)
}

func (h *ChatHandler) GetGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Store.GetGroups()
	if err != nil {
		h.Logger.Error("listing groups", "error", err)
		respondError(w, storeStatus(err), "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, groups)
}

func (h *ChatHandler) GetMyGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Store.GetUserGroups(middleware.UserID(r))
	if err != nil {
		h.Logger.Error("listing user groups", "error", err)
		respondError(w, storeStatus(err), "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, groups)
}

type createGroupRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (h *ChatHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "No JSON data provided")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := h.Validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Group name is required")
		return
	}

	groupID, err := h.Store.CreateGroup(req.Name, strings.TrimSpace(req.Description), middleware.UserID(r))
	if err != nil {
		h.Logger.Error("creating group", "error", err)
		respondError(w, storeStatus(err), "Failed to create group")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message":  "Group created successfully",
		"group_id": groupID,
	})
}

func (h *ChatHandler) JoinGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid group id")
		return
	}
	if _, err := h.Store.GetGroup(groupID); err != nil {
		respondError(w, storeStatus(err), "Group not found")
		return
	}

	if err := h.Store.AddGroupMember(groupID, middleware.UserID(r)); err != nil {
		h.Logger.Error("joining group", "group", groupID, "error", err)
		respondError(w, storeStatus(err), "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Joined group successfully"})
}

type sendGroupMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// SendGroupMessage persists a group message over REST. Live subscribers are
// not notified here; the websocket path is the delivery channel.
func (h *ChatHandler) SendGroupMessage(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid group id")
		return
	}

	var req sendGroupMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "No JSON data provided")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if err := h.Validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Content is required")
		return
	}

	userID := middleware.UserID(r)
	member, err := h.Store.IsGroupMember(groupID, userID)
	if err != nil {
		h.Logger.Error("checking membership", "group", groupID, "error", err)
		respondError(w, storeStatus(err), "Internal server error")
		return
	}
	if !member {
		respondError(w, http.StatusForbidden, "Not a member of this group")
		return
	}

	message, err := h.Store.SaveGroupMessage(groupID, userID, req.Content)
	if err != nil {
		h.Logger.Error("saving group message", "group", groupID, "error", err)
		respondError(w, storeStatus(err), "Failed to send message")
		return
	}
	respondJSON(w, http.StatusCreated, message)
}

func (h *ChatHandler) GetGroupMessages(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid group id")
		return
	}

	messages, err := h.Store.GetGroupMessages(groupID)
	if err != nil {
		h.Logger.Error("getting group messages", "group", groupID, "error", err)
		respondError(w, storeStatus(err), "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, messages)
}

func (h *ChatHandler) GetGroupMembers(w http.ResponseWriter, r *http.Request) {
	groupID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid group id")
		return
	}

	members, err := h.Store.GetGroupMembers(groupID)
	if err != nil {
		h.Logger.Error("getting group members", "group", groupID, "error", err)
		respondError(w, storeStatus(err), "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, members)
}
