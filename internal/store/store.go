package store

import (
	"errors"

	"github.com/averho/banter/internal/models"
)

// Typed failures surfaced by Store implementations. Callers match with
// errors.Is; the concrete driver error stays wrapped underneath.
var (
	// ErrNotFound: the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate: a uniqueness constraint rejected the write (e.g. an
	// already-taken username).
	ErrDuplicate = errors.New("already exists")
	// ErrConstraint: an unexpected constraint violation that is not
	// resolvable by treating it as success.
	ErrConstraint = errors.New("constraint violation")
	// ErrUnavailable: the backing store is unreachable or the operation
	// could not complete for infrastructural reasons.
	ErrUnavailable = errors.New("storage unavailable")
)

type Store interface {
	// User operations
	CreateUser(user *models.User) error
	GetUserByUsername(username string) (*models.User, error)
	GetUserByID(id int) (*models.User, error)
	GetUsers(excludeID int) ([]models.User, error)

	// Private chat operations
	EnsurePrivateChat(userA, userB int) (*models.PrivateChat, error)
	SavePrivateMessage(senderID, receiverID int, content string) (*models.Message, error)
	GetPrivateMessages(userA, userB int) ([]models.Message, error)
	GetUserPrivateChats(userID int) ([]models.PrivateChat, error)

	// Group operations
	CreateGroup(name, description string, createdBy int) (int, error)
	AddGroupMember(groupID, userID int) error
	IsGroupMember(groupID, userID int) (bool, error)
	GetGroup(groupID int) (*models.Group, error)
	GetGroups() ([]models.Group, error)
	GetUserGroups(userID int) ([]models.Group, error)
	GetGroupMembers(groupID int) ([]models.User, error)
	SaveGroupMessage(groupID, senderID int, content string) (*models.Message, error)
	GetGroupMessages(groupID int) ([]models.Message, error)
}
