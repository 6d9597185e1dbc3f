package sqlstore

import (
	"github.com/averho/banter/internal/models"
)

// CreateGroup creates a group chat and adds the creator as its first member
// in the same transaction.
func (s *SQLStore) CreateGroup(name, description string, createdBy int) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, storeErr(err)
	}
	defer tx.Rollback()

	var id int
	insert := s.rebind("INSERT INTO group_chats (name, description, created_by) VALUES (?, ?, ?) RETURNING id")
	if err := tx.QueryRow(insert, name, description, createdBy).Scan(&id); err != nil {
		return 0, storeErr(err)
	}

	member := s.rebind("INSERT INTO group_members (group_id, user_id) VALUES (?, ?)")
	if _, err := tx.Exec(member, id, createdBy); err != nil {
		return 0, storeErr(err)
	}

	if err := tx.Commit(); err != nil {
		return 0, storeErr(err)
	}
	return id, nil
}

// AddGroupMember joins a user to a group. Joining a group twice is not an
// error; the existing membership stands.
func (s *SQLStore) AddGroupMember(groupID, userID int) error {
	query := s.rebind("INSERT INTO group_members (group_id, user_id) VALUES (?, ?)")
	if _, err := s.db.Exec(query, groupID, userID); err != nil && !isUniqueViolation(err) {
		return storeErr(err)
	}
	return nil
}

func (s *SQLStore) IsGroupMember(groupID, userID int) (bool, error) {
	var exists bool
	query := s.rebind("SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id = ? AND user_id = ?)")
	err := s.db.QueryRow(query, groupID, userID).Scan(&exists)
	return exists, storeErr(err)
}

func (s *SQLStore) GetGroup(groupID int) (*models.Group, error) {
	var g models.Group
	query := s.rebind("SELECT id, name, description, created_by, created_at FROM group_chats WHERE id = ?")
	err := s.db.QueryRow(query, groupID).Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.CreatedAt)
	if err != nil {
		return nil, storeErr(err)
	}
	return &g, nil
}

// GetGroups lists every group with its creator and member count, newest
// first.
func (s *SQLStore) GetGroups() ([]models.Group, error) {
	query := `
		SELECT gc.id, gc.name, gc.description, gc.created_by, u.username, gc.created_at,
		       (SELECT COUNT(*) FROM group_members gm WHERE gm.group_id = gc.id)
		FROM group_chats gc
		JOIN users u ON gc.created_by = u.id
		ORDER BY gc.created_at DESC
	`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.CreatorName, &g.CreatedAt, &g.MemberCount); err != nil {
			return nil, storeErr(err)
		}
		groups = append(groups, g)
	}
	return groups, storeErr(rows.Err())
}

func (s *SQLStore) GetUserGroups(userID int) ([]models.Group, error) {
	query := s.rebind(`
		SELECT gc.id, gc.name, gc.description, gc.created_by, u.username, gc.created_at
		FROM group_chats gc
		JOIN group_members gm ON gc.id = gm.group_id
		JOIN users u ON gc.created_by = u.id
		WHERE gm.user_id = ?
		ORDER BY gc.name
	`)
	rows, err := s.db.Query(query, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.CreatorName, &g.CreatedAt); err != nil {
			return nil, storeErr(err)
		}
		groups = append(groups, g)
	}
	return groups, storeErr(rows.Err())
}

func (s *SQLStore) GetGroupMembers(groupID int) ([]models.User, error) {
	query := s.rebind(`
		SELECT u.id, u.username, u.email, u.created_at
		FROM group_members gm
		JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = ?
	`)
	rows, err := s.db.Query(query, groupID)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt); err != nil {
			return nil, storeErr(err)
		}
		users = append(users, u)
	}
	return users, storeErr(rows.Err())
}

// SaveGroupMessage appends a group message and returns it hydrated with the
// sender username and group name.
func (s *SQLStore) SaveGroupMessage(groupID, senderID int, content string) (*models.Message, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, storeErr(err)
	}
	defer tx.Rollback()

	var id int
	insert := s.rebind("INSERT INTO messages (sender_id, group_id, message_type, content) VALUES (?, ?, 'group', ?) RETURNING id")
	if err := tx.QueryRow(insert, senderID, groupID, content).Scan(&id); err != nil {
		return nil, storeErr(err)
	}

	var msg models.Message
	hydrate := s.rebind(`
		SELECT m.id, m.sender_id, u.username, m.group_id, g.name, m.content, m.created_at
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		JOIN group_chats g ON m.group_id = g.id
		WHERE m.id = ?
	`)
	err = tx.QueryRow(hydrate, id).Scan(&msg.ID, &msg.SenderID, &msg.SenderName, &msg.GroupID, &msg.GroupName, &msg.Content, &msg.CreatedAt)
	if err != nil {
		return nil, storeErr(err)
	}
	msg.Kind = models.KindGroup

	if err := tx.Commit(); err != nil {
		return nil, storeErr(err)
	}
	return &msg, nil
}

func (s *SQLStore) GetGroupMessages(groupID int) ([]models.Message, error) {
	query := s.rebind(`
		SELECT m.id, m.sender_id, u.username, m.group_id, m.content, m.created_at
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.group_id = ?
		ORDER BY m.created_at ASC, m.id ASC
	`)
	rows, err := s.db.Query(query, groupID)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.SenderName, &m.GroupID, &m.Content, &m.CreatedAt); err != nil {
			return nil, storeErr(err)
		}
		m.Kind = models.KindGroup
		messages = append(messages, m)
	}
	return messages, storeErr(rows.Err())
}
