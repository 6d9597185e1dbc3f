package sqlstore

import (
	"errors"

	"github.com/averho/banter/internal/models"
	"github.com/averho/banter/internal/store"
)

// orderPair canonicalizes an unordered user pair so exactly one private_chats
// row can exist per pair regardless of who messaged first.
func orderPair(a, b int) (int, int) {
	if a > b {
		return b, a
	}
	return a, b
}

func (s *SQLStore) getPrivateChat(q querier, userOne, userTwo int) (*models.PrivateChat, error) {
	var chat models.PrivateChat
	query := s.rebind("SELECT id, user1_id, user2_id, created_at FROM private_chats WHERE user1_id = ? AND user2_id = ?")
	err := q.QueryRow(query, userOne, userTwo).Scan(&chat.ID, &chat.UserOne, &chat.UserTwo, &chat.CreatedAt)
	if err != nil {
		return nil, storeErr(err)
	}
	return &chat, nil
}

func (s *SQLStore) ensurePrivateChat(q querier, userA, userB int) (*models.PrivateChat, error) {
	userOne, userTwo := orderPair(userA, userB)

	chat, err := s.getPrivateChat(q, userOne, userTwo)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	// ON CONFLICT DO NOTHING keeps a lost concurrent first-contact race
	// from erroring: a plain unique violation would abort an enclosing
	// postgres transaction and poison everything after it. The row is
	// there either way, so re-read.
	insert := s.rebind("INSERT INTO private_chats (user1_id, user2_id) VALUES (?, ?) ON CONFLICT (user1_id, user2_id) DO NOTHING")
	if _, err := q.Exec(insert, userOne, userTwo); err != nil {
		return nil, storeErr(err)
	}
	return s.getPrivateChat(q, userOne, userTwo)
}

// EnsurePrivateChat returns the pairing record for an unordered user pair,
// creating it on first contact.
func (s *SQLStore) EnsurePrivateChat(userA, userB int) (*models.PrivateChat, error) {
	return s.ensurePrivateChat(s.db, userA, userB)
}

// SavePrivateMessage appends a private message, lazily establishing the
// pairing record in the same transaction. Either both rows are durable or
// neither is.
func (s *SQLStore) SavePrivateMessage(senderID, receiverID int, content string) (*models.Message, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, storeErr(err)
	}
	defer tx.Rollback()

	if _, err := s.ensurePrivateChat(tx, senderID, receiverID); err != nil {
		return nil, err
	}

	var id int
	insert := s.rebind("INSERT INTO messages (sender_id, receiver_id, message_type, content) VALUES (?, ?, 'private', ?) RETURNING id")
	if err := tx.QueryRow(insert, senderID, receiverID, content).Scan(&id); err != nil {
		return nil, storeErr(err)
	}

	var msg models.Message
	hydrate := s.rebind(`
		SELECT m.id, m.sender_id, u.username, m.receiver_id, m.content, m.created_at
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.id = ?
	`)
	err = tx.QueryRow(hydrate, id).Scan(&msg.ID, &msg.SenderID, &msg.SenderName, &msg.ReceiverID, &msg.Content, &msg.CreatedAt)
	if err != nil {
		return nil, storeErr(err)
	}
	msg.Kind = models.KindPrivate

	if err := tx.Commit(); err != nil {
		return nil, storeErr(err)
	}
	return &msg, nil
}

// GetPrivateMessages returns the full private history between two users in
// chronological order.
func (s *SQLStore) GetPrivateMessages(userA, userB int) ([]models.Message, error) {
	query := s.rebind(`
		SELECT m.id, m.sender_id, u.username, m.receiver_id, m.content, m.created_at
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE ((m.sender_id = ? AND m.receiver_id = ?) OR (m.sender_id = ? AND m.receiver_id = ?))
		AND m.message_type = 'private'
		ORDER BY m.created_at ASC, m.id ASC
	`)
	rows, err := s.db.Query(query, userA, userB, userB, userA)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.SenderName, &m.ReceiverID, &m.Content, &m.CreatedAt); err != nil {
			return nil, storeErr(err)
		}
		m.Kind = models.KindPrivate
		messages = append(messages, m)
	}
	return messages, storeErr(rows.Err())
}

// GetUserPrivateChats lists a user's established private chats with the
// other party denormalized for display.
func (s *SQLStore) GetUserPrivateChats(userID int) ([]models.PrivateChat, error) {
	query := s.rebind(`
		SELECT pc.id, pc.user1_id, pc.user2_id, pc.created_at,
		       CASE WHEN pc.user1_id = ? THEN u2.id ELSE u1.id END,
		       CASE WHEN pc.user1_id = ? THEN u2.username ELSE u1.username END
		FROM private_chats pc
		JOIN users u1 ON pc.user1_id = u1.id
		JOIN users u2 ON pc.user2_id = u2.id
		WHERE pc.user1_id = ? OR pc.user2_id = ?
	`)
	rows, err := s.db.Query(query, userID, userID, userID, userID)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var chats []models.PrivateChat
	for rows.Next() {
		var chat models.PrivateChat
		if err := rows.Scan(&chat.ID, &chat.UserOne, &chat.UserTwo, &chat.CreatedAt, &chat.OtherID, &chat.OtherName); err != nil {
			return nil, storeErr(err)
		}
		chats = append(chats, chat)
	}
	return chats, storeErr(rows.Err())
}
