package sqlstore

import (
	"github.com/averho/banter/internal/models"
)

func (s *SQLStore) CreateUser(user *models.User) error {
	query := s.rebind("INSERT INTO users (username, email, password) VALUES (?, ?, ?) RETURNING id")
	err := s.db.QueryRow(query, user.Username, user.Email, user.Password).Scan(&user.ID)
	return storeErr(err)
}

func (s *SQLStore) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	query := s.rebind("SELECT id, username, email, password, created_at FROM users WHERE username = ?")
	err := s.db.QueryRow(query, username).Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.CreatedAt)
	if err != nil {
		return nil, storeErr(err)
	}
	return &user, nil
}

func (s *SQLStore) GetUserByID(id int) (*models.User, error) {
	var user models.User
	query := s.rebind("SELECT id, username, email, password, created_at FROM users WHERE id = ?")
	err := s.db.QueryRow(query, id).Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.CreatedAt)
	if err != nil {
		return nil, storeErr(err)
	}
	return &user, nil
}

// GetUsers lists every user ordered by username, leaving out excludeID so a
// client does not see itself in the contact list. Pass 0 to list everyone.
func (s *SQLStore) GetUsers(excludeID int) ([]models.User, error) {
	query := s.rebind("SELECT id, username, email, created_at FROM users WHERE id != ? ORDER BY username")
	rows, err := s.db.Query(query, excludeID)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt); err != nil {
			return nil, storeErr(err)
		}
		users = append(users, user)
	}
	return users, storeErr(rows.Err())
}
