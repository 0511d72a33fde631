package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const userColumns = "id, username, email, password, is_activated, role, created_at, last_login"

func scanUser(row scanner) (*User, error) {
	var user User
	var lastLogin sql.NullTime
	var role sql.NullString
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.IsActivated, &role, &user.CreatedAt, &lastLogin); err != nil {
		return nil, err
	}
	user.Role = role.String
	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}
	return &user, nil
}

func (s *SQLiteStore) getUser(ctx context.Context, where string, arg interface{}) (*User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM Users WHERE "+where, arg)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*User, error) {
	return s.getUser(ctx, "id = ?", id)
}

func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return s.getUser(ctx, "username = ?", username)
}

// UserExists reports whether either the username or the email is taken.
func (s *SQLiteStore) UserExists(ctx context.Context, username, email string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM Users WHERE username = ? OR email = ? LIMIT 1", username, email).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, username, email, passwordHash, role string, activated bool) (*User, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO Users (username, email, password, is_activated, role) VALUES (?, ?, ?, ?, ?)",
		username, email, passwordHash, activated, role)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetUserByID(ctx, id)
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM Users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (s *SQLiteStore) TouchLastLogin(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "UPDATE Users SET last_login = CURRENT_TIMESTAMP WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

func (s *SQLiteStore) updateUser(ctx context.Context, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return checkAffected(res)
}

func (s *SQLiteStore) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	return s.updateUser(ctx, "UPDATE Users SET password = ? WHERE id = ?", passwordHash, id)
}

func (s *SQLiteStore) UpdateUserRole(ctx context.Context, id int64, role string) error {
	return s.updateUser(ctx, "UPDATE Users SET role = ? WHERE id = ?", role, id)
}

func (s *SQLiteStore) SetUserActivation(ctx context.Context, id int64, activated bool) error {
	return s.updateUser(ctx, "UPDATE Users SET is_activated = ? WHERE id = ?", activated, id)
}
