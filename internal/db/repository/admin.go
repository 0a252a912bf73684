package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/certledger/certledger/internal/models"
)

// ErrUserNotFound is returned when no admin user exists for a username.
var ErrUserNotFound = errors.New("admin user not found")

// AdminRepository handles admin user data access
type AdminRepository struct {
	db *sql.DB
}

// NewAdminRepository creates a new admin user repository
func NewAdminRepository(db *sql.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// Create creates a new admin user
func (r *AdminRepository) Create(user *models.AdminUser) error {
	query := `
		INSERT INTO admin_users (username, password_hash, totp_secret, enabled)
		VALUES (?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		user.Username,
		user.PasswordHash,
		user.TOTPSecret,
		user.Enabled,
	)
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	user.ID = id
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	return nil
}

// GetByUsername retrieves an admin user by username
func (r *AdminRepository) GetByUsername(username string) (*models.AdminUser, error) {
	query := `
		SELECT id, username, password_hash, totp_secret, enabled, created_at, updated_at
		FROM admin_users
		WHERE username = ?
	`

	user := &models.AdminUser{}
	var enabled int

	err := r.db.QueryRow(query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.TOTPSecret,
		&enabled,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin user: %w", err)
	}

	user.Enabled = enabled == 1

	return user, nil
}

// List lists all admin users
func (r *AdminRepository) List() ([]*models.AdminUser, error) {
	query := `
		SELECT id, username, password_hash, totp_secret, enabled, created_at, updated_at
		FROM admin_users
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin users: %w", err)
	}
	defer rows.Close()

	var users []*models.AdminUser

	for rows.Next() {
		user := &models.AdminUser{}
		var enabled int

		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.PasswordHash,
			&user.TOTPSecret,
			&enabled,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan admin user: %w", err)
		}

		user.Enabled = enabled == 1
		users = append(users, user)
	}

	return users, rows.Err()
}

// SetEnabled enables or disables an admin user
func (r *AdminRepository) SetEnabled(username string, enabled bool) error {
	query := `UPDATE admin_users SET enabled = ?, updated_at = CURRENT_TIMESTAMP WHERE username = ?`

	value := 0
	if enabled {
		value = 1
	}

	result, err := r.db.Exec(query, value, username)
	if err != nil {
		return fmt.Errorf("failed to update admin user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}

	return nil
}
