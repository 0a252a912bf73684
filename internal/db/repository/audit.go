package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/certledger/certledger/internal/models"
)

// AuditRepository handles audit log data access
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create creates a new audit log entry
func (r *AuditRepository) Create(entry *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (action, username, cert_id, client_ip, user_agent, success, error_msg, details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	success := 0
	if entry.Success {
		success = 1
	}

	result, err := r.db.Exec(query,
		entry.Action,
		entry.Username,
		entry.CertID,
		entry.ClientIP,
		entry.UserAgent,
		success,
		entry.ErrorMsg,
		entry.Details,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	entry.ID = id
	entry.Timestamp = time.Now()

	return nil
}

// List lists audit logs with optional filters, newest first
func (r *AuditRepository) List(action, certID string, limit int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, timestamp, action, username, cert_id, client_ip, user_agent, success, error_msg, details
		FROM audit_logs
		WHERE 1=1
	`
	args := []interface{}{}

	if action != "" {
		query += " AND action = ?"
		args = append(args, action)
	}

	if certID != "" {
		query += " AND cert_id = ?"
		args = append(args, certID)
	}

	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditLog

	for rows.Next() {
		entry := &models.AuditLog{}
		var success int
		var username, certIDCol, userAgent, errorMsg, details sql.NullString

		err := rows.Scan(
			&entry.ID,
			&entry.Timestamp,
			&entry.Action,
			&username,
			&certIDCol,
			&entry.ClientIP,
			&userAgent,
			&success,
			&errorMsg,
			&details,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}

		entry.Username = username.String
		entry.CertID = certIDCol.String
		entry.UserAgent = userAgent.String
		entry.ErrorMsg = errorMsg.String
		entry.Details = details.String
		entry.Success = success == 1

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
