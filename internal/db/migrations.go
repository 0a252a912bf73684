package db

import (
	"database/sql"
	"fmt"
)

// RunMigrations executes all database migrations
func RunMigrations(db *DB) error {
	// Check if schema_version table exists
	var tableExists bool
	err := db.QueryRow(`
		SELECT COUNT(*) > 0
		FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("failed to check schema_version table: %w", err)
	}

	if !tableExists {
		// First time initialization
		if err := initializeSchema(db); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
		return nil
	}

	// Get current version
	var currentVersion int
	err = db.QueryRow(`
		SELECT version FROM schema_version
		ORDER BY applied_at DESC LIMIT 1
	`).Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	// Apply migrations if needed
	// Currently only version 1 exists
	if currentVersion < 1 {
		return fmt.Errorf("invalid schema version: %d", currentVersion)
	}

	return nil
}

// initializeSchema creates all tables for a new database
func initializeSchema(db *DB) error {
	tx, err := db.BeginTx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Schema version table
	if err := execSQL(tx, schemaVersionTable); err != nil {
		return err
	}

	// Local certificate records table
	if err := execSQL(tx, recordsTable); err != nil {
		return err
	}
	if err := execSQL(tx, recordsIndexes); err != nil {
		return err
	}

	// Admin users table
	if err := execSQL(tx, adminUsersTable); err != nil {
		return err
	}
	if err := execSQL(tx, adminUsersIndexes); err != nil {
		return err
	}

	// Audit logs table
	if err := execSQL(tx, auditLogsTable); err != nil {
		return err
	}
	if err := execSQL(tx, auditLogsIndexes); err != nil {
		return err
	}

	// Insert initial schema version
	if err := execSQL(tx, `INSERT INTO schema_version (version) VALUES (1)`); err != nil {
		return err
	}

	return tx.Commit()
}

// execSQL executes a SQL statement
func execSQL(tx *sql.Tx, query string) error {
	_, err := tx.Exec(query)
	return err
}

// Schema definitions
const (
	schemaVersionTable = `
CREATE TABLE schema_version (
    version INTEGER NOT NULL,
    applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

	recordsTable = `
CREATE TABLE records (
    id                     INTEGER PRIMARY KEY AUTOINCREMENT,
    cert_id                TEXT NOT NULL UNIQUE,
    student_name           TEXT NOT NULL,
    course                 TEXT NOT NULL,
    grade                  TEXT NOT NULL,
    issue_date             DATETIME NOT NULL,
    tx_reference           TEXT NOT NULL DEFAULT '',
    document_path          TEXT NOT NULL DEFAULT '',
    document_original_name TEXT NOT NULL DEFAULT '',
    notes                  TEXT NOT NULL DEFAULT '',
    created_at             DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

	recordsIndexes = `
CREATE INDEX idx_records_cert_id ON records(cert_id);
CREATE INDEX idx_records_student_name ON records(student_name);
CREATE INDEX idx_records_created_at ON records(created_at)`

	adminUsersTable = `
CREATE TABLE admin_users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    totp_secret   TEXT NOT NULL,
    enabled       INTEGER NOT NULL DEFAULT 1,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

	adminUsersIndexes = `
CREATE INDEX idx_admin_users_username ON admin_users(username);
CREATE INDEX idx_admin_users_enabled ON admin_users(enabled)`

	auditLogsTable = `
CREATE TABLE audit_logs (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    action      TEXT NOT NULL,
    username    TEXT,
    cert_id     TEXT,
    client_ip   TEXT NOT NULL,
    user_agent  TEXT,
    success     INTEGER NOT NULL,
    error_msg   TEXT,
    details     TEXT
)`

	auditLogsIndexes = `
CREATE INDEX idx_audit_timestamp ON audit_logs(timestamp);
CREATE INDEX idx_audit_action ON audit_logs(action);
CREATE INDEX idx_audit_cert_id ON audit_logs(cert_id);
CREATE INDEX idx_audit_success ON audit_logs(success)`
)
