package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/certledger/certledger/internal/models"
)

// ErrRecordNotFound is returned when no local record exists for a cert id.
var ErrRecordNotFound = errors.New("record not found")

// RecordRepository handles local certificate record data access
type RecordRepository struct {
	db *sql.DB
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Create creates a new local record
func (r *RecordRepository) Create(rec *models.LocalRecord) error {
	query := `
		INSERT INTO records (
			cert_id, student_name, course, grade, issue_date,
			tx_reference, document_path, document_original_name, notes
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		rec.CertID,
		rec.StudentName,
		rec.Course,
		rec.Grade,
		rec.IssueDate,
		rec.TxReference,
		rec.DocumentPath,
		rec.DocumentOriginalName,
		rec.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to create record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	rec.ID = id
	rec.CreatedAt = time.Now()

	return nil
}

// GetByCertID retrieves a record by certificate id
func (r *RecordRepository) GetByCertID(certID string) (*models.LocalRecord, error) {
	query := `
		SELECT id, cert_id, student_name, course, grade, issue_date,
		       tx_reference, document_path, document_original_name, notes, created_at
		FROM records
		WHERE cert_id = ?
	`

	rec := &models.LocalRecord{}

	err := r.db.QueryRow(query, certID).Scan(
		&rec.ID,
		&rec.CertID,
		&rec.StudentName,
		&rec.Course,
		&rec.Grade,
		&rec.IssueDate,
		&rec.TxReference,
		&rec.DocumentPath,
		&rec.DocumentOriginalName,
		&rec.Notes,
		&rec.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	return rec, nil
}

// List lists records, newest first, optionally filtered by a search term
// matched against cert id, student name, and course.
func (r *RecordRepository) List(search string, limit, offset int) ([]*models.LocalRecord, error) {
	query := `
		SELECT id, cert_id, student_name, course, grade, issue_date,
		       tx_reference, document_path, document_original_name, notes, created_at
		FROM records
		WHERE 1=1
	`
	args := []interface{}{}

	if search != "" {
		query += " AND (cert_id LIKE ? OR student_name LIKE ? OR course LIKE ?)"
		term := "%" + search + "%"
		args = append(args, term, term, term)
	}

	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*models.LocalRecord

	for rows.Next() {
		rec := &models.LocalRecord{}
		err := rows.Scan(
			&rec.ID,
			&rec.CertID,
			&rec.StudentName,
			&rec.Course,
			&rec.Grade,
			&rec.IssueDate,
			&rec.TxReference,
			&rec.DocumentPath,
			&rec.DocumentOriginalName,
			&rec.Notes,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}

// Count returns the number of records matching the search term
func (r *RecordRepository) Count(search string) (int, error) {
	query := `SELECT COUNT(*) FROM records WHERE 1=1`
	args := []interface{}{}

	if search != "" {
		query += " AND (cert_id LIKE ? OR student_name LIKE ? OR course LIKE ?)"
		term := "%" + search + "%"
		args = append(args, term, term, term)
	}

	var count int
	if err := r.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}

	return count, nil
}

// UpdateNotes updates the free-text notes of a record
func (r *RecordRepository) UpdateNotes(certID, notes string) error {
	query := `UPDATE records SET notes = ? WHERE cert_id = ?`

	result, err := r.db.Exec(query, notes, certID)
	if err != nil {
		return fmt.Errorf("failed to update notes: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrRecordNotFound
	}

	return nil
}

// SetDocument updates the document reference of a record
func (r *RecordRepository) SetDocument(certID, path, originalName string) error {
	query := `UPDATE records SET document_path = ?, document_original_name = ? WHERE cert_id = ?`

	result, err := r.db.Exec(query, path, originalName, certID)
	if err != nil {
		return fmt.Errorf("failed to set document: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrRecordNotFound
	}

	return nil
}

// Delete deletes a record. The ledger entry for the same cert id is
// intentionally untouched; deletion is local bookkeeping only.
func (r *RecordRepository) Delete(certID string) error {
	query := `DELETE FROM records WHERE cert_id = ?`

	result, err := r.db.Exec(query, certID)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrRecordNotFound
	}

	return nil
}
