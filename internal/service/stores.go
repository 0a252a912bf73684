package service

import (
	"io"

	"github.com/certledger/certledger/internal/models"
)

// RecordStore is the local mirror of ledger entries plus admin metadata.
// Implemented by repository.RecordRepository.
type RecordStore interface {
	Create(rec *models.LocalRecord) error
	GetByCertID(certID string) (*models.LocalRecord, error)
	List(search string, limit, offset int) ([]*models.LocalRecord, error)
	UpdateNotes(certID, notes string) error
	SetDocument(certID, path, originalName string) error
	Delete(certID string) error
}

// DocumentStore holds uploaded supporting files keyed by cert id.
// Implemented by docstore.Store.
type DocumentStore interface {
	Save(certID, originalName string, r io.Reader) (string, error)
	Delete(certID string) error
	Exists(certID string) bool
	Path(certID string) (string, bool)
}

// AuditSink records administrative actions. Implemented by
// repository.AuditRepository.
type AuditSink interface {
	Create(entry *models.AuditLog) error
}
