package models

import "time"

// LocalRecord mirrors a ledger entry plus backend-only bookkeeping fields.
// The ledger stays authoritative for authenticity and revocation; these rows
// are best-effort and reconstructable from the ledger plus a re-upload.
type LocalRecord struct {
	ID                   int64     `json:"id"`
	CertID               string    `json:"cert_id"`
	StudentName          string    `json:"student_name"`
	Course               string    `json:"course"`
	Grade                string    `json:"grade"`
	IssueDate            time.Time `json:"issue_date"`
	TxReference          string    `json:"tx_reference"`
	DocumentPath         string    `json:"-"`
	DocumentOriginalName string    `json:"document_original_name,omitempty"`
	Notes                string    `json:"notes,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}

// HasDocument reports whether a supporting document is attached.
func (r *LocalRecord) HasDocument() bool {
	return r.DocumentPath != ""
}
