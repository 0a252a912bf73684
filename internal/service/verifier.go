package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/certledger/certledger/internal/db/repository"
	"github.com/certledger/certledger/internal/ledger"
	"github.com/certledger/certledger/internal/qr"
)

// Verification statuses
const (
	StatusValid   = "valid"
	StatusRevoked = "revoked"
)

// VerificationResult is the aggregate of the authoritative ledger read and
// local enrichment. Authenticity and revocation come from the ledger only.
type VerificationResult struct {
	CertID            string `json:"cert_id"`
	Status            string `json:"status"`
	StudentName       string `json:"student_name"`
	Course            string `json:"course"`
	Grade             string `json:"grade"`
	IssuedAt          int64  `json:"issued_at"`
	Revoked           bool   `json:"revoked"`
	DocumentAvailable bool   `json:"document_available"`
	TxReference       string `json:"tx_reference,omitempty"`
	VerifyURL         string `json:"verify_url"`
	QRCode            []byte `json:"qr_code,omitempty"`
}

// Verifier answers certificate verification requests.
type Verifier struct {
	ledger  ledger.Ledger
	records RecordStore
	docs    DocumentStore
	baseURL string
	timeout time.Duration
}

// VerifierParams configures a Verifier.
type VerifierParams struct {
	Ledger        ledger.Ledger
	Records       RecordStore
	Documents     DocumentStore
	PublicBaseURL string
	LedgerTimeout time.Duration
}

// NewVerifier creates a verification aggregator.
func NewVerifier(params VerifierParams) (*Verifier, error) {
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if params.Records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if params.Documents == nil {
		return nil, fmt.Errorf("document store is required")
	}
	if params.PublicBaseURL == "" {
		return nil, fmt.Errorf("public base URL is required")
	}
	if params.LedgerTimeout <= 0 {
		params.LedgerTimeout = 30 * time.Second
	}
	return &Verifier{
		ledger:  params.Ledger,
		records: params.Records,
		docs:    params.Documents,
		baseURL: strings.TrimRight(params.PublicBaseURL, "/"),
		timeout: params.LedgerTimeout,
	}, nil
}

// Verify reads the ledger for the authoritative answer and enriches it with
// local fields. A missing local record only means the supplementary fields
// are absent; it never downgrades a ledger-valid certificate.
func (s *Verifier) Verify(ctx context.Context, certID string) (*VerificationResult, error) {
	certID = strings.TrimSpace(certID)
	if certID == "" {
		return nil, Validation("certificate id is required")
	}

	lctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entry, err := s.ledger.Verify(lctx, certID)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			return nil, NotFound("certificate not found")
		case ledger.IsTransient(err):
			return nil, Unavailable("certificate status cannot be determined right now", err)
		default:
			return nil, Internal("ledger read failed", err)
		}
	}

	result := &VerificationResult{
		CertID:      certID,
		Status:      StatusValid,
		StudentName: entry.StudentName,
		Course:      entry.Course,
		Grade:       entry.Grade,
		IssuedAt:    entry.IssuedAt,
		Revoked:     entry.Revoked,
		VerifyURL:   fmt.Sprintf("%s/v1/certs/%s/verify", s.baseURL, certID),
	}
	if entry.Revoked {
		result.Status = StatusRevoked
	}

	// Enrichment only. The local store may legitimately be missing the row.
	result.DocumentAvailable = s.docs.Exists(certID)
	if rec, err := s.records.GetByCertID(certID); err == nil {
		result.TxReference = rec.TxReference
	} else if !errors.Is(err, repository.ErrRecordNotFound) {
		// Local store misbehaving does not fail verification either.
		result.TxReference = ""
	}

	if png, err := qr.PNG(result.VerifyURL, qr.DefaultSize); err == nil {
		result.QRCode = png
	}

	return result, nil
}
