package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/certledger/certledger/internal/ledger"
	"github.com/certledger/certledger/internal/models"
	"github.com/certledger/certledger/internal/qr"
)

// AllowedDocumentTypes is the content-type allow-list for supporting
// documents.
var AllowedDocumentTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
}

// Issuer coordinates the dual write behind certificate issuance: the ledger
// first, then the document store and local mirror. The ledger write is the
// commit point; everything after it is best-effort.
type Issuer struct {
	ledger   ledger.Ledger
	records  RecordStore
	docs     DocumentStore
	validate *validator.Validate
	baseURL  string
	timeout  time.Duration
	maxDoc   int64
	now      func() time.Time
}

// IssuerParams configures an Issuer.
type IssuerParams struct {
	Ledger           ledger.Ledger
	Records          RecordStore
	Documents        DocumentStore
	PublicBaseURL    string
	LedgerTimeout    time.Duration
	MaxDocumentBytes int64
}

// NewIssuer creates an issuance coordinator.
func NewIssuer(params IssuerParams) (*Issuer, error) {
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
	if params.MaxDocumentBytes <= 0 {
		params.MaxDocumentBytes = 10 * 1024 * 1024
	}
	return &Issuer{
		ledger:   params.Ledger,
		records:  params.Records,
		docs:     params.Documents,
		validate: validator.New(),
		baseURL:  strings.TrimRight(params.PublicBaseURL, "/"),
		timeout:  params.LedgerTimeout,
		maxDoc:   params.MaxDocumentBytes,
		now:      time.Now,
	}, nil
}

// DocumentInput describes an uploaded supporting document.
type DocumentInput struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// IssueInput is the issuance request.
type IssueInput struct {
	StudentName string `validate:"required,min=2,max=100"`
	Course      string `validate:"required,min=2,max=100"`
	Grade       string `validate:"required,min=1,max=50"`

	// CertID forces a specific id instead of generating one. Forced ids get
	// no conflict retry: a duplicate surfaces as-is.
	CertID string

	Document *DocumentInput
}

// IssueResult is the issuance outcome. Warning is set when the ledger write
// succeeded but the local mirror or document write did not; the certificate
// is authentic either way.
type IssueResult struct {
	CertID      string `json:"cert_id"`
	TxReference string `json:"tx_reference"`
	VerifyURL   string `json:"verify_url"`
	QRCode      []byte `json:"qr_code,omitempty"`
	Warning     string `json:"warning,omitempty"`
}

// Issue validates the input, writes the ledger entry, and mirrors it
// locally. All validation happens before any write.
func (s *Issuer) Issue(ctx context.Context, in IssueInput) (*IssueResult, error) {
	in.StudentName = strings.TrimSpace(in.StudentName)
	in.Course = strings.TrimSpace(in.Course)
	in.Grade = strings.TrimSpace(in.Grade)

	if err := s.validate.Struct(in); err != nil {
		return nil, Validation(validationMessage(err))
	}
	if in.Document != nil {
		if in.Document.Size > s.maxDoc {
			return nil, Validation(fmt.Sprintf("document exceeds the %d byte limit", s.maxDoc))
		}
		if !AllowedDocumentTypes[in.Document.ContentType] {
			return nil, Validation(fmt.Sprintf("document type %q is not allowed", in.Document.ContentType))
		}
	}

	certID := in.CertID
	generated := certID == ""
	if generated {
		certID = newCertID()
	}

	txRef, err := s.ledgerIssue(ctx, certID, in)
	if generated && errors.Is(err, ledger.ErrConflict) {
		// The id carries random entropy, so a collision is overwhelmingly a
		// replayed request. One fresh id covers the honest case.
		certID = newCertID()
		txRef, err = s.ledgerIssue(ctx, certID, in)
	}
	if err != nil {
		// Nothing local is persisted on a ledger failure; the caller's
		// temp upload is dropped with the request.
		switch {
		case errors.Is(err, ledger.ErrConflict):
			return nil, Conflict("certificate id already exists on the ledger")
		case errors.Is(err, ledger.ErrUnauthorized):
			return nil, Unauthorized("issuer is not authorized to write to the ledger")
		case ledger.IsTransient(err):
			return nil, Unavailable("ledger write could not be confirmed", err)
		default:
			return nil, Internal("ledger write failed", err)
		}
	}

	// The ledger write is confirmed. From here on failures degrade to a
	// partial-success warning; the ledger has no rollback and the
	// certificate is already authentic.
	result := &IssueResult{
		CertID:      certID,
		TxReference: txRef,
		VerifyURL:   s.verifyURL(certID),
	}

	rec := &models.LocalRecord{
		CertID:      certID,
		StudentName: in.StudentName,
		Course:      in.Course,
		Grade:       in.Grade,
		IssueDate:   s.now(),
		TxReference: txRef,
	}

	var warnings []string

	if in.Document != nil {
		path, err := s.docs.Save(certID, in.Document.Name, in.Document.Reader)
		if err != nil {
			warnings = append(warnings, "supporting document was not stored")
		} else {
			rec.DocumentPath = path
			rec.DocumentOriginalName = in.Document.Name
		}
	}

	if err := s.records.Create(rec); err != nil {
		warnings = append(warnings, "local record was not persisted; the certificate remains valid on the ledger")
	}

	if png, err := qr.PNG(result.VerifyURL, qr.DefaultSize); err == nil {
		result.QRCode = png
	} else {
		warnings = append(warnings, "verification QR code could not be generated")
	}

	result.Warning = strings.Join(warnings, "; ")
	return result, nil
}

// Revoke flips the one-way revoked flag on the ledger. There is no local
// state to update: revocation status is always read from the ledger.
func (s *Issuer) Revoke(ctx context.Context, certID string) (string, error) {
	certID = strings.TrimSpace(certID)
	if certID == "" {
		return "", Validation("certificate id is required")
	}

	lctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	txRef, err := s.ledger.Revoke(lctx, certID)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			return "", NotFound("certificate not found on the ledger")
		case errors.Is(err, ledger.ErrConflict):
			return "", Conflict("certificate is already revoked")
		case errors.Is(err, ledger.ErrUnauthorized):
			return "", Unauthorized("issuer is not authorized to revoke on the ledger")
		case ledger.IsTransient(err):
			return "", Unavailable("ledger revocation could not be confirmed", err)
		default:
			return "", Internal("ledger revocation failed", err)
		}
	}

	return txRef, nil
}

// ledgerIssue submits the ledger write with the configured timeout. The
// client disconnecting does not cancel it: once submitted the write must run
// to a verdict so the mirror write that follows matches the ledger.
func (s *Issuer) ledgerIssue(ctx context.Context, certID string, in IssueInput) (string, error) {
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	return s.ledger.Issue(lctx, certID, in.StudentName, in.Course, in.Grade)
}

func (s *Issuer) verifyURL(certID string) string {
	return fmt.Sprintf("%s/v1/certs/%s/verify", s.baseURL, certID)
}

// newCertID builds a timestamped id with enough random suffix that two
// concurrent issuances cannot collide in practice.
func newCertID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("CERT-%d-%s", time.Now().UnixMilli(), suffix)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid input"
	}

	fe := verrs[0]
	field := fieldLabel(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func fieldLabel(field string) string {
	switch field {
	case "StudentName":
		return "student name"
	case "Course":
		return "course"
	case "Grade":
		return "grade"
	default:
		return field
	}
}
