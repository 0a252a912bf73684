// Package ledger models the append-only certificate ledger by its external
// behavioral contract: issue once, revoke once, verify anytime. Entries are
// never deleted and a revocation cannot be undone.
package ledger

import (
	"context"
	"errors"
	"fmt"
)

// Entry is a certificate record as the ledger reports it.
type Entry struct {
	CertID      string `json:"cert_id"`
	StudentName string `json:"student_name"`
	Course      string `json:"course"`
	Grade       string `json:"grade"`
	IssuedAt    int64  `json:"issued_at"` // unix seconds, assigned by the ledger at write time
	Revoked     bool   `json:"revoked"`
}

// Ledger is the transport contract for the authoritative certificate store.
// Issue and Revoke block until the write is durably confirmed; the returned
// string is an opaque transaction reference for audit display.
type Ledger interface {
	Issue(ctx context.Context, certID, studentName, course, grade string) (string, error)
	Revoke(ctx context.Context, certID string) (string, error)
	Verify(ctx context.Context, certID string) (Entry, error)
}

// Domain failures. Callers distinguish these from transport failures with
// errors.Is; a TransientError never wraps any of them.
var (
	ErrNotFound     = errors.New("ledger: certificate not found")
	ErrConflict     = errors.New("ledger: conflicting write")
	ErrUnauthorized = errors.New("ledger: caller not authorized")
)

// TransientError marks failures where the ledger could not be reached or did
// not answer in time. The certificate may or may not exist; callers must not
// treat this as not-found.
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("ledger unreachable: %v", e.Cause)
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}

// Transient wraps err as a TransientError.
func Transient(err error) error {
	return &TransientError{Cause: err}
}

// IsTransient reports whether err is a transport-level ledger failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
