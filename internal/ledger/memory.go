package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory is an in-process Ledger with the same semantics as a remote node:
// unique ids, immutable entries, one-way revocation. Used for tests and for
// development deployments without a ledger node.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*Entry
	seq     int64
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*Entry)}
}

// Issue appends a new entry. Fails with ErrConflict if the id already exists.
func (m *Memory) Issue(ctx context.Context, certID, studentName, course, grade string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", Transient(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[certID]; exists {
		return "", fmt.Errorf("issue %s: %w", certID, ErrConflict)
	}

	m.entries[certID] = &Entry{
		CertID:      certID,
		StudentName: studentName,
		Course:      course,
		Grade:       grade,
		IssuedAt:    time.Now().Unix(),
	}

	m.seq++
	return fmt.Sprintf("mem-tx-%d", m.seq), nil
}

// Revoke marks an entry revoked. Fails with ErrNotFound on a missing id and
// ErrConflict if the entry is already revoked.
func (m *Memory) Revoke(ctx context.Context, certID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", Transient(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.entries[certID]
	if !exists {
		return "", fmt.Errorf("revoke %s: %w", certID, ErrNotFound)
	}
	if entry.Revoked {
		return "", fmt.Errorf("revoke %s: %w", certID, ErrConflict)
	}

	entry.Revoked = true

	m.seq++
	return fmt.Sprintf("mem-tx-%d", m.seq), nil
}

// Verify returns a copy of the entry, or ErrNotFound.
func (m *Memory) Verify(ctx context.Context, certID string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, Transient(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.entries[certID]
	if !exists {
		return Entry{}, fmt.Errorf("verify %s: %w", certID, ErrNotFound)
	}

	return *entry, nil
}
