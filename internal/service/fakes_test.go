package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/certledger/certledger/internal/db/repository"
	"github.com/certledger/certledger/internal/ledger"
	"github.com/certledger/certledger/internal/models"
)

// fakeRecords is an in-memory RecordStore with switchable failure modes.
type fakeRecords struct {
	mu         sync.Mutex
	byCertID   map[string]*models.LocalRecord
	failCreate error
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{byCertID: make(map[string]*models.LocalRecord)}
}

func (f *fakeRecords) Create(rec *models.LocalRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return f.failCreate
	}
	cp := *rec
	f.byCertID[rec.CertID] = &cp
	return nil
}

func (f *fakeRecords) GetByCertID(certID string) (*models.LocalRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.byCertID[certID]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeRecords) List(search string, limit, offset int) ([]*models.LocalRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.LocalRecord
	for _, rec := range f.byCertID {
		cp := *rec
		out = append(out, &cp)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRecords) UpdateNotes(certID, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.byCertID[certID]
	if !ok {
		return repository.ErrRecordNotFound
	}
	rec.Notes = notes
	return nil
}

func (f *fakeRecords) SetDocument(certID, path, originalName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.byCertID[certID]
	if !ok {
		return repository.ErrRecordNotFound
	}
	rec.DocumentPath = path
	rec.DocumentOriginalName = originalName
	return nil
}

func (f *fakeRecords) Delete(certID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byCertID[certID]; !ok {
		return repository.ErrRecordNotFound
	}
	delete(f.byCertID, certID)
	return nil
}

// fakeDocs is an in-memory DocumentStore.
type fakeDocs struct {
	mu       sync.Mutex
	files    map[string][]byte
	failSave error
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{files: make(map[string][]byte)}
}

func (f *fakeDocs) Save(certID, originalName string, r io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave != nil {
		return "", f.failSave
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return "", err
	}
	f.files[certID] = buf.Bytes()
	return "/docs/" + certID, nil
}

func (f *fakeDocs) Delete(certID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, certID)
	return nil
}

func (f *fakeDocs) Exists(certID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[certID]
	return ok
}

func (f *fakeDocs) Path(certID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[certID]; !ok {
		return "", false
	}
	return "/docs/" + certID, true
}

// fakeAudit collects audit entries.
type fakeAudit struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (f *fakeAudit) Create(entry *models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *entry
	f.entries = append(f.entries, &cp)
	return nil
}

// downLedger simulates an unreachable ledger node.
type downLedger struct{}

var (
	errNodeDown = errors.New("connection refused")
	errDiskFull = errors.New("disk full")
)

func (downLedger) Issue(ctx context.Context, certID, studentName, course, grade string) (string, error) {
	return "", ledger.Transient(errNodeDown)
}

func (downLedger) Revoke(ctx context.Context, certID string) (string, error) {
	return "", ledger.Transient(errNodeDown)
}

func (downLedger) Verify(ctx context.Context, certID string) (ledger.Entry, error) {
	return ledger.Entry{}, ledger.Transient(errNodeDown)
}
