// Package docstore stores uploaded supporting documents on the local
// filesystem, one file per certificate id. The file name is derived from the
// cert id so a replacement upload atomically supersedes the previous one.
package docstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store is a filesystem-backed document store.
type Store struct {
	dir string
}

// New creates the store directory if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("document directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create document directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the document for certID, replacing any existing one regardless
// of its extension. Returns the stored path.
func (s *Store) Save(certID, originalName string, r io.Reader) (string, error) {
	name, err := canonicalName(certID, originalName)
	if err != nil {
		return "", err
	}

	// Write to a temp file first so a failed upload never clobbers an
	// existing document.
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close document: %w", err)
	}

	// Snapshot what is stored now; the old document must survive until the
	// new one is in place.
	stale, err := s.glob(certID)
	if err != nil {
		os.Remove(tmpPath)
		return "", err
	}

	dest := filepath.Join(s.dir, name)
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to store document: %w", err)
	}

	// Rename overwrote a same-extension predecessor; drop any left under a
	// different extension.
	for _, path := range stale {
		if path == dest {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to remove superseded document: %w", err)
		}
	}

	return dest, nil
}

// Delete removes the document for certID. Removing a certificate that has no
// document is not an error.
func (s *Store) Delete(certID string) error {
	matches, err := s.glob(certID)
	if err != nil {
		return err
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove document: %w", err)
		}
	}
	return nil
}

// Exists reports whether a document is stored for certID.
func (s *Store) Exists(certID string) bool {
	matches, err := s.glob(certID)
	return err == nil && len(matches) > 0
}

// Path returns the stored document path for certID, if any.
func (s *Store) Path(certID string) (string, bool) {
	matches, err := s.glob(certID)
	if err != nil || len(matches) == 0 {
		return "", false
	}
	return matches[0], true
}

func (s *Store) glob(certID string) ([]string, error) {
	id, err := sanitizeID(certID)
	if err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(s.dir, id+".*"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan documents: %w", err)
	}
	return matches, nil
}

func canonicalName(certID, originalName string) (string, error) {
	id, err := sanitizeID(certID)
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = ".bin"
	}
	return id + ext, nil
}

// sanitizeID rejects ids that could escape the store directory. Generated
// ids only contain these characters; anything else is a caller bug.
func sanitizeID(certID string) (string, error) {
	if certID == "" {
		return "", fmt.Errorf("certificate id is required")
	}
	for _, r := range certID {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return "", fmt.Errorf("invalid certificate id %q", certID)
		}
	}
	return certID, nil
}
