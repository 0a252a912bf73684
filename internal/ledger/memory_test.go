package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryIssueAndVerify(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	tx, err := m.Issue(ctx, "CERT-1", "Ada Lovelace", "Computer Science", "A")
	require.NoError(t, err)
	require.NotEmpty(t, tx)

	entry, err := m.Verify(ctx, "CERT-1")
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", entry.StudentName)
	require.Equal(t, "Computer Science", entry.Course)
	require.Equal(t, "A", entry.Grade)
	require.False(t, entry.Revoked)
	require.NotZero(t, entry.IssuedAt)
}

func TestMemoryDuplicateIssue(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.Issue(ctx, "CERT-1", "Ada Lovelace", "Computer Science", "A")
	require.NoError(t, err)

	_, err = m.Issue(ctx, "CERT-1", "Someone Else", "Mathematics", "B")
	require.ErrorIs(t, err, ErrConflict)

	// Original entry is untouched
	entry, err := m.Verify(ctx, "CERT-1")
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", entry.StudentName)
}

func TestMemoryRevoke(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.Issue(ctx, "CERT-1", "Ada Lovelace", "Computer Science", "A")
	require.NoError(t, err)

	tx, err := m.Revoke(ctx, "CERT-1")
	require.NoError(t, err)
	require.NotEmpty(t, tx)

	// Fields survive revocation
	entry, err := m.Verify(ctx, "CERT-1")
	require.NoError(t, err)
	require.True(t, entry.Revoked)
	require.Equal(t, "Ada Lovelace", entry.StudentName)

	// One-way transition
	_, err = m.Revoke(ctx, "CERT-1")
	require.ErrorIs(t, err, ErrConflict)
}

func TestMemoryRevokeMissing(t *testing.T) {
	m := NewMemory()

	_, err := m.Revoke(context.Background(), "CERT-does-not-exist")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryVerifyMissing(t *testing.T) {
	m := NewMemory()

	_, err := m.Verify(context.Background(), "CERT-does-not-exist")
	require.ErrorIs(t, err, ErrNotFound)
	require.False(t, IsTransient(err))
}

func TestMemoryVerifyReturnsCopy(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.Issue(ctx, "CERT-1", "Ada Lovelace", "Computer Science", "A")
	require.NoError(t, err)

	entry, err := m.Verify(ctx, "CERT-1")
	require.NoError(t, err)
	entry.Revoked = true

	again, err := m.Verify(ctx, "CERT-1")
	require.NoError(t, err)
	require.False(t, again.Revoked)
}
