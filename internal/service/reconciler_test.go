package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/certledger/certledger/internal/ledger"
	"github.com/certledger/certledger/internal/models"
)

func TestSweepCleanMirror(t *testing.T) {
	ldg := ledger.NewMemory()
	records := newFakeRecords()
	audit := &fakeAudit{}
	issuer := newTestIssuer(t, ldg, records, newFakeDocs())
	ctx := context.Background()

	for _, name := range []string{"Ada Lovelace", "Grace Hopper", "Alan Turing"} {
		_, err := issuer.Issue(ctx, IssueInput{StudentName: name, Course: "Computer Science", Grade: "A"})
		require.NoError(t, err)
	}

	reconciler, err := NewReconciler(ldg, records, audit, 2*time.Second)
	require.NoError(t, err)

	summary, err := reconciler.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, summary.Checked)
	require.Empty(t, summary.MissingOnLedger)
	require.Empty(t, summary.FieldMismatch)

	require.Len(t, audit.entries, 1)
	require.Equal(t, models.ActionLedgerReconcile, audit.entries[0].Action)
	require.True(t, audit.entries[0].Success)
}

func TestSweepFindsOrphanedLocalRow(t *testing.T) {
	ldg := ledger.NewMemory()
	records := newFakeRecords()
	audit := &fakeAudit{}

	// A local row the ledger never saw
	require.NoError(t, records.Create(&models.LocalRecord{
		CertID:      "CERT-orphan",
		StudentName: "Nobody",
		Course:      "Nothing",
		Grade:       "F",
		IssueDate:   time.Now(),
	}))

	reconciler, err := NewReconciler(ldg, records, audit, 2*time.Second)
	require.NoError(t, err)

	summary, err := reconciler.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"CERT-orphan"}, summary.MissingOnLedger)

	require.Len(t, audit.entries, 1)
	require.False(t, audit.entries[0].Success)
}

func TestSweepCountsRevoked(t *testing.T) {
	ldg := ledger.NewMemory()
	records := newFakeRecords()
	issuer := newTestIssuer(t, ldg, records, newFakeDocs())
	ctx := context.Background()

	issued, err := issuer.Issue(ctx, IssueInput{StudentName: "Ada Lovelace", Course: "Computer Science", Grade: "A"})
	require.NoError(t, err)
	_, err = issuer.Revoke(ctx, issued.CertID)
	require.NoError(t, err)

	reconciler, err := NewReconciler(ldg, records, &fakeAudit{}, 2*time.Second)
	require.NoError(t, err)

	summary, err := reconciler.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Revoked)
}

func TestSweepAbortsWhenLedgerDown(t *testing.T) {
	records := newFakeRecords()
	require.NoError(t, records.Create(&models.LocalRecord{
		CertID: "CERT-1", StudentName: "Ada Lovelace", Course: "Computer Science", Grade: "A", IssueDate: time.Now(),
	}))

	reconciler, err := NewReconciler(downLedger{}, records, &fakeAudit{}, time.Second)
	require.NoError(t, err)

	_, err = reconciler.Sweep(context.Background())
	require.True(t, IsCode(err, CodeLedgerUnavailable))
}
