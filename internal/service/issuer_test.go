package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/certledger/certledger/internal/ledger"
)

func newTestIssuer(t *testing.T, l ledger.Ledger, records *fakeRecords, docs *fakeDocs) *Issuer {
	t.Helper()
	issuer, err := NewIssuer(IssuerParams{
		Ledger:           l,
		Records:          records,
		Documents:        docs,
		PublicBaseURL:    "https://certs.example.edu",
		LedgerTimeout:    2 * time.Second,
		MaxDocumentBytes: 1024,
	})
	require.NoError(t, err)
	return issuer
}

func TestIssueThenVerify(t *testing.T) {
	ldg := ledger.NewMemory()
	records := newFakeRecords()
	docs := newFakeDocs()
	issuer := newTestIssuer(t, ldg, records, docs)

	result, err := issuer.Issue(context.Background(), IssueInput{
		StudentName: "Ada Lovelace",
		Course:      "Computer Science",
		Grade:       "A",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.CertID)
	require.NotEmpty(t, result.TxReference)
	require.Empty(t, result.Warning)
	require.Contains(t, result.VerifyURL, result.CertID)
	require.NotEmpty(t, result.QRCode)

	// Authoritative side has the exact fields
	entry, err := ldg.Verify(context.Background(), result.CertID)
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", entry.StudentName)
	require.Equal(t, "Computer Science", entry.Course)
	require.Equal(t, "A", entry.Grade)
	require.False(t, entry.Revoked)

	// Mirror side matches the ledger
	rec, err := records.GetByCertID(result.CertID)
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", rec.StudentName)
	require.Equal(t, result.TxReference, rec.TxReference)
}

func TestIssueTrimsFields(t *testing.T) {
	ldg := ledger.NewMemory()
	issuer := newTestIssuer(t, ldg, newFakeRecords(), newFakeDocs())

	result, err := issuer.Issue(context.Background(), IssueInput{
		StudentName: "  Ada Lovelace  ",
		Course:      " Computer Science ",
		Grade:       " A ",
	})
	require.NoError(t, err)

	entry, err := ldg.Verify(context.Background(), result.CertID)
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", entry.StudentName)
	require.Equal(t, "A", entry.Grade)
}

func TestIssueValidation(t *testing.T) {
	issuer := newTestIssuer(t, ledger.NewMemory(), newFakeRecords(), newFakeDocs())
	ctx := context.Background()

	cases := []struct {
		name string
		in   IssueInput
	}{
		{"missing name", IssueInput{Course: "Computer Science", Grade: "A"}},
		{"short name", IssueInput{StudentName: "A", Course: "Computer Science", Grade: "A"}},
		{"long name", IssueInput{StudentName: strings.Repeat("a", 101), Course: "Computer Science", Grade: "A"}},
		{"whitespace course", IssueInput{StudentName: "Ada Lovelace", Course: "   ", Grade: "A"}},
		{"missing grade", IssueInput{StudentName: "Ada Lovelace", Course: "Computer Science"}},
		{"long grade", IssueInput{StudentName: "Ada Lovelace", Course: "Computer Science", Grade: strings.Repeat("A", 51)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := issuer.Issue(ctx, tc.in)
			require.True(t, IsCode(err, CodeValidation), "expected validation error, got %v", err)
		})
	}
}

func TestIssueRejectsBadDocumentBeforeAnyWrite(t *testing.T) {
	ldg := ledger.NewMemory()
	records := newFakeRecords()
	issuer := newTestIssuer(t, ldg, records, newFakeDocs())

	in := IssueInput{
		StudentName: "Ada Lovelace",
		Course:      "Computer Science",
		Grade:       "A",
		Document: &DocumentInput{
			Name:        "transcript.exe",
			ContentType: "application/octet-stream",
			Size:        10,
			Reader:      strings.NewReader("MZ"),
		},
	}

	_, err := issuer.Issue(context.Background(), in)
	require.True(t, IsCode(err, CodeValidation))

	// Oversized documents rejected too
	in.Document = &DocumentInput{
		Name:        "transcript.pdf",
		ContentType: "application/pdf",
		Size:        1 << 20,
		Reader:      strings.NewReader("%PDF"),
	}
	_, err = issuer.Issue(context.Background(), in)
	require.True(t, IsCode(err, CodeValidation))

	// Nothing reached the ledger or the mirror
	_, err = records.List("", 10, 0)
	require.NoError(t, err)
	recs, _ := records.List("", 10, 0)
	require.Empty(t, recs)
}

func TestIssueStoresDocument(t *testing.T) {
	ldg := ledger.NewMemory()
	records := newFakeRecords()
	docs := newFakeDocs()
	issuer := newTestIssuer(t, ldg, records, docs)

	result, err := issuer.Issue(context.Background(), IssueInput{
		StudentName: "Ada Lovelace",
		Course:      "Computer Science",
		Grade:       "A",
		Document: &DocumentInput{
			Name:        "transcript.pdf",
			ContentType: "application/pdf",
			Size:        8,
			Reader:      strings.NewReader("%PDF-1.7"),
		},
	})
	require.NoError(t, err)
	require.Empty(t, result.Warning)
	require.True(t, docs.Exists(result.CertID))

	rec, err := records.GetByCertID(result.CertID)
	require.NoError(t, err)
	require.Equal(t, "transcript.pdf", rec.DocumentOriginalName)
	require.True(t, rec.HasDocument())
}

func TestIssueForcedDuplicateConflicts(t *testing.T) {
	ldg := ledger.NewMemory()
	issuer := newTestIssuer(t, ldg, newFakeRecords(), newFakeDocs())
	ctx := context.Background()

	first, err := issuer.Issue(ctx, IssueInput{
		StudentName: "Ada Lovelace",
		Course:      "Computer Science",
		Grade:       "A",
		CertID:      "CERT-forced-1",
	})
	require.NoError(t, err)
	require.Equal(t, "CERT-forced-1", first.CertID)

	// Forced ids get no retry: exactly one success, one conflict
	_, err = issuer.Issue(ctx, IssueInput{
		StudentName: "Grace Hopper",
		Course:      "Mathematics",
		Grade:       "A",
		CertID:      "CERT-forced-1",
	})
	require.True(t, IsCode(err, CodeConflict))

	entry, err := ldg.Verify(ctx, "CERT-forced-1")
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", entry.StudentName)
}

func TestIssueLedgerDownLeavesNothingLocal(t *testing.T) {
	records := newFakeRecords()
	docs := newFakeDocs()
	issuer := newTestIssuer(t, downLedger{}, records, docs)

	_, err := issuer.Issue(context.Background(), IssueInput{
		StudentName: "Ada Lovelace",
		Course:      "Computer Science",
		Grade:       "A",
		Document: &DocumentInput{
			Name:        "transcript.pdf",
			ContentType: "application/pdf",
			Size:        8,
			Reader:      strings.NewReader("%PDF-1.7"),
		},
	})
	require.True(t, IsCode(err, CodeLedgerUnavailable))

	recs, err := records.List("", 10, 0)
	require.NoError(t, err)
	require.Empty(t, recs)
	require.Empty(t, docs.files)
}

func TestIssueMirrorFailureIsPartialSuccess(t *testing.T) {
	ldg := ledger.NewMemory()
	records := newFakeRecords()
	records.failCreate = errDiskFull
	issuer := newTestIssuer(t, ldg, records, newFakeDocs())

	result, err := issuer.Issue(context.Background(), IssueInput{
		StudentName: "Ada Lovelace",
		Course:      "Computer Science",
		Grade:       "A",
	})
	require.NoError(t, err, "mirror failure after a confirmed ledger write is not an error")
	require.NotEmpty(t, result.Warning)

	// Certificate is authentic on the ledger regardless
	entry, err := ldg.Verify(context.Background(), result.CertID)
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", entry.StudentName)
}

func TestRevoke(t *testing.T) {
	ldg := ledger.NewMemory()
	issuer := newTestIssuer(t, ldg, newFakeRecords(), newFakeDocs())
	ctx := context.Background()

	result, err := issuer.Issue(ctx, IssueInput{
		StudentName: "Ada Lovelace",
		Course:      "Computer Science",
		Grade:       "A",
	})
	require.NoError(t, err)

	tx, err := issuer.Revoke(ctx, result.CertID)
	require.NoError(t, err)
	require.NotEmpty(t, tx)

	entry, err := ldg.Verify(ctx, result.CertID)
	require.NoError(t, err)
	require.True(t, entry.Revoked)

	// Double revocation conflicts
	_, err = issuer.Revoke(ctx, result.CertID)
	require.True(t, IsCode(err, CodeConflict))
}

func TestRevokeMissing(t *testing.T) {
	issuer := newTestIssuer(t, ledger.NewMemory(), newFakeRecords(), newFakeDocs())

	_, err := issuer.Revoke(context.Background(), "CERT-does-not-exist")
	require.True(t, IsCode(err, CodeNotFound))
}

func TestRevokeLedgerDown(t *testing.T) {
	issuer := newTestIssuer(t, downLedger{}, newFakeRecords(), newFakeDocs())

	_, err := issuer.Revoke(context.Background(), "CERT-1")
	require.True(t, IsCode(err, CodeLedgerUnavailable))
	require.False(t, IsCode(err, CodeNotFound))
}

func TestGeneratedIDsAreDistinct(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := newCertID()
		require.True(t, strings.HasPrefix(id, "CERT-"))
		require.False(t, seen[id], "duplicate generated id %s", id)
		seen[id] = true
	}
}
