package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestNode(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewHTTPClient(srv.URL, "issuer-token", 2*time.Second)
	require.NoError(t, err)
	return client
}

func TestHTTPClientIssue(t *testing.T) {
	client := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/ledger/certs", r.URL.Path)
		require.Equal(t, "Bearer issuer-token", r.Header.Get("Authorization"))

		var req issueRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "CERT-1", req.CertID)

		json.NewEncoder(w).Encode(txResponse{TxReference: "0xabc"})
	})

	tx, err := client.Issue(context.Background(), "CERT-1", "Ada Lovelace", "Computer Science", "A")
	require.NoError(t, err)
	require.Equal(t, "0xabc", tx)
}

func TestHTTPClientIssueConflict(t *testing.T) {
	client := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(nodeError{Error: "conflict", Message: "certificate already exists"})
	})

	_, err := client.Issue(context.Background(), "CERT-1", "Ada Lovelace", "Computer Science", "A")
	require.ErrorIs(t, err, ErrConflict)
	require.False(t, IsTransient(err))
}

func TestHTTPClientVerify(t *testing.T) {
	client := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v1/ledger/certs/CERT-1", r.URL.Path)

		json.NewEncoder(w).Encode(Entry{
			CertID:      "CERT-1",
			StudentName: "Ada Lovelace",
			Course:      "Computer Science",
			Grade:       "A",
			IssuedAt:    1735689600,
			Revoked:     true,
		})
	})

	entry, err := client.Verify(context.Background(), "CERT-1")
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", entry.StudentName)
	require.True(t, entry.Revoked)
}

func TestHTTPClientVerifyNotFound(t *testing.T) {
	client := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(nodeError{Error: "not_found"})
	})

	_, err := client.Verify(context.Background(), "CERT-missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.False(t, IsTransient(err))
}

func TestHTTPClientRevokeUnauthorized(t *testing.T) {
	client := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(nodeError{Error: "forbidden"})
	})

	_, err := client.Revoke(context.Background(), "CERT-1")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestHTTPClientNodeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // nothing listens anymore

	client, err := NewHTTPClient(url, "issuer-token", 500*time.Millisecond)
	require.NoError(t, err)

	_, err = client.Verify(context.Background(), "CERT-1")
	require.True(t, IsTransient(err))
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestHTTPClientNodeOverloaded(t *testing.T) {
	client := newTestNode(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Verify(context.Background(), "CERT-1")
	require.True(t, IsTransient(err))
}
