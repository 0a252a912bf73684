package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ledgerRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "certledger_ledger_request_duration_seconds",
		Help:    "Round-trip latency of ledger node requests.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"op", "outcome"},
)

// HTTPClient talks JSON to a remote ledger node. Writes carry the issuer
// token; the node enforces access control and id uniqueness.
type HTTPClient struct {
	baseURL     string
	issuerToken string
	hc          *http.Client
}

// NewHTTPClient creates a ledger client with a per-request timeout.
func NewHTTPClient(baseURL, issuerToken string, timeout time.Duration) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("ledger node URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid ledger node URL: %w", err)
	}
	return &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		issuerToken: issuerToken,
		hc:          &http.Client{Timeout: timeout},
	}, nil
}

type issueRequest struct {
	CertID      string `json:"cert_id"`
	StudentName string `json:"student_name"`
	Course      string `json:"course"`
	Grade       string `json:"grade"`
}

type txResponse struct {
	TxReference string `json:"tx_reference"`
}

type nodeError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Issue submits a certificate write and waits for the node to confirm it.
func (c *HTTPClient) Issue(ctx context.Context, certID, studentName, course, grade string) (string, error) {
	body, err := json.Marshal(issueRequest{
		CertID:      certID,
		StudentName: studentName,
		Course:      course,
		Grade:       grade,
	})
	if err != nil {
		return "", fmt.Errorf("encode issue request: %w", err)
	}

	var resp txResponse
	if err := c.do(ctx, "issue", http.MethodPost, "/v1/ledger/certs", body, &resp); err != nil {
		return "", err
	}
	return resp.TxReference, nil
}

// Revoke marks an existing entry revoked.
func (c *HTTPClient) Revoke(ctx context.Context, certID string) (string, error) {
	path := fmt.Sprintf("/v1/ledger/certs/%s/revoke", url.PathEscape(certID))

	var resp txResponse
	if err := c.do(ctx, "revoke", http.MethodPost, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.TxReference, nil
}

// Verify reads an entry from the node.
func (c *HTTPClient) Verify(ctx context.Context, certID string) (Entry, error) {
	path := fmt.Sprintf("/v1/ledger/certs/%s", url.PathEscape(certID))

	var entry Entry
	if err := c.do(ctx, "verify", http.MethodGet, path, nil, &entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.issuerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.issuerToken)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		// Timeouts, refused connections, DNS failures. Not a verdict on
		// whether the certificate exists.
		ledgerRequestDuration.WithLabelValues(op, "transient").Observe(time.Since(start).Seconds())
		return Transient(fmt.Errorf("%s: %w", op, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		ledgerRequestDuration.WithLabelValues(op, "ok").Observe(time.Since(start).Seconds())
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return Transient(fmt.Errorf("%s: decode response: %w", op, err))
		}
		return nil
	}

	ledgerRequestDuration.WithLabelValues(op, "error").Observe(time.Since(start).Seconds())

	var nerr nodeError
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&nerr)
	detail := nerr.Message
	if detail == "" {
		detail = nerr.Error
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %s: %w", op, detail, ErrNotFound)
	case http.StatusConflict:
		return fmt.Errorf("%s: %s: %w", op, detail, ErrConflict)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: %s: %w", op, detail, ErrUnauthorized)
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return Transient(fmt.Errorf("%s: node returned %d: %s", op, resp.StatusCode, detail))
	default:
		return fmt.Errorf("%s: node returned %d: %s", op, resp.StatusCode, detail)
	}
}
