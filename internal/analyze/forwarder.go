// Package analyze relays uploaded files to the external analysis backend.
package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/auditfix/auditfix-gateway/internal/metrics"
	"github.com/auditfix/auditfix-gateway/pkg/config"
)

// AnalyzePath is appended to the backend base URL.
const AnalyzePath = "/api/analyze"

var (
	// ErrNotMultipart is returned when the upload is not multipart/form-data.
	ErrNotMultipart = errors.New("Expected multipart/form-data request")
	// ErrUploadTooLarge is returned when the upload exceeds the configured limit.
	ErrUploadTooLarge = errors.New("Upload exceeds size limit")
)

// BackendError reports a non-2xx answer from the analysis backend.
type BackendError struct {
	StatusCode int
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("analysis backend error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Upload is an incoming multipart request body.
type Upload struct {
	ContentType string
	Body        io.Reader
	RequestID   string
}

// Forwarder sends uploads to the analysis backend unchanged.
type Forwarder struct {
	cfg    config.BackendConfig
	client *http.Client
	logger *zap.Logger
}

// NewForwarder creates a Forwarder for the configured backend.
func NewForwarder(cfg config.BackendConfig, logger *zap.Logger) *Forwarder {
	return &Forwarder{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.TimeoutDuration(),
		},
		logger: logger.Named("analyze"),
	}
}

// CheckContentType verifies that ct is multipart/form-data with a boundary.
func CheckContentType(ct string) error {
	mediaType, params, err := mime.ParseMediaType(ct)
	if err != nil || mediaType != "multipart/form-data" || params["boundary"] == "" {
		return ErrNotMultipart
	}
	return nil
}

// Forward relays the upload body and content type to the backend and
// returns the backend's JSON answer.
func (f *Forwarder) Forward(ctx context.Context, up Upload) (json.RawMessage, error) {
	if err := CheckContentType(up.ContentType); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(up.Body, f.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(body)) > f.cfg.MaxUploadBytes {
		return nil, ErrUploadTooLarge
	}

	endpoint := strings.TrimSuffix(f.cfg.URL, "/") + AnalyzePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", up.ContentType)
	req.Header.Set("Accept", "application/json")
	if up.RequestID != "" {
		req.Header.Set("X-Request-ID", up.RequestID)
	}

	f.logger.Debug("Forwarding upload",
		zap.String("url", endpoint),
		zap.Int("bytes", len(body)))

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.ObserveUpstream(metrics.UpstreamBackend, metrics.OutcomeError)
		return nil, fmt.Errorf("failed to reach analysis backend: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveUpstream(metrics.UpstreamBackend, metrics.OutcomeError)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ObserveUpstream(metrics.UpstreamBackend, metrics.OutcomeError)
		return nil, &BackendError{StatusCode: resp.StatusCode}
	}

	if !json.Valid(respBody) {
		metrics.ObserveUpstream(metrics.UpstreamBackend, metrics.OutcomeError)
		return nil, fmt.Errorf("invalid JSON in analysis backend response")
	}

	metrics.ObserveUpstream(metrics.UpstreamBackend, metrics.OutcomeOK)
	return json.RawMessage(respBody), nil
}
