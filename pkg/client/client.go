// Package client is a Go client for the AuditFix gateway API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/auditfix/auditfix-gateway/pkg/filecheck"
)

// Client calls the gateway's /api endpoints
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the gateway at baseURL
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// APIError is a failure reported by the gateway in its response envelope.
type APIError struct {
	StatusCode int
	Message    string
	// Fallback is set when fix generation failed upstream and the caller
	// should fall back to its own handling.
	Fallback bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// failureMessages are reported when the gateway gives no error text.
var failureMessages = map[string]string{
	"/api/analyze":     "Analysis failed",
	"/api/gemini-fix":  "Failed to generate security fix",
	"/api/github-repo": "Failed to fetch repository",
}

type envelope struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data"`
	Error    string          `json:"error"`
	Fallback bool            `json:"fallback"`
}

// Issue is a finding to be fixed.
type Issue struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

// FixRequest is the input of GenerateFix.
type FixRequest struct {
	OriginalCode string `json:"originalCode"`
	Issue        *Issue `json:"issue"`
	FileName     string `json:"fileName"`
	Language     string `json:"language,omitempty"`
}

// Fix is a generated fix.
type Fix struct {
	FixedCode       string   `json:"fixedCode"`
	Explanation     string   `json:"explanation"`
	Recommendations []string `json:"recommendations"`
	OriginalIssue   Issue    `json:"originalIssue"`
	GeneratedAt     string   `json:"generatedAt"`
}

// RepoFile is one listed repository file.
type RepoFile struct {
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	SHA         string `json:"sha"`
	DisplayName string `json:"displayName"`
	Directory   string `json:"directory"`
	Extension   string `json:"extension"`
	Owner       string `json:"owner"`
	Repo        string `json:"repo"`
	Branch      string `json:"branch"`
}

// RepoListing is the result of ListRepository.
type RepoListing struct {
	Repository struct {
		Owner  string `json:"owner"`
		Repo   string `json:"repo"`
		Branch string `json:"branch"`
		URL    string `json:"url"`
	} `json:"repository"`
	Files      []RepoFile `json:"files"`
	TotalFiles int        `json:"totalFiles"`
}

// AnalyzeFile validates the file locally and uploads it for analysis. The
// backend's analysis result is returned undecoded.
func (c *Client) AnalyzeFile(ctx context.Context, name string, content []byte) (json.RawMessage, error) {
	if err := filecheck.Validate(name, int64(len(content))); err != nil {
		return nil, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fw.Write(content); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := mw.WriteField("file_name", name); err != nil {
		return nil, fmt.Errorf("failed to write form field: %w", err)
	}
	if err := mw.WriteField("file_size", strconv.Itoa(len(content))); err != nil {
		return nil, fmt.Errorf("failed to write form field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	var out json.RawMessage
	if err := c.do(ctx, "/api/analyze", mw.FormDataContentType(), &body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateFix asks the gateway for a fix of one issue
func (c *Client) GenerateFix(ctx context.Context, req FixRequest) (*Fix, error) {
	var out Fix
	if err := c.postJSON(ctx, "/api/gemini-fix", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRepository lists the code files of a public GitHub repository
func (c *Client) ListRepository(ctx context.Context, githubURL string) (*RepoListing, error) {
	var out RepoListing
	if err := c.postJSON(ctx, "/api/github-repo", map[string]string{"githubUrl": githubURL}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	return c.do(ctx, path, "application/json", bytes.NewReader(data), out)
}

func (c *Client) do(ctx context.Context, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}
	msg := env.Error
	if msg == "" {
		msg = failureMessages[path]
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	if !env.Success {
		return &APIError{StatusCode: resp.StatusCode, Message: msg, Fallback: env.Fallback}
	}

	if out == nil {
		return nil
	}
	// A success envelope without a payload is still a failure to the caller.
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to parse response data: %w", err)
	}
	return nil
}
