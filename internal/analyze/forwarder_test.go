package analyze

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/auditfix/auditfix-gateway/pkg/config"
)

func multipartBody(t *testing.T, name, content string) (string, []byte) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, w.WriteField("file_name", name))
	require.NoError(t, w.WriteField("file_size", "12"))
	require.NoError(t, w.Close())
	return w.FormDataContentType(), buf.Bytes()
}

func backendConfig(url string) config.BackendConfig {
	cfg := config.Default().Backend
	cfg.URL = url
	return cfg
}

func TestForwarder_Forward(t *testing.T) {
	ct, body := multipartBody(t, "app.js", "eval(input);")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/analyze", r.URL.Path)
		assert.Equal(t, ct, r.Header.Get("Content-Type"))
		assert.Equal(t, "req-1", r.Header.Get("X-Request-ID"))

		got, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Equal(t, body, got)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"file_name":"app.js","status":"success","issues":[]}`))
	}))
	defer server.Close()

	f := NewForwarder(backendConfig(server.URL+"/"), zap.NewNop())
	data, err := f.Forward(context.Background(), Upload{ContentType: ct, Body: bytes.NewReader(body), RequestID: "req-1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"file_name":"app.js","status":"success","issues":[]}`, string(data))
}

func TestForwarder_Forward_BackendStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	ct, body := multipartBody(t, "a.go", "package a")
	f := NewForwarder(backendConfig(server.URL), zap.NewNop())

	_, err := f.Forward(context.Background(), Upload{ContentType: ct, Body: bytes.NewReader(body)})
	require.Error(t, err)

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "analysis backend error: 502 Bad Gateway", err.Error())
}

func TestForwarder_Forward_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	defer server.Close()

	ct, body := multipartBody(t, "a.go", "package a")
	f := NewForwarder(backendConfig(server.URL), zap.NewNop())

	_, err := f.Forward(context.Background(), Upload{ContentType: ct, Body: bytes.NewReader(body)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestForwarder_Forward_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	ct, body := multipartBody(t, "a.go", "package a")
	f := NewForwarder(backendConfig(url), zap.NewNop())

	_, err := f.Forward(context.Background(), Upload{ContentType: ct, Body: bytes.NewReader(body)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to reach analysis backend")
}

func TestForwarder_Forward_TooLarge(t *testing.T) {
	cfg := backendConfig("http://127.0.0.1:1")
	cfg.MaxUploadBytes = 16

	ct, body := multipartBody(t, "a.go", strings.Repeat("x", 64))
	f := NewForwarder(cfg, zap.NewNop())

	_, err := f.Forward(context.Background(), Upload{ContentType: ct, Body: bytes.NewReader(body)})
	assert.ErrorIs(t, err, ErrUploadTooLarge)
}

func TestCheckContentType(t *testing.T) {
	assert.NoError(t, CheckContentType("multipart/form-data; boundary=abc"))
	assert.ErrorIs(t, CheckContentType("multipart/form-data"), ErrNotMultipart)
	assert.ErrorIs(t, CheckContentType("application/json"), ErrNotMultipart)
	assert.ErrorIs(t, CheckContentType(""), ErrNotMultipart)
}
