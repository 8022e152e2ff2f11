package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ignite/bulk-dispatch/internal/config"
	"github.com/ignite/bulk-dispatch/internal/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSender records attempts and scripts outcomes per credential.
type fakeSender struct {
	calls   []string
	failAll bool
}

func (f *fakeSender) Send(ctx context.Context, cred dispatch.Credential, msg *dispatch.Message) (*dispatch.SendResult, error) {
	f.calls = append(f.calls, msg.To)
	if f.failAll {
		return &dispatch.SendResult{Success: false, Err: errors.New("rejected")}, nil
	}
	return &dispatch.SendResult{Success: true}, nil
}

func testConfig(token string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "localhost", Port: 8080},
		Dispatch: config.DispatchConfig{
			Credentials: []config.Credential{
				{Identity: "one@pool.example", Secret: "s1"},
				{Identity: "two@pool.example", Secret: "s2"},
			},
			BatchSize:      10,
			FromName:       "Tester",
			DefaultSubject: "Notification",
		},
		Auth: config.AuthConfig{Token: token},
	}
}

func postDispatch(t *testing.T, handler http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/bulk-dispatch", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestBulkDispatchEndToEnd(t *testing.T) {
	sender := &fakeSender{}
	srv := NewServer(testConfig(""), sender, nil)

	rec := postDispatch(t, srv.Handler(),
		`{"emails":"a@x.com,a@x.com,bad,b@y.com","template":"marketing","data":{"title":"T","message":"M"}}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp DispatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Sent)
	assert.Equal(t, 0, resp.Failed)
	assert.Equal(t, []string{"a@x.com", "b@y.com"}, sender.calls)
}

func TestBulkDispatchEmailArray(t *testing.T) {
	sender := &fakeSender{}
	srv := NewServer(testConfig(""), sender, nil)

	rec := postDispatch(t, srv.Handler(),
		`{"emails":["a@x.com","b@y.com","a@x.com"],"template":"notice","data":{"message":"M"}}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp DispatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Sent)
}

func TestBulkDispatchNoValidRecipients(t *testing.T) {
	srv := NewServer(testConfig(""), &fakeSender{}, nil)

	rec := postDispatch(t, srv.Handler(),
		`{"emails":"not-an-email,   ,","template":"marketing","data":{"title":"T","message":"M"}}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestBulkDispatchUnknownTemplate(t *testing.T) {
	srv := NewServer(testConfig(""), &fakeSender{}, nil)

	rec := postDispatch(t, srv.Handler(),
		`{"emails":"a@x.com","template":"newsletter","data":{"title":"T","message":"M"}}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBulkDispatchMissingTemplateFields(t *testing.T) {
	srv := NewServer(testConfig(""), &fakeSender{}, nil)

	rec := postDispatch(t, srv.Handler(),
		`{"emails":"a@x.com","template":"marketing","data":{"message":"M"}}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "title")
}

func TestBulkDispatchInvalidJSON(t *testing.T) {
	srv := NewServer(testConfig(""), &fakeSender{}, nil)

	rec := postDispatch(t, srv.Handler(), `{"emails":`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBulkDispatchNoCredentials(t *testing.T) {
	cfg := testConfig("")
	cfg.Dispatch.Credentials = nil
	srv := NewServer(cfg, &fakeSender{}, nil)

	rec := postDispatch(t, srv.Handler(),
		`{"emails":"a@x.com","template":"notice","data":{"message":"M"}}`, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestBulkDispatchExhaustionStillSucceeds(t *testing.T) {
	sender := &fakeSender{failAll: true}
	srv := NewServer(testConfig(""), sender, nil)

	rec := postDispatch(t, srv.Handler(),
		`{"emails":"a@x.com,b@y.com,c@z.com","template":"notice","data":{"message":"M"}}`, nil)

	// Delivery exhaustion is a completed run with counts, not a request
	// failure.
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DispatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 0, resp.Sent)
	assert.Equal(t, 3, resp.Failed)
	assert.Len(t, resp.FailedAddresses, 3)
}

func TestBulkDispatchAuth(t *testing.T) {
	srv := NewServer(testConfig("sekrit"), &fakeSender{}, nil)
	body := `{"emails":"a@x.com","template":"notice","data":{"message":"M"}}`

	tests := []struct {
		name     string
		headers  map[string]string
		expected int
	}{
		{"missing header", nil, http.StatusUnauthorized},
		{"wrong token", map[string]string{"Authorization": "Bearer wrong"}, http.StatusUnauthorized},
		{"malformed header", map[string]string{"Authorization": "sekrit"}, http.StatusUnauthorized},
		{"valid token", map[string]string{"Authorization": "Bearer sekrit"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postDispatch(t, srv.Handler(), body, tt.headers)
			assert.Equal(t, tt.expected, rec.Code)
		})
	}
}

func TestBulkDispatchNoAuthConfigured(t *testing.T) {
	srv := NewServer(testConfig(""), &fakeSender{}, nil)

	rec := postDispatch(t, srv.Handler(),
		`{"emails":"a@x.com","template":"notice","data":{"message":"M"}}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	srv := NewServer(testConfig("sekrit"), &fakeSender{}, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	// Health stays open even when the dispatch endpoint is token-gated.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestEmailListUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected EmailList
		wantErr  bool
	}{
		{"string", `"a@x.com,b@y.com"`, EmailList{"a@x.com,b@y.com"}, false},
		{"array", `["a@x.com","b@y.com"]`, EmailList{"a@x.com", "b@y.com"}, false},
		{"number", `42`, nil, true},
		{"object", `{}`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e EmailList
			err := json.Unmarshal([]byte(tt.input), &e)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, e)
		})
	}
}
