package httpjson

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/opsbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostJSONSendsHeadersAndDecodesBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer secret_1", r.Header.Get("Authorization"))
		assert.Equal(t, "2022-06-28", r.Header.Get("Notion-Version"))
		assert.Contains(t, r.Header.Get("User-Agent"), "opsbot/")

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "value", body["key"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"page","id":"abc"}`))
	}))
	defer server.Close()

	resp, err := NewClient(server.Client()).PostJSON(context.Background(), server.URL, NotionHeaders("secret_1", "2022-06-28"), map[string]any{"key": "value"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.True(t, resp.OK())
	assert.Equal(t, map[string]any{"object": "page", "id": "abc"}, resp.Body)
	require.NoError(t, resp.Err())
}

func TestPatchJSONUsesPatch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resp, err := NewClient(server.Client()).PatchJSON(context.Background(), server.URL, nil, map[string]any{})
	require.NoError(t, err)
	assert.Nil(t, resp.Body)
}

func TestErrorStatusIsReturnedNotRaised(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"object":"error","status":400,"code":"validation_error","message":"body failed validation"}`))
	}))
	defer server.Close()

	resp, err := NewClient(server.Client()).PostJSON(context.Background(), server.URL, nil, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	platformErr := resp.Err()
	require.ErrorIs(t, platformErr, domain.ErrPlatform)
	assert.ErrorContains(t, platformErr, "validation_error: body failed validation")
}

func TestSwitchBotHeadersHaveNoScheme(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "switch-token", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, "plain text")
	}))
	defer server.Close()

	resp, err := NewClient(server.Client()).PostJSON(context.Background(), server.URL, SwitchBotHeaders("switch-token"), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "plain text", resp.Body)
}

func TestTransportFailureIsTransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(http.DefaultClient).PostJSON(context.Background(), url, nil, map[string]any{})
	require.ErrorIs(t, err, domain.ErrTransport)
	assert.Equal(t, "TransportError", domain.KindOf(err))
}

func TestTransportFailureHidesURLPath(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL + "/api/webhooks/123/hook-secret?wait=true"
	server.Close()

	_, err := NewClient(http.DefaultClient).PostJSON(context.Background(), endpoint, nil, map[string]any{})
	require.ErrorIs(t, err, domain.ErrTransport)
	assert.NotContains(t, err.Error(), "hook-secret")
	assert.NotContains(t, err.Error(), "/api/webhooks")
	assert.Contains(t, err.Error(), server.URL)
}

func TestMalformedURLErrorHidesURL(t *testing.T) {
	t.Parallel()

	_, err := NewClient(http.DefaultClient).Get(context.Background(), "http://[::1/token-in-path", nil)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "token-in-path")
}

func TestServerErrorsAreNotRetriedByDefault(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	resp, err := NewClient(server.Client()).PostJSON(context.Background(), server.URL, nil, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.Status)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetriesRecoverFromServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"n":1}`, string(body))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), WithRetries(3), WithInitialInterval(time.Millisecond))
	resp, err := client.PostJSON(context.Background(), server.URL, nil, map[string]int{"n": 1})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetriesExhaustedReturnLastResponse(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.Client(), WithRetries(2), WithInitialInterval(time.Millisecond))
	resp, err := client.PostJSON(context.Background(), server.URL, nil, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientErrorsAreNeverRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(server.Client(), WithRetries(3), WithInitialInterval(time.Millisecond))
	resp, err := client.PostJSON(context.Background(), server.URL, nil, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.Status)
	require.ErrorIs(t, resp.Err(), domain.ErrPermissionDenied)
	assert.Equal(t, int32(1), calls.Load())
}

func TestUnencodableBodyIsConfigError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(nil).PostJSON(context.Background(), "http://127.0.0.1:1", nil, map[string]any{"bad": make(chan int)})
	require.ErrorIs(t, err, domain.ErrConfig)
}
