package authz

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeGranted(t *testing.T) {
	var got checkRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/authz/check", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(Decision{Granted: true, Reason: "mapped"})
	}))
	defer srv.Close()

	client := NewHTTPClient(Config{BaseURL: srv.URL})
	decision, err := client.Authorize(context.Background(), "alice", "data:custom-report")
	require.NoError(t, err)
	assert.True(t, decision.Granted)
	assert.Equal(t, "mapped", decision.Reason)
	assert.Equal(t, checkRequest{PrincipalID: "alice", Resource: "data:custom-report"}, got)
}

func TestAuthorizeDeniedIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(Decision{Granted: false})
	}))
	defer srv.Close()

	client := NewHTTPClient(Config{BaseURL: srv.URL})
	decision, err := client.Authorize(context.Background(), "alice", "screen:/qrmfg/admin")
	require.NoError(t, err)
	assert.False(t, decision.Granted)
	assert.Equal(t, int32(1), calls.Load(), "a definitive deny is an answer, not a failure")
}

func TestAuthorizeRetriesTransportFailureOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(Decision{Granted: true})
	}))
	defer srv.Close()

	client := NewHTTPClient(Config{BaseURL: srv.URL})
	decision, err := client.Authorize(context.Background(), "alice", "data:query")
	require.NoError(t, err)
	assert.True(t, decision.Granted)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAuthorizePersistentFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPClient(Config{BaseURL: srv.URL})
	_, err := client.Authorize(context.Background(), "alice", "data:query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Equal(t, int32(2), calls.Load(), "exactly one retry, then give up")
}

func TestAuthorizeCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Decision{Granted: true})
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewHTTPClient(Config{BaseURL: srv.URL})
	_, err := client.Authorize(ctx, "alice", "data:query")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAuthorizeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := NewHTTPClient(Config{BaseURL: srv.URL, Timeout: time.Minute})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Authorize(ctx, "alice", "data:query")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPlantsFor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/users/alice/plants", r.URL.Path)
		json.NewEncoder(w).Encode(map[string][]string{"plants": {"1102", "1103"}})
	}))
	defer srv.Close()

	client := NewHTTPClient(Config{BaseURL: srv.URL})
	plants, err := client.PlantsFor(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"1102", "1103"}, plants)
}

func TestPlantsForDirectoryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewHTTPClient(Config{BaseURL: srv.URL})
	_, err := client.PlantsFor(context.Background(), "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestNewHTTPClientTrimsTrailingSlash(t *testing.T) {
	client := NewHTTPClient(Config{BaseURL: "http://authz.internal/"})
	assert.Equal(t, "http://authz.internal", client.baseURL)
}
