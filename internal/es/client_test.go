package es

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/esmirror/esmirror/internal/backoff"
	"github.com/esmirror/esmirror/internal/domain"
)

func fastRetry(maxAttempts int) backoff.Config {
	return backoff.Config{
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
		MaxAttempts: maxAttempts,
	}
}

func optsFor(t *testing.T, srv *httptest.Server) domain.ConnOptions {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse server port: %v", err)
	}
	return domain.ConnOptions{Host: u.Hostname(), Port: port, Index: "users", Type: "users"}
}

func TestPutDocument_PathAndBody(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"ok":true,"_id":"u1"}`))
	}))
	defer srv.Close()

	c := New(nil, fastRetry(1), nil)
	resp, err := c.PutDocument(context.Background(), optsFor(t, srv), "u1", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotMethod != http.MethodPut {
		t.Errorf("expected PUT, got %s", gotMethod)
	}
	if gotPath != "/users/users/u1" {
		t.Errorf("expected path /users/users/u1, got %s", gotPath)
	}
	if gotBody["name"] != "Ada" {
		t.Errorf("expected body to carry the document, got %v", gotBody)
	}
	if !strings.Contains(string(resp), `"_id":"u1"`) {
		t.Errorf("expected raw engine response passthrough, got %s", resp)
	}
}

func TestDeleteDocument_Path(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"found":true}`))
	}))
	defer srv.Close()

	c := New(nil, fastRetry(1), nil)
	if _, err := c.DeleteDocument(context.Background(), optsFor(t, srv), "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/users/users/u1" {
		t.Errorf("expected DELETE /users/users/u1, got %s %s", gotMethod, gotPath)
	}
}

func TestDeleteDocument_AbsentIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"found":false}`))
	}))
	defer srv.Close()

	c := New(nil, fastRetry(1), nil)
	if _, err := c.DeleteDocument(context.Background(), optsFor(t, srv), "ghost"); err != nil {
		t.Fatalf("deleting an absent document must succeed, got %v", err)
	}
}

func TestSearch_URLShape(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"hits":{"total":0,"hits":[]}}`))
	}))
	defer srv.Close()

	c := New(nil, fastRetry(1), nil)
	_, err := c.Search(context.Background(), optsFor(t, srv), "qa-users,qa-orders", json.RawMessage(`{"query":{"match_all":{}}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/qa-users,qa-orders/_search" {
		t.Errorf("expected multi-target path, got %s", gotPath)
	}
	if !strings.Contains(gotQuery, "search_type=dfs_query_then_fetch") ||
		!strings.Contains(gotQuery, "preference=_primary_first") {
		t.Errorf("expected fixed search parameters, got %s", gotQuery)
	}
}

func TestClientError_NotRetried(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"mapping"}`))
	}))
	defer srv.Close()

	c := New(nil, fastRetry(5), nil)
	_, err := c.PutDocument(context.Background(), optsFor(t, srv), "u1", map[string]any{})
	if err == nil {
		t.Fatal("expected error for 400")
	}
	if !errors.Is(err, domain.ErrClientRequest) {
		t.Errorf("expected ErrClientRequest, got %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("4xx must issue exactly one request, got %d", n)
	}
}

func TestServerError_RetriedUntilSuccess(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(nil, fastRetry(0), nil)
	_, err := c.PutDocument(context.Background(), optsFor(t, srv), "u1", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
}

func TestServerError_AttemptCeiling(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(nil, fastRetry(2), nil)
	_, err := c.PutDocument(context.Background(), optsFor(t, srv), "u1", map[string]any{})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if !errors.Is(err, domain.ErrTransientTransport) {
		t.Errorf("expected transient classification, got %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("expected 2 attempts, got %d", n)
	}
}

func TestConnectionFailure_IsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening

	c := New(nil, fastRetry(2), nil)
	_, err := c.PutDocument(context.Background(), optsFor(t, srv), "u1", map[string]any{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrTransientTransport) {
		t.Errorf("expected transient classification, got %v", err)
	}
}

func TestPing_SingleAttempt(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(nil, fastRetry(0), nil)
	if err := c.Ping(context.Background(), optsFor(t, srv)); err == nil {
		t.Fatal("expected ping failure")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("ping must not retry, got %d attempts", n)
	}
}
