package model

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ThreadForge/internal/domain/models"
	"ThreadForge/pkg/logger"
)

type fakeMetrics struct {
	mu       sync.Mutex
	attempts map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{attempts: make(map[string]int)}
}

func (f *fakeMetrics) RecordGeneration(string) {}
func (f *fakeMetrics) RecordModelAttempt(model, result string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[model+"/"+result]++
}
func (f *fakeMetrics) RecordStageLatency(string, float64) {}
func (f *fakeMetrics) RecordUsageCommit(string)           {}
func (f *fakeMetrics) RecordError(string)                 {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	lgr, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatal(err)
	}
	return lgr
}

func newTestInvoker(t *testing.T, baseURL string) (*Invoker, *fakeMetrics) {
	t.Helper()
	gateway := NewClient(ClientConfig{
		BaseURL:    baseURL,
		APIKey:     "test-key",
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}, testLogger(t))

	fm := newFakeMetrics()
	inv := NewInvoker(gateway, fm, InvokerConfig{
		PrimaryModel:   "primary-model",
		FallbackModel:  "fallback-model",
		AttemptTimeout: 5 * time.Second,
	}, testLogger(t))
	return inv, fm
}

func completionBody(content string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(b)
}

func TestInvokePrimarySucceeds(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		calls = append(calls, req.Model)

		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		w.Write([]byte(completionBody("the thread")))
	}))
	defer srv.Close()

	inv, _ := newTestInvoker(t, srv.URL)
	res, err := inv.Invoke(context.Background(), "sys", "user")
	if err != nil {
		t.Fatal(err)
	}
	if res.ModelID != "primary-model" {
		t.Fatalf("model = %s", res.ModelID)
	}
	if len(calls) != 1 {
		t.Fatalf("calls = %v, want exactly one", calls)
	}
	if res.RawBody != completionBody("the thread") {
		t.Fatalf("raw body = %q", res.RawBody)
	}
}

func TestInvokeFallsBackOnServerError(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		calls = append(calls, req.Model)

		if req.Model == "primary-model" {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("upstream exploded"))
			return
		}
		w.Write([]byte(completionBody("fallback thread")))
	}))
	defer srv.Close()

	inv, fm := newTestInvoker(t, srv.URL)
	res, err := inv.Invoke(context.Background(), "sys", "user")
	if err != nil {
		t.Fatal(err)
	}
	if res.ModelID != "fallback-model" {
		t.Fatalf("model = %s", res.ModelID)
	}
	if len(calls) != 2 || calls[0] != "primary-model" || calls[1] != "fallback-model" {
		t.Fatalf("calls = %v", calls)
	}
	if len(res.Attempts) != 2 {
		t.Fatalf("attempts = %d", len(res.Attempts))
	}
	if res.Attempts[0].Reason != "http" {
		t.Fatalf("primary reason = %s", res.Attempts[0].Reason)
	}
	if res.Attempts[0].BodySnippet != "upstream exploded" {
		t.Fatalf("primary body snippet = %q", res.Attempts[0].BodySnippet)
	}
	if res.Attempts[1].BodySnippet != "" {
		t.Fatalf("successful attempt should not carry a snippet: %q", res.Attempts[1].BodySnippet)
	}
	if fm.attempts["fallback-model/ok"] != 1 {
		t.Fatalf("metrics = %v", fm.attempts)
	}
}

func TestInvokeTruncatesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		if req.Model == "primary-model" {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(strings.Repeat("e", 1000)))
			return
		}
		w.Write([]byte(completionBody("ok")))
	}))
	defer srv.Close()

	inv, _ := newTestInvoker(t, srv.URL)
	res, err := inv.Invoke(context.Background(), "sys", "user")
	if err != nil {
		t.Fatal(err)
	}
	if got := len(res.Attempts[0].BodySnippet); got != bodySnippetLen {
		t.Fatalf("snippet length = %d, want %d", got, bodySnippetLen)
	}
}

func TestInvokeBothModelsFail(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	inv, _ := newTestInvoker(t, srv.URL)
	_, err := inv.Invoke(context.Background(), "sys", "user")
	if !errors.Is(err, models.ErrModelGatewayUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want exactly 2 and never more", calls)
	}
}

func TestInvokeStopsOnCancelledContext(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inv, _ := newTestInvoker(t, srv.URL)
	_, err := inv.Invoke(ctx, "sys", "user")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if calls != 0 {
		t.Fatalf("calls = %d, want 0 after cancellation", calls)
	}
}

func TestInvokeEmptyBodyTriggersFallback(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		calls = append(calls, req.Model)

		if req.Model == "primary-model" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Write([]byte(completionBody("ok")))
	}))
	defer srv.Close()

	inv, _ := newTestInvoker(t, srv.URL)
	res, err := inv.Invoke(context.Background(), "sys", "user")
	if err != nil {
		t.Fatal(err)
	}
	if res.ModelID != "fallback-model" {
		t.Fatalf("model = %s", res.ModelID)
	}
	if res.Attempts[0].Reason != "empty" {
		t.Fatalf("reason = %s", res.Attempts[0].Reason)
	}
}
