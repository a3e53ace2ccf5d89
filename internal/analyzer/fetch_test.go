package analyzer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Request-Tag") != "" {
			w.Header().Set("X-Echo", r.Header.Get("X-Request-Tag"))
		}
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte("created"))
			return
		}
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	svc, _ := newTestService(t)

	t.Run("get_by_default", func(t *testing.T) {
		res, err := svc.Fetch(context.Background(), FetchParams{URL: srv.URL})
		if err != nil {
			t.Fatalf("Fetch() = %v; want nil", err)
		}
		if res.Status != http.StatusOK || res.StatusText != "OK" {
			t.Fatalf("status = %d %q; want 200 OK", res.Status, res.StatusText)
		}
		if res.Body != "hello" {
			t.Fatalf("body = %q; want hello", res.Body)
		}
		if res.DurationMS < 0 {
			t.Fatalf("duration = %d; want >= 0", res.DurationMS)
		}
	})

	t.Run("post_with_headers_and_body", func(t *testing.T) {
		res, err := svc.Fetch(context.Background(), FetchParams{
			URL:     srv.URL,
			Method:  "post",
			Headers: map[string]string{"X-Request-Tag": "ping"},
			Body:    `{"k":"v"}`,
		})
		if err != nil {
			t.Fatalf("Fetch() = %v; want nil", err)
		}
		if res.Status != http.StatusCreated {
			t.Fatalf("status = %d; want 201", res.Status)
		}
		if res.Headers["X-Echo"] != "ping" {
			t.Fatalf("X-Echo = %q; want ping", res.Headers["X-Echo"])
		}
	})

	t.Run("network_failure_is_internal", func(t *testing.T) {
		_, err := svc.Fetch(context.Background(), FetchParams{URL: "http://127.0.0.1:1/unreachable"})
		if err == nil {
			t.Fatalf("expected error for unreachable host")
		}
	})
}
