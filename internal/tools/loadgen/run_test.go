package loadgen

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newFakePortal(t *testing.T, csrfMismatches *atomic.Int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/Login", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			http.SetCookie(w, &http.Cookie{Name: "csrf_token", Value: "tok", Path: "/"})
			w.WriteHeader(http.StatusOK)
		case http.MethodPost:
			ck, err := r.Cookie("csrf_token")
			if err != nil || ck.Value != r.PostFormValue("csrf_token") {
				csrfMismatches.Add(1)
				w.WriteHeader(http.StatusForbidden)
				return
			}
			if r.PostFormValue("Email") == "alice@example.com" && r.PostFormValue("Password") == "pw" {
				http.Redirect(w, r, "/Dashboard/Dashboard", http.StatusSeeOther)
				return
			}
			w.WriteHeader(http.StatusUnauthorized)
		}
	})
	mux.HandleFunc("/Dashboard/Dashboard", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/Login", http.StatusFound)
	})
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTooManyRequests) })
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRunMixedProfileEchoesCSRFAndCountsStatuses(t *testing.T) {
	var mismatches atomic.Int64
	srv := newFakePortal(t, &mismatches)

	res, err := Run(context.Background(), Config{
		BaseURL:     srv.URL,
		Profile:     "mixed",
		Duration:    600 * time.Millisecond,
		RPS:         60,
		Concurrency: 3,
		Email:       "alice@example.com",
		Password:    "pw",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.TotalRequests == 0 {
		t.Fatal("expected traffic")
	}
	if mismatches.Load() != 0 {
		t.Fatalf("expected csrf token echoed on every post, got %d mismatches", mismatches.Load())
	}
	if res.Status2xx == 0 || res.Status3xx == 0 {
		t.Fatalf("expected 2xx and 3xx responses, got %+v", res)
	}
	if res.Status429 > res.Status4xx {
		t.Fatalf("429s must be counted within 4xx: %+v", res)
	}
}

func TestRunUnknownProfile(t *testing.T) {
	if _, err := Run(context.Background(), Config{Profile: "nope", Duration: time.Millisecond}); err == nil {
		t.Fatal("expected error for unknown profile")
	}
}

func TestSummarize(t *testing.T) {
	lines := summarize(Result{TotalRequests: 3, Status429: 1})
	if len(lines) != 7 || lines[0] != "total_requests=3" || lines[5] != "status_429=1" {
		t.Fatalf("unexpected summary: %v", lines)
	}
}
