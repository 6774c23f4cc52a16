package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, cfg ClientConfig) *http.Client {
	t.Helper()
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	client, err := NewHTTPClient(cfg)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	return client
}

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>UA=" + r.Header.Get("User-Agent") + "</body></html>")) //nolint:errcheck
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/big", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(strings.Repeat("a", 100))) //nolint:errcheck
	})
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ok", http.StatusFound)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	fetcher := New(newTestClient(t, ClientConfig{}), WithUserAgent("Mozilla/5.0"), WithMaxBodySize(50))

	t.Run("2xx returns the body", func(t *testing.T) {
		t.Parallel()

		res, err := fetcher.Fetch(context.Background(), server.URL+"/ok")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", res.StatusCode)
		}
		if !strings.Contains(string(res.Body), "UA=Mozilla/5.0") {
			t.Errorf("expected user agent to be sent, got body %q", res.Body)
		}
		if !res.IsHTML() {
			t.Error("expected HTML content type")
		}
	})

	t.Run("non-2xx returns HTTPStatusError", func(t *testing.T) {
		t.Parallel()

		_, err := fetcher.Fetch(context.Background(), server.URL+"/missing")
		var se *HTTPStatusError
		if !errors.As(err, &se) {
			t.Fatalf("expected HTTPStatusError, got %v", err)
		}
		if se.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", se.StatusCode)
		}
		if StatusCode(err) != http.StatusNotFound {
			t.Errorf("expected StatusCode helper to return 404, got %d", StatusCode(err))
		}
		if IsTransport(err) {
			t.Error("status error must not be classified as transport error")
		}
	})

	t.Run("empty 2xx body is a success", func(t *testing.T) {
		t.Parallel()

		res, err := fetcher.Fetch(context.Background(), server.URL+"/empty")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Body) != 0 {
			t.Errorf("expected empty body, got %d bytes", len(res.Body))
		}
	})

	t.Run("body is capped", func(t *testing.T) {
		t.Parallel()

		res, err := fetcher.Fetch(context.Background(), server.URL+"/big")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Body) != 50 || !res.Truncated {
			t.Errorf("expected 50 truncated bytes, got %d (truncated=%v)", len(res.Body), res.Truncated)
		}
	})

	t.Run("redirects are followed", func(t *testing.T) {
		t.Parallel()

		res, err := fetcher.Fetch(context.Background(), server.URL+"/redirect")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasSuffix(res.FinalURL, "/ok") {
			t.Errorf("expected final URL to end with /ok, got %q", res.FinalURL)
		}
	})
}

func TestFetcher_TransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	deadURL := server.URL
	server.Close()

	fetcher := New(newTestClient(t, ClientConfig{Timeout: time.Second}))

	_, err := fetcher.Fetch(context.Background(), deadURL+"/")
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.URL != deadURL+"/" {
		t.Errorf("expected URL %q, got %q", deadURL+"/", te.URL)
	}
}

func TestFetcher_Timeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.Write([]byte("late")) //nolint:errcheck
	}))
	t.Cleanup(server.Close)

	fetcher := New(newTestClient(t, ClientConfig{Timeout: 100 * time.Millisecond}))

	_, err := fetcher.Fetch(context.Background(), server.URL)
	if !IsTransport(err) {
		t.Fatalf("expected TransportError on timeout, got %v", err)
	}
}

func TestFetcher_CanceledContext(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok")) //nolint:errcheck
	}))
	t.Cleanup(server.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(newTestClient(t, ClientConfig{})).Fetch(ctx, server.URL)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
}

func TestNewHTTPClient_InjectsHeaders(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.Header.Get("Cookie") + "|" + r.Header.Get("X-Test"))) //nolint:errcheck
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, ClientConfig{
		Cookie:  "consent=yes",
		Headers: map[string]string{"X-Test": "value"},
	})
	res, err := New(client).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(res.Body) != "consent=yes|value" {
		t.Errorf("expected cookie and header to be sent, got %q", res.Body)
	}
}

func TestNewHTTPClient_TLSPolicy(t *testing.T) {
	t.Parallel()

	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("secure")) //nolint:errcheck
	}))
	t.Cleanup(server.Close)

	t.Run("verification off accepts self-signed certificates", func(t *testing.T) {
		t.Parallel()

		res, err := New(newTestClient(t, ClientConfig{VerifyTLS: false})).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(res.Body) != "secure" {
			t.Errorf("expected body 'secure', got %q", res.Body)
		}
	})

	t.Run("verification on rejects self-signed certificates", func(t *testing.T) {
		t.Parallel()

		_, err := New(newTestClient(t, ClientConfig{VerifyTLS: true})).Fetch(context.Background(), server.URL)
		if !IsTransport(err) {
			t.Errorf("expected TransportError, got %v", err)
		}
	})
}

func TestNewHTTPClient_InvalidProxy(t *testing.T) {
	t.Parallel()

	_, err := NewHTTPClient(ClientConfig{Timeout: time.Second, ProxyAddress: "localhost"})
	if !errors.Is(err, ErrInvalidProxyAddress) {
		t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
	}
}

func TestIsValidProxyAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		address string
		want    bool
	}{
		{"127.0.0.1:9050", true},
		{"localhost:1080", true},
		{"localhost", false},
		{":9050", false},
		{"127.0.0.1:0", false},
		{"127.0.0.1:70000", false},
		{"127.0.0.1:abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			t.Parallel()
			if got := isValidProxyAddress(tt.address); got != tt.want {
				t.Errorf("isValidProxyAddress(%q) = %v, want %v", tt.address, got, tt.want)
			}
		})
	}
}

func TestFetcher_Robots(t *testing.T) {
	t.Parallel()

	var robotsHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		robotsHits.Add(1)
		w.Write([]byte("User-agent: *\nDisallow: /private/\n")) //nolint:errcheck
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<p>public</p>")) //nolint:errcheck
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	fetcher := New(newTestClient(t, ClientConfig{}), WithRobots(true))

	if _, err := fetcher.Fetch(context.Background(), server.URL+"/public"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := fetcher.Fetch(context.Background(), server.URL+"/private/page")
	if !errors.Is(err, ErrRobotsDisallowed) {
		t.Errorf("expected ErrRobotsDisallowed, got %v", err)
	}
	if hits := robotsHits.Load(); hits != 1 {
		t.Errorf("expected robots.txt to be fetched once, got %d", hits)
	}
}

func TestFetcher_CrawlDelay(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok")) //nolint:errcheck
	}))
	t.Cleanup(server.Close)

	delay := 150 * time.Millisecond
	fetcher := New(newTestClient(t, ClientConfig{}), WithCrawlDelay(delay))

	start := time.Now()
	for range 2 {
		if _, err := fetcher.Fetch(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < delay {
		t.Errorf("expected at least %v between requests, took %v", delay, elapsed)
	}
}

func TestFetcher_CrawlDelayPastDeadline(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Write([]byte("ok")) //nolint:errcheck
	}))
	t.Cleanup(server.Close)

	fetcher := New(newTestClient(t, ClientConfig{}), WithCrawlDelay(time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := fetcher.Fetch(ctx, server.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	start := time.Now()
	_, err := fetcher.Fetch(ctx, server.URL)
	if !errors.Is(err, ErrDelayPastDeadline) {
		t.Fatalf("expected ErrDelayPastDeadline, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected the error to match context.DeadlineExceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("expected an immediate error, waited %v", elapsed)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("expected one request, got %d", n)
	}
}

func TestResult_IsHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		contentType string
		want        bool
	}{
		{"text/html", true},
		{"text/html; charset=utf-8", true},
		{"application/xhtml+xml", true},
		{"", true},
		{"application/pdf", false},
		{"image/png", false},
		{"application/json", false},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			t.Parallel()
			r := &Result{ContentType: tt.contentType}
			if got := r.IsHTML(); got != tt.want {
				t.Errorf("IsHTML(%q) = %v, want %v", tt.contentType, got, tt.want)
			}
		})
	}
}
