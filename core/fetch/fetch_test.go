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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Last-Modified", "Wed, 21 Oct 2025 07:28:00 GMT")
		_, _ = w.Write([]byte("<html><body>Bonjour</body></html>"))
	}))
	defer srv.Close()

	f := New(Options{UserAgent: "test-agent"})
	res, err := f.Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)

	assert.Equal(t, "test-agent", gotUA)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, srv.URL+"/page", res.URL)
	assert.Contains(t, res.ContentType, "text/html")
	assert.Equal(t, "<html><body>Bonjour</body></html>", string(res.Body))
	assert.Equal(t, "Wed, 21 Oct 2025 07:28:00 GMT", res.Header.Get("Last-Modified"))
}

func TestHTTPFetcher_Head(t *testing.T) {
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.Header().Set("Content-Type", "application/pdf")
	}))
	defer srv.Close()

	res, err := New(Options{}).Head(context.Background(), srv.URL+"/doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, http.MethodHead, method)
	assert.Equal(t, "application/pdf", res.ContentType)
	assert.Empty(t, res.Body)
}

func TestHTTPFetcher_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := New(Options{}).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, IsStatusError(err))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestHTTPFetcher_TransportErrorIsNotStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := New(Options{Timeout: time.Second}).Fetch(context.Background(), addr)
	require.Error(t, err)
	assert.False(t, IsStatusError(err))
}

func TestHTTPFetcher_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer srv.Close()

	_, err := New(Options{MaxBodyBytes: 1024}).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestRobotsChecker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /prive/\nCrawl-delay: 2\n"))
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	rc := NewRobotsChecker(srv.Client(), "muniwatch")
	ok, err := rc.Allowed(context.Background(), srv.URL+"/deliberations/")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = rc.Allowed(context.Background(), srv.URL+"/prive/compte.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	host := strings.TrimPrefix(srv.URL, "http://")
	assert.Equal(t, 2*time.Second, rc.CrawlDelay(host))
}

func TestRobotsChecker_MissingAllowsAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	rc := NewRobotsChecker(srv.Client(), "muniwatch")
	ok, err := rc.Allowed(context.Background(), srv.URL+"/anything")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, rc.CrawlDelay(strings.TrimPrefix(srv.URL, "http://")))
}

func TestPoliteFetcher_Disallowed(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /admin\n"))
			return
		}
		hits.Add(1)
	}))
	defer srv.Close()

	base := New(Options{UserAgent: "muniwatch"})
	p := NewPolite(base, 0, NewRobotsChecker(srv.Client(), "muniwatch"))

	_, err := p.Fetch(context.Background(), srv.URL+"/admin/login")
	assert.ErrorIs(t, err, ErrDisallowed)
	assert.Zero(t, hits.Load())

	_, err = p.Fetch(context.Background(), srv.URL+"/actualites")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestPoliteFetcher_SpacesRequestsPerOrigin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	p := NewPolite(New(Options{}), 80*time.Millisecond, nil)
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := p.Fetch(context.Background(), srv.URL+"/p")
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestPoliteFetcher_CancelledWait(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	p := NewPolite(New(Options{}), time.Hour, nil)
	_, err := p.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Fetch(ctx, srv.URL)
	assert.Error(t, err)
}
