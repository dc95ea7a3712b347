package httpclient

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/levinOo/stripedpool/pool"
)

func testPoolConfig() pool.Config {
	return pool.Config{NumStripes: 1, IdleTime: 500 * time.Millisecond, MaxResources: 2}
}

func TestFactoryProducesRetryableClient(t *testing.T) {
	client, err := Factory(Options{})(context.Background())
	if err != nil {
		t.Fatalf("Factory: %v", err)
	}
	if client.HTTPClient == nil {
		t.Fatal("expected a configured *http.Client")
	}
	Destroy(client)
}

func TestPostJSONGzipDecompressesOnServer(t *testing.T) {
	var received []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			t.Errorf("server: gzip.NewReader: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		received, err = io.ReadAll(gz)
		if err != nil {
			t.Errorf("server: read gzip body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := Factory(Options{RetryMax: 0})(context.Background())
	if err != nil {
		t.Fatalf("Factory: %v", err)
	}
	defer Destroy(client)

	if err := PostJSONGzip(context.Background(), client, srv.URL, []byte(`{"idle":1}`)); err != nil {
		t.Fatalf("PostJSONGzip: %v", err)
	}
	if string(received) != `{"idle":1}` {
		t.Fatalf("server received %q, want %q", received, `{"idle":1}`)
	}
}

func TestPostJSONGzipRetriesOnServerError(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := Factory(Options{RetryMax: 3})(context.Background())
	if err != nil {
		t.Fatalf("Factory: %v", err)
	}
	client.RetryWaitMin = 0
	client.RetryWaitMax = 0
	defer Destroy(client)

	if err := PostJSONGzip(context.Background(), client, srv.URL, []byte(`{}`)); err != nil {
		t.Fatalf("PostJSONGzip: %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got < 2 {
		t.Fatalf("attempts = %d, want at least 2", got)
	}
}

func TestPostJSONGzipFoldsFailureAfterRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := Factory(Options{RetryMax: 1})(context.Background())
	if err != nil {
		t.Fatalf("Factory: %v", err)
	}
	client.RetryWaitMin = 0
	client.RetryWaitMax = 0
	defer Destroy(client)

	if err := PostJSONGzip(context.Background(), client, srv.URL, []byte(`{}`)); err == nil {
		t.Fatal("expected PostJSONGzip to report a final failure")
	}
}

func TestNotifyBorrowsFromPool(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	clients, err := pool.New[*retryablehttp.Client](Factory(Options{RetryMax: 0}), Destroy, testPoolConfig())
	if err != nil {
		t.Fatalf("pool.New: %v", err)
	}
	defer clients.Close()

	if err := Notify(context.Background(), clients, srv.URL, []byte(`{}`)); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Fatalf("attempts = %d, want 1", got)
	}
}
