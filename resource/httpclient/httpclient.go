// Package httpclient is a concrete pool.Factory/pool.Destroy pair for
// the second canonical resource kind this pool is built to manage: a
// configured, retry-decorated HTTP client. Pooling clients (rather
// than dialing fresh TCP+TLS per request) matters when each client
// holds its own connection-reuse state, auth headers, or retry policy.
package httpclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/levinOo/stripedpool/pool"
)

// Options configures the pooled clients Factory produces.
type Options struct {
	// RetryMax bounds retryablehttp's attempt count. 0 uses
	// retryablehttp's own default.
	RetryMax int
}

// Factory returns a pool.Factory building *retryablehttp.Client
// values backed by go-cleanhttp's pooled transport, so both
// retryablehttp's retry/backoff policy and cleanhttp's connection
// reuse are exercised by the pool's own acquire/release protocol
// rather than built once outside it.
func Factory(opts Options) pool.Factory[*retryablehttp.Client] {
	return func(context.Context) (*retryablehttp.Client, error) {
		client := retryablehttp.NewClient()
		client.HTTPClient = cleanhttp.DefaultPooledClient()
		client.Logger = nil
		if opts.RetryMax > 0 {
			client.RetryMax = opts.RetryMax
		}
		return client, nil
	}
}

// Destroy closes a pooled client's idle connections. It satisfies
// pool.Destroy[*retryablehttp.Client].
func Destroy(client *retryablehttp.Client) {
	client.HTTPClient.CloseIdleConnections()
}

// PostJSONGzip gzip-compresses body and POSTs it to url using client,
// retrying transient failures per retryablehttp's own backoff policy.
// If every attempt still fails, go-multierror folds the failure into a
// *multierror.Error instead of surfacing retryablehttp's bare final
// error, so future attempt errors (not just the last) can be
// accumulated here without discarding earlier ones.
func PostJSONGzip(ctx context.Context, client *retryablehttp.Client, url string, body []byte) error {
	compressed, err := compress(body)
	if err != nil {
		return fmt.Errorf("compress payload: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")

	resp, err := client.Do(req)
	if err != nil {
		var merr *multierror.Error
		merr = multierror.Append(merr, fmt.Errorf("post %s: %w", url, err))
		return merr.ErrorOrNil()
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("post %s: server returned %d", url, resp.StatusCode)
	}
	return nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
