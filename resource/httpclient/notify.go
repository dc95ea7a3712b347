package httpclient

import (
	"context"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/levinOo/stripedpool/pool"
)

// Notify posts body to url using a client borrowed from clients,
// running PostJSONGzip under the pool's ordinary WithResource
// contract: the borrowed *retryablehttp.Client is returned to its
// stripe on success and destroyed if the post fails, the same as any
// other pooled resource use, rather than going through a client held
// outside the pool's accounting.
func Notify(ctx context.Context, clients *pool.Pool[*retryablehttp.Client], url string, body []byte) error {
	return clients.WithResource(ctx, func(client *retryablehttp.Client) error {
		return PostJSONGzip(ctx, client, url, body)
	})
}
