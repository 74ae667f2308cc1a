// Package services implements the storefront's business operations on top of
// the commerce gateway, payment providers, and session bridge.
package services

import (
	"context"
	"encoding/json"
	"net/url"
)

// commerceGateway is the slice of the WooCommerce REST client the services
// consume. Tests substitute it with fakes.
type commerceGateway interface {
	Request(ctx context.Context, method, path string, query url.Values, body []byte) (json.RawMessage, error)
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body any, out any) error
	Put(ctx context.Context, path string, body any, out any) error
}
