package woocommerce

import (
	"errors"
	"fmt"
)

// UpstreamError carries a non-2xx WooCommerce response. The status code and raw
// body are preserved so handlers can relay the upstream failure without
// inventing their own shape.
type UpstreamError struct {
	StatusCode int
	Body       []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("woocommerce: upstream status %d", e.StatusCode)
}

// AsUpstream unwraps err into an UpstreamError when possible.
func AsUpstream(err error) (*UpstreamError, bool) {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream, true
	}
	return nil, false
}
