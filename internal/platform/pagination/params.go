// Package pagination normalises WooCommerce-style page/per_page query parameters.
package pagination

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPerPage matches the WooCommerce REST API default page size.
	DefaultPerPage = 10
	// MaxPerPage is the largest page size WooCommerce accepts.
	MaxPerPage = 100
)

// Params carries normalised pagination values ready to forward upstream.
type Params struct {
	Page    int
	PerPage int
}

// Parse reads page and per_page from the supplied query values, applying defaults
// and clamping per_page to the upstream maximum. Malformed values are rejected so
// callers can return a 400 instead of silently forwarding garbage.
func Parse(query url.Values) (Params, error) {
	params := Params{Page: 1, PerPage: DefaultPerPage}

	if raw := strings.TrimSpace(query.Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return Params{}, fmt.Errorf("pagination: invalid page %q", raw)
		}
		params.Page = page
	}

	if raw := strings.TrimSpace(query.Get("per_page")); raw != "" {
		perPage, err := strconv.Atoi(raw)
		if err != nil || perPage < 1 {
			return Params{}, fmt.Errorf("pagination: invalid per_page %q", raw)
		}
		if perPage > MaxPerPage {
			perPage = MaxPerPage
		}
		params.PerPage = perPage
	}

	return params, nil
}

// Apply writes the pagination values into the supplied query values.
func (p Params) Apply(query url.Values) {
	query.Set("page", strconv.Itoa(p.Page))
	query.Set("per_page", strconv.Itoa(p.PerPage))
}
