package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// DefaultParams returns the first page with the default page size.
func DefaultParams() Params {
	return Params{Page: 1, PerPage: DefaultPerPage}
}

// FromRequest reads ?page= and ?per_page= from r. Missing or out-of-range
// values fall back to the defaults.
func FromRequest(r *http.Request) Params {
	q := r.URL.Query()
	p := Params{
		Page:    atoiOr(q.Get("page"), 0),
		PerPage: atoiOr(q.Get("per_page"), 0),
	}
	return p.Normalize()
}

// Normalize clamps Page to at least 1 and PerPage into [1, MaxPerPage].
// A PerPage above the limit is replaced by the default rather than capped.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 || p.PerPage > MaxPerPage {
		p.PerPage = DefaultPerPage
	}
	return p
}

// Offset is the number of rows to skip for the current page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Limit is the page size, for symmetry with SQL LIMIT/OFFSET.
func (p Params) Limit() int {
	return p.PerPage
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
