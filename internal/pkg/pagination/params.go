// Package pagination derives page windows from query parameters.
package pagination

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is used when the client omits limit or sends garbage.
	DefaultLimit = 10
	// DefaultMaxLimit caps limit to prevent unbounded pages.
	DefaultMaxLimit = 100
)

// Params is a one-based page window.
type Params struct {
	Page  int
	Limit int
	Skip  int
}

type Options struct {
	DefaultLimit int
	MaxLimit     int
}

// Meta describes the page returned to the client.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Parse reads page and limit. Missing, non-numeric or non-positive values fall
// back to defaults; limit is capped at MaxLimit.
func Parse(values url.Values, opts Options) Params {
	maxLimit := opts.MaxLimit
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	defaultLimit := opts.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}

	page := positive(values.Get("page"), 1)
	limit := positive(values.Get("limit"), defaultLimit)
	if limit > maxLimit {
		limit = maxLimit
	}
	return New(page, limit)
}

// New normalises page and limit and computes Skip.
func New(page, limit int) Params {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	// Skip must not overflow for very large pages.
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}
	return Params{Page: page, Limit: limit, Skip: (page - 1) * limit}
}

// Window returns the [start, end) bounds of the page within total items.
func (p Params) Window(total int) (int, int) {
	start := p.Skip
	if start < 0 || start > total {
		start = total
	}
	end := start + p.Limit
	if end < start || end > total {
		end = total
	}
	return start, end
}

// MetaFor builds page metadata. TotalPages is never below one.
func (p Params) MetaFor(total int) Meta {
	pages := (total + p.Limit - 1) / p.Limit
	if pages < 1 {
		pages = 1
	}
	return Meta{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: pages}
}

func positive(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
