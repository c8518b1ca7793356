// Package utils provides small helpers shared by the HTTP and service layers.
package utils

import "strconv"

// Paging defaults for list endpoints.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

// AtoiDefault returns the integer in s, or def when s is empty or not a
// base-10 int. Whitespace is not trimmed.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ParsePage reads raw page and page_size query values and bounds them to
// [1, ∞) and [1, MaxPageSize]. Missing or malformed values get the defaults.
func ParsePage(page, size string) Page {
	return NewPage(AtoiDefault(page, DefaultPage), AtoiDefault(size, DefaultPageSize))
}

// NewPage bounds an already parsed page request. A non-positive size means
// DefaultPageSize.
func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	switch {
	case size <= 0:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return Page{Number: number, Size: size}
}

// Offset is the number of rows to skip.
func (p Page) Offset() int { return (p.Number - 1) * p.Size }
