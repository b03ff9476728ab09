package service

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Page is the pagination metadata returned with every feed.
//
// CLAMPING:
// Feeds never fail because of a bad page number. A value that is not an
// integer, or is below 1, resolves to the first page; a value past the end
// resolves to the last page. An empty listing still has one (empty) page.
type Page struct {
	Number      int  `json:"number"`
	Size        int  `json:"size"`
	TotalCount  int  `json:"totalCount"`
	NumPages    int  `json:"numPages"`
	HasNext     bool `json:"hasNext"`
	HasPrevious bool `json:"hasPrevious"`
}

// ParsePage converts the raw ?page= value into a requested page number.
// Anything that does not parse as an integer means page 1. An integer too
// large for int saturates, so NewPage still clamps it to the nearest end.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	switch {
	case err == nil:
		return n
	case errors.Is(err, strconv.ErrRange) && strings.HasPrefix(strings.TrimSpace(raw), "-"):
		return math.MinInt
	case errors.Is(err, strconv.ErrRange):
		return math.MaxInt
	}
	return 1
}

// NewPage clamps requested into [1, NumPages] for total items split into
// pages of size.
func NewPage(requested, total, size int) Page {
	if size < 1 {
		size = 1
	}
	if total < 0 {
		total = 0
	}

	numPages := (total + size - 1) / size
	if numPages < 1 {
		numPages = 1
	}

	number := requested
	if number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}

	return Page{
		Number:      number,
		Size:        size,
		TotalCount:  total,
		NumPages:    numPages,
		HasNext:     number < numPages,
		HasPrevious: number > 1,
	}
}

// Offset is the number of items before this page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}
