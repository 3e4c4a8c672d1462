package params

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 15
	MaxLimit     = 50
)

// Limits bounds the page size a list endpoint accepts. The zero value uses
// DefaultLimit and MaxLimit.
type Limits struct {
	Default int
	Max     int
}

// Pagination maps ?page=&limit= onto LIMIT/OFFSET and, once the total is
// known, the navigation metadata returned next to list results.
type Pagination struct {
	Limit      int  `json:"limit"`
	Offset     int  `json:"offset"`
	Page       int  `json:"page"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

func (l Limits) normalized() Limits {
	if l.Max <= 0 {
		l.Max = MaxLimit
	}
	if l.Default <= 0 {
		l.Default = DefaultLimit
	}
	if l.Default > l.Max {
		l.Default = l.Max
	}
	return l
}

// Parse reads limit and page (keys are case sensitive). Values that are not
// positive integers fall back to defaults; limit is capped at l.Max and the
// offset is capped so it cannot overflow.
func (l Limits) Parse(q url.Values) Pagination {
	l = l.normalized()
	p := Pagination{Limit: l.Default, Page: 1}

	if limit, ok := positiveInt(q.Get("limit")); ok {
		p.Limit = min(limit, l.Max)
	}
	if page, ok := positiveInt(q.Get("page")); ok {
		p.Page = min(page, math.MaxInt/p.Limit)
	}

	p.Offset = (p.Page - 1) * p.Limit
	return p
}

func positiveInt(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ComputeMeta fills the metadata from the total row count.
func (p *Pagination) ComputeMeta(total int) {
	p.Total = total
	if p.Limit > 0 {
		p.TotalPages = int(math.Ceil(float64(total) / float64(p.Limit)))
	}
	p.HasPrev = p.Page > 1
	p.HasNext = p.Offset+p.Limit < total
}
