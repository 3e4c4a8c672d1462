package params

import (
	"math"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimits_Parse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		limits     Limits
		query      string
		wantLimit  int
		wantPage   int
		wantOffset int
	}{
		{"zero value uses package defaults", Limits{}, "", DefaultLimit, 1, 0},
		{"page and limit", Limits{}, "limit=10&page=3", 10, 3, 20},
		{"capped at package max", Limits{}, "limit=500", MaxLimit, 1, 0},
		{"non positive falls back", Limits{}, "limit=0&page=0", DefaultLimit, 1, 0},
		{"garbage falls back", Limits{}, "limit=abc&page=-2", DefaultLimit, 1, 0},
		{"keys are case sensitive", Limits{}, "Limit=5", DefaultLimit, 1, 0},
		{"configured default", Limits{Default: 5, Max: 20}, "", 5, 1, 0},
		{"configured max", Limits{Default: 5, Max: 20}, "limit=30&page=2", 20, 2, 20},
		{"default never exceeds max", Limits{Default: 40, Max: 10}, "", 10, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			p := tt.limits.Parse(q)
			assert.Equal(t, tt.wantLimit, p.Limit)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantOffset, p.Offset)
		})
	}
}

func TestLimits_ParseHugePageDoesNotOverflow(t *testing.T) {
	t.Parallel()

	q := url.Values{"page": {strconv.Itoa(math.MaxInt)}, "limit": {"50"}}
	p := Limits{}.Parse(q)
	assert.GreaterOrEqual(t, p.Offset, 0)
}

func TestComputeMeta(t *testing.T) {
	t.Parallel()

	p := Pagination{Limit: 10, Page: 2, Offset: 10}
	p.ComputeMeta(25)

	assert.Equal(t, 25, p.Total)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasPrev)
	assert.True(t, p.HasNext)

	p = Pagination{Limit: 10, Page: 3, Offset: 20}
	p.ComputeMeta(25)
	assert.False(t, p.HasNext)

	p = Pagination{Limit: 10, Page: 1}
	p.ComputeMeta(0)
	assert.Zero(t, p.TotalPages)
	assert.False(t, p.HasPrev)
	assert.False(t, p.HasNext)
}
