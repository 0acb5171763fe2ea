package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		query string
		want  Params
	}{
		{"", Params{Page: 1, PerPage: 20}},
		{"?page=3&per_page=10", Params{Page: 3, PerPage: 10}},
		{"?page=0&per_page=500", Params{Page: 1, PerPage: 20}},
		{"?page=abc&per_page=-1", Params{Page: 1, PerPage: 20}},
	}
	for _, tt := range tests {
		p := FromRequest(httptest.NewRequest(http.MethodGet, "/api/v1/wishlists"+tt.query, nil))
		assert.Equal(t, tt.want, p, tt.query)
	}
}

func TestParams_OffsetLimit(t *testing.T) {
	p := Params{Page: 3, PerPage: 25}
	assert.Equal(t, 50, p.Offset())
	assert.Equal(t, 25, p.Limit())
}

func TestNewResult(t *testing.T) {
	r := NewResult[string](nil, 41, Params{Page: 2, PerPage: 20})
	assert.Equal(t, []string{}, r.Data)
	assert.Equal(t, 3, r.TotalPages)
	assert.True(t, r.HasNext)
	assert.True(t, r.HasPrev)

	empty := NewResult([]int{}, 0, DefaultParams())
	assert.Equal(t, 0, empty.TotalPages)
	assert.False(t, empty.HasNext)
}

func TestNewResult_PagesCoverTotal(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.IntRange(0, 10_000).Draw(t, "total")
		perPage := rapid.IntRange(1, MaxPerPage).Draw(t, "perPage")

		r := NewResult[int](nil, total, Params{Page: 1, PerPage: perPage})
		if r.TotalPages*perPage < total {
			t.Fatalf("%d pages of %d do not cover %d rows", r.TotalPages, perPage, total)
		}
		if r.TotalPages > 0 && (r.TotalPages-1)*perPage >= total {
			t.Fatalf("last page of %d would be empty", r.TotalPages)
		}
	})
}
