// Package pagination reads page/limit query parameters for list endpoints.
package pagination

import (
	"garmentflow/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Query is the raw page/limit pair bound from the query string
type Query struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

// Params is a clamped page with its row offset
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Parse binds page and limit from the request. A malformed query falls back
// to the first page at the default size.
func Parse(c *gin.Context) Params {
	var q Query
	if err := c.ShouldBindQuery(&q); err != nil {
		return New(DefaultPage, DefaultLimit)
	}
	return New(q.Page, q.Limit)
}

// New clamps page to at least 1 and limit into [1, MaxLimit], using the
// default size when limit is unset
func New(page, limit int) Params {
	if page < 1 {
		page = DefaultPage
	}
	switch {
	case limit < 1:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	return Params{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

// Wrap packs one page of results with its position in the full list
func (p Params) Wrap(items interface{}, total int64) response.Paged {
	return response.Paged{Items: items, Total: total, Page: p.Page, Limit: p.Limit}
}
