// Package pagination implements keyset pagination over snowflake primary
// keys. IDs are time-ordered, so walking them descending pages newest-first
// without OFFSET scans.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/bwmarrin/snowflake"
)

const (
	defaultPageSize = 50
	maxPageSize     = 250
)

var ErrInvalidPageToken = errors.New("invalid_page_token")

// Pagination is the query-string shape list endpoints bind.
type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

// Limit returns the page size clamped to [1, maxPageSize].
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return defaultPageSize
	}
	if p.PageSize > maxPageSize {
		return maxPageSize
	}
	return p.PageSize
}

// After decodes the page token into the exclusive lower bound ID. A zero ID
// means the first page.
func (p Pagination) After() (snowflake.ID, error) {
	token := p.PageToken
	if token == "" {
		return 0, nil
	}

	b, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return 0, ErrInvalidPageToken
	}
	var cursor struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &cursor); err != nil {
		return 0, ErrInvalidPageToken
	}
	id, err := snowflake.ParseString(cursor.ID)
	if err != nil || id == 0 {
		return 0, ErrInvalidPageToken
	}
	return id, nil
}

// PageInfo is returned alongside a page of results.
type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

func encodeToken(id snowflake.ID) string {
	b, _ := json.Marshal(struct {
		ID string `json:"id"`
	}{ID: id.String()})
	return base64.StdEncoding.EncodeToString(b)
}

// Trim cuts an over-fetched result set down to limit and builds its
// PageInfo. Callers fetch limit+1 rows so HasMore needs no second query.
func Trim[T any](items []T, limit int, id func(T) snowflake.ID) ([]T, PageInfo) {
	if len(items) <= limit {
		return items, PageInfo{HasMore: false}
	}
	items = items[:limit]
	return items, PageInfo{
		HasMore:       true,
		NextPageToken: encodeToken(id(items[len(items)-1])),
	}
}
