// Offset/limit windowing and pure pagination arithmetic.
package query

import "gorm.io/gorm"

// DefaultPageSize is the fallback window size when a caller supplies a
// non-positive page size and does not override the default.
const DefaultPageSize = 15

// Page is a 1-based page request. Zero or negative values are normalized
// rather than producing a negative offset.
type Page struct {
	Page     int
	PageSize int
}

// Normalize clamps the request to page >= 1 and pageSize >= 1, substituting
// defaultSize (or DefaultPageSize when defaultSize <= 0) for a non-positive
// page size.
func (p Page) Normalize(defaultSize int) Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		if defaultSize > 0 {
			p.PageSize = defaultSize
		} else {
			p.PageSize = DefaultPageSize
		}
	}
	return p
}

// Offset returns the number of rows preceding this page.
func (p Page) Offset() int { return (p.Page - 1) * p.PageSize }

// Apply windows tx to this page. Callers should Normalize first; Apply
// normalizes again defensively so a raw Page can never yield a negative
// offset.
func (p Page) Apply(tx *gorm.DB) *gorm.DB {
	p = p.Normalize(0)
	return tx.Offset(p.Offset()).Limit(p.PageSize)
}

// Result is the pagination summary returned alongside a page of rows. All
// fields derive from (total, page, pageSize) alone; no query is involved.
type Result struct {
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
	Page        int   `json:"page"`
	PageSize    int   `json:"page_size"`
	CanPrevious bool  `json:"can_previous"`
	CanNext     bool  `json:"can_next"`
}

// Meta computes the Result for a total row count and a page request.
//
// TotalPages is ceil(total/pageSize); CanNext is true while rows remain
// beyond the current window, i.e. page*pageSize < total.
func Meta(total int64, p Page) Result {
	p = p.Normalize(0)
	totalPages := int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
	return Result{
		Total:       total,
		TotalPages:  totalPages,
		Page:        p.Page,
		PageSize:    p.PageSize,
		CanPrevious: p.Page > 1,
		CanNext:     int64(p.Page)*int64(p.PageSize) < total,
	}
}
