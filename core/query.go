package core

import "math"

const (
	defaultPageNumber = 1
	defaultLimit      = 10

	SortAscending  = 1
	SortDescending = -1
)

// ListParams is the generic query-parameter bag accepted by every list
// endpoint. Keyword searches the entity's canonical name field;
// FieldName/FieldValue filter against a per-entity allow-list; unknown field
// names are ignored rather than rejected.
type ListParams struct {
	Keyword    string `query:"keyword"`
	FieldName  string `query:"fieldName"`
	FieldValue string `query:"fieldValue"`
	SortBy     string `query:"sortBy"`
	SortOrder  int    `query:"sortOrder"` // 1 ascending, -1 descending, 0 unset
	PageNumber int    `query:"pageNumber"`
	Limit      int    `query:"limit"`
}

// Clean normalizes free-text inputs and applies pagination defaults.
func (p *ListParams) Clean() {
	p.Keyword = CleanString(p.Keyword)
	p.FieldName = CleanString(p.FieldName)
	p.FieldValue = CleanString(p.FieldValue)
	p.SortBy = CleanString(p.SortBy)
	if p.SortOrder != SortAscending && p.SortOrder != SortDescending {
		p.SortOrder = 0
	}
	if p.PageNumber < 1 {
		p.PageNumber = defaultPageNumber
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
}

func (p ListParams) Offset() int {
	return (p.PageNumber - 1) * p.Limit
}

// PageInfo describes a paginated result set. TotalCount is computed over the
// filtered-but-unpaginated set so callers can derive the page count.
type PageInfo struct {
	TotalCount int64 `json:"totalCount"`
	PageNumber int   `json:"pageNumber"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

func NewPageInfo(total int64, params ListParams) PageInfo {
	return PageInfo{
		TotalCount: total,
		PageNumber: params.PageNumber,
		Limit:      params.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(params.Limit))),
	}
}
