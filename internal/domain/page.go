package domain

// PageRequest selects a 1-based page of PerPage items.
type PageRequest struct {
	Page    int
	PerPage int
}

// Offset returns the number of rows preceding the requested page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Pagination describes where a page sits within the full result set.
type Pagination struct {
	Page       int
	Pages      int
	TotalCount int
	PrevPage   *int
	NextPage   *int
	HasPrev    bool
	HasNext    bool
}

// NewPagination computes the pagination metadata for a page of a result set holding total items.
func NewPagination(req PageRequest, total int) Pagination {
	pages := 0
	if req.PerPage > 0 && total > 0 {
		pages = (total + req.PerPage - 1) / req.PerPage
	}

	p := Pagination{
		Page:       req.Page,
		Pages:      pages,
		TotalCount: total,
		HasPrev:    req.Page > 1,
		HasNext:    req.Page < pages,
	}
	if p.HasPrev {
		prev := req.Page - 1
		p.PrevPage = &prev
	}
	if p.HasNext {
		next := req.Page + 1
		p.NextPage = &next
	}
	return p
}
