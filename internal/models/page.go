package models

// SortOrder is one key of a multi-key sort.
type SortOrder struct {
	Field string
	Desc  bool
}

// PageRequest describes a 0-based page of results.
type PageRequest struct {
	Page int
	Size int
	Sort []SortOrder
}

// Offset returns the number of rows to skip.
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// WithDefaultSort returns p with sort set to def when the caller gave none.
func (p PageRequest) WithDefaultSort(def ...SortOrder) PageRequest {
	if len(p.Sort) == 0 {
		p.Sort = def
	}
	return p
}

// Page is one page of results together with the totals needed for navigation.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"total_elements"`
	TotalPages    int   `json:"total_pages"`
}

// NewPage assembles a Page from a slice of results and the overall count.
func NewPage[T any](content []T, req PageRequest, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	pages := 0
	if req.Size > 0 {
		pages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{
		Content:       content,
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    pages,
	}
}

// MapPage converts the content of a page, keeping its paging metadata.
func MapPage[T, R any](p Page[T], fn func(T) R) Page[R] {
	out := make([]R, 0, len(p.Content))
	for _, v := range p.Content {
		out = append(out, fn(v))
	}
	return Page[R]{
		Content:       out,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
	}
}

// Sortable fields accepted by the card and transfer listings.
var (
	CardSortFields     = []string{"id", "balance", "expiryDate", "status", "createdAt"}
	TransferSortFields = []string{"id", "amount", "status", "createdAt"}
)

// SortFieldAllowed reports whether field appears in allowed.
func SortFieldAllowed(field string, allowed []string) bool {
	for _, f := range allowed {
		if f == field {
			return true
		}
	}
	return false
}
