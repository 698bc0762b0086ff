package selection

import "github.com/immxrtalbeast/globe_rooms/internal/domain"

const PageSize = 5

type PageInfo struct {
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Total int `json:"total"`
	Size  int `json:"size"`
}

type Page struct {
	Items []domain.Opportunity `json:"items"`
	Info  PageInfo             `json:"info"`
}

// Paginate slices items into pages of PageSize. Out-of-range pages are clamped.
func Paginate(items []domain.Opportunity, page int) Page {
	pages := (len(items) + PageSize - 1) / PageSize
	page = clampPage(page, pages)

	start := (page - 1) * PageSize
	end := min(start+PageSize, len(items))
	if start > end {
		start = end
	}

	out := make([]domain.Opportunity, end-start)
	copy(out, items[start:end])
	return Page{
		Items: out,
		Info:  PageInfo{Page: page, Pages: max(pages, 1), Total: len(items), Size: PageSize},
	}
}

func clampPage(page, pages int) int {
	if page > pages {
		page = pages
	}
	if page < 1 {
		page = 1
	}
	return page
}
