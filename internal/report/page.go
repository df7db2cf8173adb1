package report

import (
	"github.com/raaihank/link-sentinel/internal/source"
)

// DefaultPageSize is the number of locations shown per page
const DefaultPageSize = 25

// Ellipsis marks a gap in a page window
const Ellipsis = 0

// Page is one slice of an audit report
type Page struct {
	Items        []source.Location `json:"items"`
	StartIndex   int               `json:"start_index"`
	EndIndex     int               `json:"end_index"`
	TotalItems   int               `json:"total_items"`
	TotalPages   int               `json:"total_pages"`
	CurrentPage  int               `json:"current_page"`
	ShowControls bool              `json:"show_controls"`
	Window       PageWindow        `json:"window"`
}

// PageWindow lists the page links to render around the current page
type PageWindow struct {
	Pages   []int `json:"pages"`
	HasPrev bool  `json:"has_prev"`
	HasNext bool  `json:"has_next"`
}

// Paginate returns page (1-based) of locations. The page is not clamped: an
// out-of-range page yields no items. A size below 1 uses DefaultPageSize.
func Paginate(locations []source.Location, page, size int) Page {
	if size < 1 {
		size = DefaultPageSize
	}

	total := len(locations)
	totalPages := (total + size - 1) / size

	p := Page{
		Items:        []source.Location{},
		TotalItems:   total,
		TotalPages:   totalPages,
		CurrentPage:  page,
		ShowControls: totalPages > 1,
		Window:       Window(page, totalPages),
	}

	start := (page - 1) * size
	if start < 0 || start >= total {
		p.StartIndex = max(start, 0)
		p.EndIndex = p.StartIndex
		return p
	}

	end := min(start+size, total)
	p.StartIndex = start
	p.EndIndex = end
	p.Items = locations[start:end]
	return p
}

// Window returns current ± 2 plus the first and last page, with Ellipsis
// where the run skips pages
func Window(current, totalPages int) PageWindow {
	w := PageWindow{
		Pages:   []int{},
		HasPrev: current > 1,
		HasNext: current < totalPages,
	}
	if totalPages < 1 {
		return w
	}

	start := max(1, current-2)
	end := min(totalPages, current+2)

	if start > 1 {
		w.Pages = append(w.Pages, 1)
		if start > 2 {
			w.Pages = append(w.Pages, Ellipsis)
		}
	}
	for i := start; i <= end; i++ {
		w.Pages = append(w.Pages, i)
	}
	if end < totalPages {
		if end < totalPages-1 {
			w.Pages = append(w.Pages, Ellipsis)
		}
		w.Pages = append(w.Pages, totalPages)
	}

	return w
}
