package keyboard

import (
	"fmt"
	"strconv"
)

// PageSize is how many lots one list page shows.
const PageSize = 10

// Pages returns the page count for total items, at least 1.
func Pages(total int) int {
	if total <= 0 {
		return 1
	}
	return (total + PageSize - 1) / PageSize
}

// PageBounds clamps page into [1, pages] and returns the slice bounds for it.
func PageBounds(page, total int) (int, int, int) {
	pages := Pages(total)
	if page < 1 || page > pages {
		page = 1
	}
	from := (page - 1) * PageSize
	to := from + PageSize
	if to > total {
		to = total
	}
	return page, from, to
}

// Neighbours returns the previous and next page numbers. Both wrap around.
func Neighbours(page, pages int) (prev, next int) {
	switch {
	case page+1 > pages:
		return page - 1, 1
	case page-1 < 1:
		return pages, page + 1
	default:
		return page - 1, page + 1
	}
}

// PaginationButtons returns the prev, back and next buttons for a list. Callback data for
// the arrows is prefix plus the page number. A single page yields only the back button.
func PaginationButtons(unique, prefix string, page, pages int, back InlineButton) []InlineButton {
	if pages <= 1 {
		return []InlineButton{back}
	}

	prev, next := Neighbours(page, pages)
	return []InlineButton{
		{Text: fmt.Sprintf("⬅️ %d/%d", prev, pages), Unique: unique, Data: pageData(prefix, prev)},
		back,
		{Text: fmt.Sprintf("➡️ %d/%d", next, pages), Unique: unique, Data: pageData(prefix, next)},
	}
}

func pageData(prefix string, page int) string {
	if prefix == "" {
		return strconv.Itoa(page)
	}
	return Join(prefix, strconv.Itoa(page))
}
