// Package paginate provides the 0-based page arithmetic used by every task
// list and picker. Page numbers become 1-based only in rendered text and at
// the backend API boundary.
package paginate

// Page describes one clamped window over a list of total items.
type Page struct {
	// Number is the clamped 0-based page number.
	Number int
	// Count is the total number of pages, at least 1 even for empty lists.
	Count int
	// Start and End bound the items on this page: [Start, End).
	Start int
	// End is exclusive.
	End int
	// Size is the requested page size.
	Size int
}

// HasPrev reports whether an earlier page exists.
func (p Page) HasPrev() bool { return p.Number > 0 }

// HasNext reports whether a later page exists.
func (p Page) HasNext() bool { return p.Number < p.Count-1 }

// New computes the window for the requested page. A page outside [0, Count)
// is clamped, never an error, so stale pagination buttons stay safe to press.
func New(total, page, size int) Page {
	if size < 1 {
		size = 1
	}
	if total < 0 {
		total = 0
	}

	count := (total + size - 1) / size
	if count < 1 {
		count = 1
	}

	if page < 0 {
		page = 0
	}
	if page > count-1 {
		page = count - 1
	}

	start := page * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	return Page{
		Number: page,
		Count:  count,
		Start:  start,
		End:    end,
		Size:   size,
	}
}
