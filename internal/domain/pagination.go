package domain

// Page holds offset-based pagination parameters for list queries.
// From is the number of rows to skip, Size the maximum number of rows returned.
type Page struct {
	From int
	Size int
}

// Slice returns the [from, min(from+size, total)) bounds of the page over a
// result set of total items. When From is beyond total both bounds equal total.
func (p Page) Slice(total int) (start, end int) {
	start = p.From
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end = start + p.Size
	if p.Size < 0 || end > total {
		end = total
	}
	return start, end
}
