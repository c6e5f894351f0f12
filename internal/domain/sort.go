package domain

// SortableFields are the columns a listing may be ordered by
var SortableFields = []string{"id", "name", "type", "source"}

// SortWhitelist drops sort orders on fields outside a fixed set. Rejected
// fields are ignored rather than failing the request.
type SortWhitelist struct {
	allowed map[string]struct{}
}

// NewSortWhitelist creates a whitelist for the given fields
func NewSortWhitelist(fields ...string) SortWhitelist {
	allowed := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		allowed[field] = struct{}{}
	}
	return SortWhitelist{allowed: allowed}
}

// DefaultSortWhitelist allows the spaceship columns
var DefaultSortWhitelist = NewSortWhitelist(SortableFields...)

// Allows reports whether field may be sorted on
func (w SortWhitelist) Allows(field string) bool {
	_, ok := w.allowed[field]
	return ok
}

// Filter keeps the allowed orders in the caller's order. A nil result means
// unsorted.
func (w SortWhitelist) Filter(requested []SortOrder) []SortOrder {
	var filtered []SortOrder
	for _, order := range requested {
		if !w.Allows(order.Field) {
			continue
		}
		if order.Direction == "" {
			order.Direction = DirectionAsc
		}
		filtered = append(filtered, order)
	}
	return filtered
}

// Apply returns req with its sort filtered; page and size pass through.
func (w SortWhitelist) Apply(req PageRequest) PageRequest {
	return PageRequest{
		Page: req.Page,
		Size: req.Size,
		Sort: w.Filter(req.Sort),
	}
}
