package domain

import (
	"fmt"
	"strings"
)

// Direction is the ordering applied to a sort field
type Direction string

const (
	DirectionAsc  Direction = "ASC"
	DirectionDesc Direction = "DESC"
)

// ParseDirection accepts asc/desc in any case and defaults to ascending
func ParseDirection(value string) (Direction, bool) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "", string(DirectionAsc):
		return DirectionAsc, true
	case string(DirectionDesc):
		return DirectionDesc, true
	default:
		return DirectionAsc, false
	}
}

// SortOrder is one (field, direction) pair of a sort request
type SortOrder struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

func (o SortOrder) String() string {
	return o.Field + "," + string(o.Direction)
}

// PageRequest represents a zero-based page of the catalog
type PageRequest struct {
	Page int         `json:"page"`
	Size int         `json:"size"`
	Sort []SortOrder `json:"sort,omitempty"`
}

// Offset returns the number of records skipped before this page
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// IsSorted reports whether any sort order is requested
func (p PageRequest) IsSorted() bool {
	return len(p.Sort) > 0
}

// SortString renders the sort orders, "UNSORTED" when there are none
func (p PageRequest) SortString() string {
	if !p.IsSorted() {
		return "UNSORTED"
	}
	parts := make([]string, 0, len(p.Sort))
	for _, order := range p.Sort {
		parts = append(parts, order.String())
	}
	return strings.Join(parts, ";")
}

// CacheKey identifies the listing for this page, size and sort
func (p PageRequest) CacheKey() string {
	return fmt.Sprintf("spaceships:page=%d:size=%d:sort=%s", p.Page, p.Size, p.SortString())
}

// SpaceshipPage is one page of spaceships plus totals
type SpaceshipPage struct {
	Content       []Spaceship `json:"content"`
	Number        int         `json:"number"`
	Size          int         `json:"size"`
	TotalElements int64       `json:"total_elements"`
	TotalPages    int         `json:"total_pages"`
}

// NewSpaceshipPage builds a page and derives TotalPages from the request size
func NewSpaceshipPage(content []Spaceship, req PageRequest, total int64) *SpaceshipPage {
	if content == nil {
		content = []Spaceship{}
	}

	totalPages := 0
	if req.Size > 0 {
		totalPages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}

	return &SpaceshipPage{
		Content:       content,
		Number:        req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    totalPages,
	}
}

// IsEmpty reports whether the page carries no spaceships
func (p *SpaceshipPage) IsEmpty() bool {
	return len(p.Content) == 0
}
