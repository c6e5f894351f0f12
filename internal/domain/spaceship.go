package domain

import (
	"fmt"
	"strings"
)

// Spaceship represents a catalog record. Name is the uniqueness key.
type Spaceship struct {
	ID     int64  `json:"id,omitempty"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Source string `json:"source"`
}

// NewSpaceship creates a spaceship that has not been persisted yet
func NewSpaceship(name, shipType, source string) *Spaceship {
	return &Spaceship{
		Name:   name,
		Type:   shipType,
		Source: source,
	}
}

// IsNew reports whether the spaceship still lacks a store-assigned ID
func (s *Spaceship) IsNew() bool {
	return s.ID == 0
}

// Validate checks the required fields and reports every missing one at once
func (s *Spaceship) Validate() error {
	fields := make(map[string]string)

	if strings.TrimSpace(s.Name) == "" {
		fields["name"] = "Name is required"
	}
	if strings.TrimSpace(s.Type) == "" {
		fields["type"] = "Type is required"
	}
	if strings.TrimSpace(s.Source) == "" {
		fields["source"] = "Source is required"
	}

	if len(fields) > 0 {
		return NewValidationError(fields)
	}
	return nil
}

// Notification texts recorded in the audit trail

// CreatedMessage describes a newly stored spaceship
func CreatedMessage(s *Spaceship) string {
	return fmt.Sprintf("Created spaceship: %s", s.Name)
}

// UpdatedMessage describes a replaced spaceship
func UpdatedMessage(s *Spaceship) string {
	return fmt.Sprintf("Updated spaceship: %s", s.Name)
}

// DeletedMessage describes a removed spaceship
func DeletedMessage(id int64) string {
	return fmt.Sprintf("Deleted spaceship with ID: %d", id)
}
