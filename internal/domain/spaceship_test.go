package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewSpaceship(t *testing.T) {
	ship := NewSpaceship("Enterprise", "Starship", "Star Trek")

	if ship.Name != "Enterprise" {
		t.Errorf("Expected name %s, got %s", "Enterprise", ship.Name)
	}

	if ship.Type != "Starship" {
		t.Errorf("Expected type %s, got %s", "Starship", ship.Type)
	}

	if ship.Source != "Star Trek" {
		t.Errorf("Expected source %s, got %s", "Star Trek", ship.Source)
	}

	if !ship.IsNew() {
		t.Error("Expected new spaceship to have no ID")
	}
}

func TestSpaceship_Validate(t *testing.T) {
	ship := NewSpaceship("Enterprise", "Starship", "Star Trek")
	if err := ship.Validate(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestSpaceship_ValidateReportsEveryBlankField(t *testing.T) {
	ship := NewSpaceship("  ", "", "Star Trek")

	err := ship.Validate()
	if err == nil {
		t.Fatal("Expected validation error for blank name and type")
	}

	if !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}

	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("Expected *DomainError, got %T", err)
	}

	if domainErr.Fields["name"] != "Name is required" {
		t.Errorf("Expected name message, got %q", domainErr.Fields["name"])
	}

	if domainErr.Fields["type"] != "Type is required" {
		t.Errorf("Expected type message, got %q", domainErr.Fields["type"])
	}

	if _, ok := domainErr.Fields["source"]; ok {
		t.Error("Expected no message for a present source")
	}
}

func TestNotificationMessages(t *testing.T) {
	ship := &Spaceship{ID: 7, Name: "Serenity"}

	if got := CreatedMessage(ship); got != "Created spaceship: Serenity" {
		t.Errorf("Unexpected created message %q", got)
	}

	if got := UpdatedMessage(ship); got != "Updated spaceship: Serenity" {
		t.Errorf("Unexpected updated message %q", got)
	}

	if got := DeletedMessage(7); got != "Deleted spaceship with ID: 7" {
		t.Errorf("Unexpected deleted message %q", got)
	}
}

func TestDomainError_IsMatchesKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("failed to save spaceship: %w", NewConflictError(errors.New("duplicate key")))

	if !errors.Is(err, ErrConflict) {
		t.Error("Expected wrapped conflict to match ErrConflict")
	}

	if errors.Is(err, ErrNotFound) {
		t.Error("Did not expect conflict to match ErrNotFound")
	}

	if KindOf(err) != KindConflict {
		t.Errorf("Expected kind %s, got %s", KindConflict, KindOf(err))
	}

	if KindOf(errors.New("boom")) != "" {
		t.Error("Expected empty kind for a plain error")
	}
}

func TestNewIntegrityViolation(t *testing.T) {
	tests := []struct {
		field    string
		expected string
	}{
		{"name", "The name field cannot be null. Please provide a valid name."},
		{"type", "The type field cannot be null. Please provide a valid type."},
		{"source", "The source field cannot be null. Please provide a valid source."},
		{"id", "Data integrity violation."},
		{"", "Data integrity violation."},
	}

	for _, tt := range tests {
		err := NewIntegrityViolation(tt.field, nil)
		if err.Message != tt.expected {
			t.Errorf("field %q: expected %q, got %q", tt.field, tt.expected, err.Message)
		}
		if !errors.Is(err, ErrIntegrityViolation) {
			t.Errorf("field %q: expected ErrIntegrityViolation", tt.field)
		}
	}
}
