package events

import (
	"regexp"
	"testing"
)

func TestDeterministicIDStable(t *testing.T) {
	first := DeterministicID("city-thornton", "harvest-fest", "2026-09-19T16:00:00Z")
	second := DeterministicID("city-thornton", "harvest-fest", "2026-09-19T16:00:00Z")

	if first != second {
		t.Errorf("Expected identical IDs for identical input, got %s and %s", first, second)
	}
}

func TestDeterministicIDFormat(t *testing.T) {
	id := DeterministicID("anythink", "storytime")

	uuidPattern := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	if !uuidPattern.MatchString(id) {
		t.Errorf("Expected UUID-formatted ID, got: %s", id)
	}
}

func TestDeterministicIDDistinguishesParts(t *testing.T) {
	tests := []struct {
		name  string
		left  []string
		right []string
	}{
		{
			name:  "Different source",
			left:  []string{"city-thornton", "harvest-fest", "2026-09-19T16:00:00Z"},
			right: []string{"anythink", "harvest-fest", "2026-09-19T16:00:00Z"},
		},
		{
			name:  "Different title",
			left:  []string{"city-thornton", "harvest-fest", "2026-09-19T16:00:00Z"},
			right: []string{"city-thornton", "winter-fest", "2026-09-19T16:00:00Z"},
		},
		{
			name:  "Different start time disambiguates recurring events",
			left:  []string{"anythink", "storytime", "2026-01-10T10:00:00Z"},
			right: []string{"anythink", "storytime", "2026-01-17T10:00:00Z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if DeterministicID(tt.left...) == DeterministicID(tt.right...) {
				t.Errorf("Expected different IDs for %v and %v", tt.left, tt.right)
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Trunk or Treat at Anythink", "trunk-or-treat-at-anythink"},
		{"Harvest Fest 2026!", "harvest-fest-2026"},
		{"  Café  Night  ", "cafe-night"},
		{"---", ""},
		{"Movie @ the Park", "movie-the-park"},
	}

	for _, tt := range tests {
		if got := Slugify(tt.input); got != tt.expected {
			t.Errorf("Slugify(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}
