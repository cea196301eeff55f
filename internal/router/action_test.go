package router

import (
	"errors"
	"testing"
)

func TestParseAction_Valid(t *testing.T) {
	tests := []struct {
		token  string
		verb   Verb
		entity Entity
		id     string
	}{
		{"approve:booking:abc123", VerbApprove, EntityBooking, "abc123"},
		{"reject:booking:abc123", VerbReject, EntityBooking, "abc123"},
		{"confirm:order:o-1", VerbConfirm, EntityOrder, "o-1"},
		{"cancel:order:o-1", VerbCancel, EntityOrder, "o-1"},
		{"send:location:0", VerbSend, EntityLocation, "0"},
		{"send:payment:0", VerbSend, EntityPayment, "0"},
		{"open:category:7", VerbOpen, EntityCategory, "7"},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			a, err := ParseAction(tt.token)
			if err != nil {
				t.Fatalf("ParseAction(%q): %v", tt.token, err)
			}
			if a.Verb != tt.verb || a.Entity != tt.entity || a.ID != tt.id {
				t.Fatalf("ParseAction(%q) = %+v", tt.token, a)
			}
		})
	}
}

func TestParseAction_Malformed(t *testing.T) {
	tokens := []string{
		"",
		"approve",
		"approve:booking",
		"approve:booking:id:extra",
		"approve:order:id",  // глагол не сочетается с сущностью
		"explode:booking:id",
		"confirm:booking:id",
		"approve:booking:",
	}

	for _, token := range tokens {
		if _, err := ParseAction(token); !errors.Is(err, ErrMalformedAction) {
			t.Fatalf("ParseAction(%q) must fail with ErrMalformedAction, got %v", token, err)
		}
	}
}

func TestActionToken_RoundTrip(t *testing.T) {
	a := Action{Verb: VerbPrepare, Entity: EntityOrder, ID: "o-42"}

	parsed, err := ParseAction(a.Token())
	if err != nil {
		t.Fatalf("ParseAction: %v", err)
	}
	if parsed != a {
		t.Fatalf("round trip: got %+v, want %+v", parsed, a)
	}
}
