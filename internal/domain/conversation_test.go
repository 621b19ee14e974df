package domain

import "testing"

func TestNewParticipants_Unordered(t *testing.T) {
	a := NewParticipants("u2", "u1")
	b := NewParticipants("u1", "u2")
	if a != b {
		t.Fatalf("expected same pair, got %v and %v", a, b)
	}
	if a[0] != "u1" || a[1] != "u2" {
		t.Fatalf("expected sorted pair, got %v", a)
	}
}

func TestParticipantsOtherAndContains(t *testing.T) {
	p := NewParticipants("buyer", "seller")

	other, ok := p.Other("buyer")
	if !ok || other != "seller" {
		t.Fatalf("expected seller, got %q %v", other, ok)
	}
	other, ok = p.Other("seller")
	if !ok || other != "buyer" {
		t.Fatalf("expected buyer, got %q %v", other, ok)
	}
	if _, ok := p.Other("stranger"); ok {
		t.Fatalf("expected no other participant for stranger")
	}
	if p.Contains("") || p.Contains("stranger") || !p.Contains("buyer") {
		t.Fatalf("unexpected Contains result")
	}
}

func TestParticipantsValid(t *testing.T) {
	cases := []struct {
		p    Participants
		want bool
	}{
		{NewParticipants("a", "b"), true},
		{NewParticipants("a", "a"), false},
		{NewParticipants("", "b"), false},
	}
	for i, c := range cases {
		if got := c.p.Valid(); got != c.want {
			t.Fatalf("case %d: expected %v, got %v", i, c.want, got)
		}
	}
}
