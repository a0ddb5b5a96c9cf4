package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func broker(name string) BrokerRef {
	return BrokerRef{ID: uuid.New(), Nome: name, Role: "corretor"}
}

func TestAssignNextVisitsEveryParticipantOnceThenWraps(t *testing.T) {
	r := Roulette{
		Participants:      []BrokerRef{broker("A"), broker("B"), broker("C"), broker("D")},
		LastAssignedIndex: -1,
	}

	seen := make(map[uuid.UUID]int)
	for i := 0; i < len(r.Participants); i++ {
		assignee, updated, err := AssignNext(r)
		if err != nil {
			t.Fatalf("unexpected error on call %d: %v", i, err)
		}
		if updated.LastAssignedIndex != i {
			t.Fatalf("expected cursor %d, got %d", i, updated.LastAssignedIndex)
		}
		if assignee.ID != r.Participants[i].ID {
			t.Fatalf("call %d assigned out of list order", i)
		}
		seen[assignee.ID]++
		r = updated
	}

	for id, count := range seen {
		if count != 1 {
			t.Fatalf("participant %s served %d times in one cycle", id, count)
		}
	}

	assignee, updated, err := AssignNext(r)
	if err != nil {
		t.Fatalf("unexpected error on wrap: %v", err)
	}
	if updated.LastAssignedIndex != 0 {
		t.Fatalf("expected wrap to cursor 0, got %d", updated.LastAssignedIndex)
	}
	if assignee.ID != r.Participants[0].ID {
		t.Fatalf("expected wrap to first participant")
	}
}

func TestAssignNextExampleScenario(t *testing.T) {
	a, b, c := broker("A"), broker("B"), broker("C")
	r := Roulette{Participants: []BrokerRef{a, b, c}, LastAssignedIndex: 1}

	assignee, updated, err := AssignNext(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assignee.ID != c.ID {
		t.Fatalf("expected C, got %s", assignee.Nome)
	}
	if updated.LastAssignedIndex != 2 {
		t.Fatalf("expected cursor 2, got %d", updated.LastAssignedIndex)
	}

	assignee, updated, err = AssignNext(updated)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assignee.ID != a.ID {
		t.Fatalf("expected wrap to A, got %s", assignee.Nome)
	}
	if updated.LastAssignedIndex != 0 {
		t.Fatalf("expected cursor 0, got %d", updated.LastAssignedIndex)
	}
}

func TestAssignNextEmptyRotation(t *testing.T) {
	_, _, err := AssignNext(Roulette{LastAssignedIndex: -1})
	if err == nil {
		t.Fatalf("expected error for empty participant list")
	}
}

func TestIsActiveAtInclusiveBounds(t *testing.T) {
	from := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	until := time.Date(2025, 3, 31, 18, 0, 0, 0, time.UTC)
	r := Roulette{Ativa: true, ValidFrom: &from, ValidUntil: &until}

	if !r.IsActiveAt(from) {
		t.Fatalf("expected validFrom boundary to be inclusive")
	}
	if !r.IsActiveAt(until) {
		t.Fatalf("expected validUntil boundary to be inclusive")
	}
	if r.IsActiveAt(from.Add(-time.Second)) {
		t.Fatalf("expected instant before window to be excluded")
	}
	if r.IsActiveAt(until.Add(time.Second)) {
		t.Fatalf("expected instant after window to be excluded")
	}
}

func TestResolveActiveReturnsNilOutsideEveryWindow(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-48 * time.Hour)
	pastEnd := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	roulettes := []Roulette{
		{Ativa: true, ValidFrom: &past, ValidUntil: &pastEnd},
		{Ativa: true, ValidFrom: &future},
		{Ativa: false},
	}

	if got := ResolveActive(roulettes, uuid.New(), now); got != nil {
		t.Fatalf("expected no active roulette, got %q", got.Nome)
	}
}

func TestResolveActivePrefersUnwindowedOverExpired(t *testing.T) {
	now := time.Now()
	yesterday := now.Add(-24 * time.Hour)

	expired := Roulette{ID: uuid.New(), Nome: "campaign", Ativa: true, ValidUntil: &yesterday, CreatedAt: now}
	open := Roulette{ID: uuid.New(), Nome: "standing", Ativa: true, CreatedAt: now.Add(-time.Hour)}

	got := ResolveActive([]Roulette{expired, open}, uuid.New(), now)
	if got == nil {
		t.Fatalf("expected a roulette to resolve")
	}
	if got.ID != open.ID {
		t.Fatalf("expected the unwindowed roulette, got %q", got.Nome)
	}
}

func TestResolveActiveTieBreakMostRecentlyCreated(t *testing.T) {
	now := time.Now()
	older := Roulette{ID: uuid.New(), Nome: "older", Ativa: true, CreatedAt: now.Add(-time.Hour)}
	newer := Roulette{ID: uuid.New(), Nome: "newer", Ativa: true, CreatedAt: now.Add(-time.Minute)}

	got := ResolveActive([]Roulette{older, newer}, uuid.New(), now)
	if got == nil || got.ID != newer.ID {
		t.Fatalf("expected most recently created roulette to win the tie-break")
	}

	// Order of the input slice must not matter.
	got = ResolveActive([]Roulette{newer, older}, uuid.New(), now)
	if got == nil || got.ID != newer.ID {
		t.Fatalf("expected tie-break to be independent of list order")
	}
}

func TestResolveActiveEqualTimestampsFallBackToID(t *testing.T) {
	// Batch inserts and second-precision clocks produce identical
	// creation timestamps; the ID comparison keeps the winner stable.
	createdAt := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	a := Roulette{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), Nome: "a", Ativa: true, CreatedAt: createdAt}
	b := Roulette{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), Nome: "b", Ativa: true, CreatedAt: createdAt}

	first := ResolveActive([]Roulette{a, b}, uuid.New(), createdAt)
	second := ResolveActive([]Roulette{b, a}, uuid.New(), createdAt)
	if first == nil || second == nil {
		t.Fatalf("expected a roulette to resolve")
	}
	if first.ID != second.ID {
		t.Fatalf("tie-break depends on input order: %q vs %q", first.Nome, second.Nome)
	}
	if first.ID != b.ID {
		t.Fatalf("expected the higher ID to win the timestamp tie, got %q", first.Nome)
	}
}

func TestResolveActiveRespectsFunnelBinding(t *testing.T) {
	now := time.Now()
	funnelA := uuid.New()
	funnelB := uuid.New()

	bound := Roulette{ID: uuid.New(), Ativa: true, FunnelID: &funnelA, CreatedAt: now}
	unbound := Roulette{ID: uuid.New(), Ativa: true, CreatedAt: now.Add(-time.Hour)}

	got := ResolveActive([]Roulette{bound, unbound}, funnelB, now)
	if got == nil || got.ID != unbound.ID {
		t.Fatalf("expected roulette bound to another funnel to be skipped")
	}

	got = ResolveActive([]Roulette{bound, unbound}, funnelA, now)
	if got == nil || got.ID != bound.ID {
		t.Fatalf("expected bound roulette to serve its own funnel")
	}
}

func TestClampCursor(t *testing.T) {
	cases := []struct {
		name  string
		last  int
		count int
		want  int
	}{
		{"empty list resets", 2, 0, -1},
		{"past new length", 5, 3, 2},
		{"within bounds unchanged", 1, 3, 1},
		{"never assigned unchanged", -1, 3, -1},
		{"below floor resets", -7, 3, -1},
	}

	for _, tc := range cases {
		if got := ClampCursor(tc.last, tc.count); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}
