package board

import (
	"testing"
	"time"

	"github.com/google/uuid"

	leadrepo "imobcrm_backend/internal/leads/repository"
)

func sampleLeads() []Lead {
	broker := uuid.New()
	tag := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []Lead{
		{
			ID:             uuid.New(),
			NomeCompleto:   "Maria Souza",
			Email:          "maria@example.com",
			Telefone:       "+5511987654321",
			TelefoneDigits: "5511987654321",
			CorretorID:     &broker,
			Tags:           []leadrepo.Tag{{ID: tag, Name: "investidor"}},
			OverallStatus:  "active",
			CreatedAt:      base,
		},
		{
			ID:             uuid.New(),
			NomeCompleto:   "Carlos Pereira",
			Email:          "carlos@example.com",
			Telefone:       "+5521912345678",
			TelefoneDigits: "5521912345678",
			OverallStatus:  "won",
			CreatedAt:      base.AddDate(0, 0, 10),
		},
		{
			ID:             uuid.New(),
			NomeCompleto:   "Ana Lima",
			Email:          "ana.lima@example.com",
			Telefone:       "+5531955554444",
			TelefoneDigits: "5531955554444",
			OverallStatus:  "lost",
			CreatedAt:      base.AddDate(0, 0, 20),
		},
	}
}

func TestEmptyFilterIsIdentity(t *testing.T) {
	leads := sampleLeads()
	got := VisibleLeads(leads, Filter{})
	if len(got) != len(leads) {
		t.Fatalf("empty filter dropped leads: got %d, want %d", len(got), len(leads))
	}
	for i := range leads {
		if got[i].ID != leads[i].ID {
			t.Fatalf("empty filter reordered leads at %d", i)
		}
	}
}

func TestUnsetPredicatesMatchEverything(t *testing.T) {
	leads := sampleLeads()
	filter := Filter{Predicates: []Predicate{
		TextMatch{},
		PhoneDigits{},
		StatusEquals{Status: "all"},
		BrokerEquals{},
		DateRange{},
		TagMembership{},
	}}
	if got := VisibleLeads(leads, filter); len(got) != len(leads) {
		t.Fatalf("all-defaults filter dropped leads: got %d, want %d", len(got), len(leads))
	}
}

func TestConjunctionMonotonicity(t *testing.T) {
	leads := sampleLeads()
	text := TextMatch{Query: "a"}
	status := StatusEquals{Status: "active"}

	textOnly := VisibleLeads(leads, Filter{Predicates: []Predicate{text}})
	statusOnly := VisibleLeads(leads, Filter{Predicates: []Predicate{status}})
	both := VisibleLeads(leads, Filter{Predicates: []Predicate{text, status}})

	if len(both) > len(textOnly) || len(both) > len(statusOnly) {
		t.Fatalf("conjunction returned more leads (%d) than a single predicate (%d, %d)",
			len(both), len(textOnly), len(statusOnly))
	}
}

func TestTextMatchIsCaseInsensitive(t *testing.T) {
	leads := sampleLeads()
	got := VisibleLeads(leads, Filter{Predicates: []Predicate{TextMatch{Query: "MARIA"}}})
	if len(got) != 1 || got[0].NomeCompleto != "Maria Souza" {
		t.Fatalf("expected only Maria, got %d leads", len(got))
	}

	got = VisibleLeads(leads, Filter{Predicates: []Predicate{TextMatch{Query: "ana.lima@"}}})
	if len(got) != 1 || got[0].NomeCompleto != "Ana Lima" {
		t.Fatalf("expected email match for Ana, got %d leads", len(got))
	}
}

func TestPhoneDigitsIgnoresFormatting(t *testing.T) {
	leads := sampleLeads()
	got := VisibleLeads(leads, Filter{Predicates: []Predicate{PhoneDigits{Query: "(11) 98765"}}})
	if len(got) != 1 || got[0].NomeCompleto != "Maria Souza" {
		t.Fatalf("expected formatted query to match digits, got %d leads", len(got))
	}
}

func TestBrokerEquals(t *testing.T) {
	leads := sampleLeads()
	broker := *leads[0].CorretorID
	got := VisibleLeads(leads, Filter{Predicates: []Predicate{BrokerEquals{CorretorID: &broker}}})
	if len(got) != 1 || got[0].ID != leads[0].ID {
		t.Fatalf("expected one lead for broker, got %d", len(got))
	}

	stranger := uuid.New()
	got = VisibleLeads(leads, Filter{Predicates: []Predicate{BrokerEquals{CorretorID: &stranger}}})
	if len(got) != 0 {
		t.Fatalf("expected no leads for unknown broker, got %d", len(got))
	}
}

func TestDateRangeBoundsAreInclusive(t *testing.T) {
	leads := sampleLeads()
	from := leads[0].CreatedAt
	to := leads[1].CreatedAt
	got := VisibleLeads(leads, Filter{Predicates: []Predicate{DateRange{From: &from, To: &to}}})
	if len(got) != 2 {
		t.Fatalf("expected both boundary leads included, got %d", len(got))
	}
}

func TestTagMembership(t *testing.T) {
	leads := sampleLeads()
	tagID := leads[0].Tags[0].ID
	got := VisibleLeads(leads, Filter{Predicates: []Predicate{TagMembership{TagID: &tagID}}})
	if len(got) != 1 || got[0].ID != leads[0].ID {
		t.Fatalf("expected one tagged lead, got %d", len(got))
	}
}

func TestGroupOmitsStaleStageReferences(t *testing.T) {
	funnelID := uuid.New()
	stages := []Stage{
		{ID: uuid.New(), FunnelID: funnelID, Name: "Novo", Position: 0},
		{ID: uuid.New(), FunnelID: funnelID, Name: "Contato", Position: 1},
	}

	leads := sampleLeads()
	leads[0].StageID = stages[0].ID
	leads[1].StageID = stages[1].ID
	leads[2].StageID = uuid.New() // stage deleted since

	buckets := Group(leads, stages)
	if len(buckets) != 2 {
		t.Fatalf("expected a bucket per stage, got %d", len(buckets))
	}
	if len(buckets[0].Leads) != 1 || buckets[0].Leads[0].ID != leads[0].ID {
		t.Fatalf("first bucket wrong: %d leads", len(buckets[0].Leads))
	}
	if len(buckets[1].Leads) != 1 || buckets[1].Leads[0].ID != leads[1].ID {
		t.Fatalf("second bucket wrong: %d leads", len(buckets[1].Leads))
	}

	total := 0
	for _, b := range buckets {
		total += len(b.Leads)
	}
	if total != 2 {
		t.Fatalf("stale stage lead must be omitted, got %d grouped leads", total)
	}
}

func TestGroupEmptyStagesYieldEmptyBuckets(t *testing.T) {
	stages := []Stage{{ID: uuid.New(), Name: "Novo", Position: 0}}
	buckets := Group(nil, stages)
	if len(buckets) != 1 || buckets[0].Leads == nil || len(buckets[0].Leads) != 0 {
		t.Fatalf("expected one empty bucket, got %+v", buckets)
	}
}
