// Package board projects the lead working set into per-stage buckets under
// a composite filter. Everything here is pure: no storage, no network.
package board

import (
	"strings"
	"time"

	"github.com/google/uuid"

	leadrepo "imobcrm_backend/internal/leads/repository"
)

// Lead aliases the stored lead shape; the board never mutates it.
type Lead = leadrepo.Lead

// Predicate decides whether a lead stays visible. Predicates are combined
// as a conjunction: a lead must pass every one.
type Predicate interface {
	Matches(lead Lead) bool
}

// TextMatch keeps leads whose name or email contains the query,
// case-insensitively. An empty query matches everything.
type TextMatch struct {
	Query string
}

func (p TextMatch) Matches(lead Lead) bool {
	q := strings.ToLower(strings.TrimSpace(p.Query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(lead.NomeCompleto), q) ||
		strings.Contains(strings.ToLower(lead.Email), q)
}

// PhoneDigits keeps leads whose phone contains the query's digits,
// ignoring formatting on both sides.
type PhoneDigits struct {
	Query string
}

func (p PhoneDigits) Matches(lead Lead) bool {
	q := digitsOnly(p.Query)
	if q == "" {
		return true
	}
	return strings.Contains(lead.TelefoneDigits, q)
}

// StatusEquals keeps leads with the given overall status. The empty string
// and "all" both disable the predicate.
type StatusEquals struct {
	Status string
}

func (p StatusEquals) Matches(lead Lead) bool {
	if p.Status == "" || p.Status == "all" {
		return true
	}
	return lead.OverallStatus == p.Status
}

// BrokerEquals keeps leads owned by the given broker. A nil ID disables
// the predicate.
type BrokerEquals struct {
	CorretorID *uuid.UUID
}

func (p BrokerEquals) Matches(lead Lead) bool {
	if p.CorretorID == nil {
		return true
	}
	return lead.CorretorID != nil && *lead.CorretorID == *p.CorretorID
}

// DateRange keeps leads created inside the inclusive [From, To] window.
// Nil bounds are open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

func (p DateRange) Matches(lead Lead) bool {
	if p.From != nil && lead.CreatedAt.Before(*p.From) {
		return false
	}
	if p.To != nil && lead.CreatedAt.After(*p.To) {
		return false
	}
	return true
}

// TagMembership keeps leads carrying the selected tag. A nil ID disables
// the predicate.
type TagMembership struct {
	TagID *uuid.UUID
}

func (p TagMembership) Matches(lead Lead) bool {
	if p.TagID == nil {
		return true
	}
	for _, tag := range lead.Tags {
		if tag.ID == *p.TagID {
			return true
		}
	}
	return false
}

// Filter is the conjunction of its predicates. The zero value matches
// every lead.
type Filter struct {
	Predicates []Predicate
}

func (f Filter) Matches(lead Lead) bool {
	for _, p := range f.Predicates {
		if !p.Matches(lead) {
			return false
		}
	}
	return true
}

// VisibleLeads returns the leads passing the filter, preserving input
// order. The input slice is never modified.
func VisibleLeads(leads []Lead, filter Filter) []Lead {
	out := make([]Lead, 0, len(leads))
	for _, lead := range leads {
		if filter.Matches(lead) {
			out = append(out, lead)
		}
	}
	return out
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
