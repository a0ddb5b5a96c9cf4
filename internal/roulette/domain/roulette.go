// Package domain holds the pure decision logic for roulette resolution and
// round-robin rotation. Nothing here touches storage or the network.
package domain

import (
	"bytes"
	"time"

	"github.com/google/uuid"

	"imobcrm_backend/platform/apperr"
)

// BrokerRef identifies a rotation participant. LeadCount is an
// informational workload counter for display only; the rotation
// algorithm never reads it.
type BrokerRef struct {
	ID        uuid.UUID
	Nome      string
	Role      string
	LeadCount int
}

// Roulette is a configured, time-bounded round-robin list of brokers used
// to auto-assign incoming leads. Participant order is rotation order.
type Roulette struct {
	ID                uuid.UUID
	Nome              string
	Ativa             bool
	LastAssignedIndex int
	ValidFrom         *time.Time
	ValidUntil        *time.Time
	FunnelID          *uuid.UUID
	Participants      []BrokerRef
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsActiveAt reports whether the roulette's window covers the given
// instant. Bounds are inclusive on both ends.
func (r Roulette) IsActiveAt(now time.Time) bool {
	if !r.Ativa {
		return false
	}
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && now.After(*r.ValidUntil) {
		return false
	}
	return true
}

// ServesFunnel reports whether the roulette may assign leads entering the
// given funnel. An unbound roulette serves every funnel.
func (r Roulette) ServesFunnel(funnelID uuid.UUID) bool {
	return r.FunnelID == nil || *r.FunnelID == funnelID
}

// ResolveActive selects the single roulette governing assignment for the
// funnel at the given instant, or nil when none is scheduled — a valid
// state, not an error. When several candidates overlap, the most recently
// created one wins; that tie-break is deterministic and intentional so an
// operator launching a new campaign takes over from the standing rotation.
// Equal creation timestamps fall through to an ID comparison so the result
// never depends on input order.
func ResolveActive(roulettes []Roulette, funnelID uuid.UUID, now time.Time) *Roulette {
	var winner *Roulette
	for i := range roulettes {
		candidate := &roulettes[i]
		if !candidate.IsActiveAt(now) || !candidate.ServesFunnel(funnelID) {
			continue
		}
		if winner == nil || supersedes(candidate, winner) {
			winner = candidate
		}
	}
	return winner
}

func supersedes(candidate, winner *Roulette) bool {
	if !candidate.CreatedAt.Equal(winner.CreatedAt) {
		return candidate.CreatedAt.After(winner.CreatedAt)
	}
	return bytes.Compare(candidate.ID[:], winner.ID[:]) > 0
}

// NextIndex advances the rotation cursor. The cursor value -1 means the
// roulette has never assigned, so the first participant is next.
func NextIndex(lastAssignedIndex, participantCount int) int {
	return (lastAssignedIndex + 1) % participantCount
}

// ClampCursor re-fits a cursor to a shrunken or reordered participant
// list so it never points past the new length.
func ClampCursor(lastAssignedIndex, participantCount int) int {
	if participantCount == 0 {
		return -1
	}
	if lastAssignedIndex >= participantCount {
		return participantCount - 1
	}
	if lastAssignedIndex < -1 {
		return -1
	}
	return lastAssignedIndex
}

// AssignNext computes the next participant and the advanced roulette. This
// is the in-memory statement of the rotation contract; durable callers must
// run the equivalent read-modify-write inside a single transaction.
func AssignNext(r Roulette) (BrokerRef, Roulette, error) {
	if len(r.Participants) == 0 {
		return BrokerRef{}, r, apperr.Conflict("roulette has no participants")
	}
	next := NextIndex(r.LastAssignedIndex, len(r.Participants))
	r.LastAssignedIndex = next
	return r.Participants[next], r, nil
}
