// Package domain holds lead status definitions shared across the module.
package domain

const (
	OverallStatusActive = "active"
	OverallStatusWon    = "won"
	OverallStatusLost   = "lost"
)

var knownStatuses = map[string]struct{}{
	OverallStatusActive: {},
	OverallStatusWon:    {},
	OverallStatusLost:   {},
}

func IsKnownStatus(status string) bool {
	_, ok := knownStatuses[status]
	return ok
}

// Intake sources. Manual creation carries the acting principal; automatic
// intake routes through the roulette.
const (
	SourceManual  = "manual"
	SourceWebhook = "webhook"
)
