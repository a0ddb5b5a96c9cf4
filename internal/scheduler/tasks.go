// Package scheduler defines the asynq background tasks: the periodic
// roulette window audit and the lead-count cache refresh.
package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type identifiers.
const (
	TypeRouletteWindowAudit = "roulette:window_audit"
	TypeLeadCountRefresh    = "users:leadcount_refresh"
)

// RouletteWindowAuditPayload is empty today; the audit always sweeps all
// roulettes.
type RouletteWindowAuditPayload struct{}

// LeadCountRefreshPayload is empty today; the refresh always recomputes
// every broker's count.
type LeadCountRefreshPayload struct{}

// NewRouletteWindowAuditTask builds the audit task.
func NewRouletteWindowAuditTask() (*asynq.Task, error) {
	payload, err := json.Marshal(RouletteWindowAuditPayload{})
	if err != nil {
		return nil, fmt.Errorf("marshal window audit payload: %w", err)
	}
	return asynq.NewTask(TypeRouletteWindowAudit, payload), nil
}

// NewLeadCountRefreshTask builds the refresh task.
func NewLeadCountRefreshTask() (*asynq.Task, error) {
	payload, err := json.Marshal(LeadCountRefreshPayload{})
	if err != nil {
		return nil, fmt.Errorf("marshal lead count refresh payload: %w", err)
	}
	return asynq.NewTask(TypeLeadCountRefresh, payload), nil
}
