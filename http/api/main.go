package api

import "github.com/brojonat/github-bounty-agent/ledger"

type DefaultJSONResponse struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is the payload of GET /health: a side-effect-free snapshot
// safe to poll.
type HealthResponse struct {
	Status         string             `json:"status"`
	AgentAccountID string             `json:"agent_account_id"`
	Payouts        ledger.PayoutStats `json:"payouts"`
}

// PayoutListResponse wraps a ledger listing.
type PayoutListResponse struct {
	Payouts []ledger.PayoutRecord `json:"payouts"`
}
