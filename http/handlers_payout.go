package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/brojonat/github-bounty-agent/agent"
	"github.com/brojonat/github-bounty-agent/http/api"
	"github.com/brojonat/github-bounty-agent/internal/stools"
	"github.com/brojonat/github-bounty-agent/ledger"
)

// handleGetHealth returns the agent's health snapshot: the agent account id
// and the ledger's aggregate payout stats. A pure read; in-flight payouts
// are unaffected.
func handleGetHealth(l *slog.Logger, agentAccountID string, store ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.Stats(r.Context())
		if err != nil {
			writeInternalError(l, w, fmt.Errorf("failed to compute payout stats: %w", err))
			return
		}
		writeJSONResponse(w, api.HealthResponse{
			Status:         "ok",
			AgentAccountID: agentAccountID,
			Payouts:        stats,
		}, http.StatusOK)
	}
}

// handleReleaseBounty triggers a payout manually. The executor owns all
// failure handling, so the handler always answers 200 with the outcome for
// well-formed requests.
func handleReleaseBounty(l *slog.Logger, executor *agent.PayoutExecutor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req agent.PayoutRequest
		if err := stools.DecodeJSONBody(r, &req); err != nil {
			writeBadRequestError(w, err)
			return
		}
		if req.RepoID == "" || req.Recipient == "" || req.PRNumber <= 0 {
			writeBadRequestError(w, fmt.Errorf("repo_id, recipient, and pr_number are required"))
			return
		}

		outcome := executor.ReleaseBounty(r.Context(), req)
		observePayoutOutcome(outcome)
		writeJSONResponse(w, outcome, http.StatusOK)
	}
}

// handleListPayouts returns the full audit trail.
func handleListPayouts(l *slog.Logger, store ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := store.List(r.Context())
		if err != nil {
			writeInternalError(l, w, fmt.Errorf("failed to list payouts: %w", err))
			return
		}
		writeJSONResponse(w, api.PayoutListResponse{Payouts: records}, http.StatusOK)
	}
}

// handleGetPayoutStats returns aggregate payout stats.
func handleGetPayoutStats(l *slog.Logger, store ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.Stats(r.Context())
		if err != nil {
			writeInternalError(l, w, fmt.Errorf("failed to compute payout stats: %w", err))
			return
		}
		writeJSONResponse(w, stats, http.StatusOK)
	}
}

// handleListUnknownPayouts returns attempts whose on-chain outcome is
// ambiguous (timeouts). These need manual reconciliation against an
// explorer before any re-attempt; the agent never retries them itself.
func handleListUnknownPayouts(l *slog.Logger, store ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := store.ListByStatus(r.Context(), ledger.StatusUnknown)
		if err != nil {
			writeInternalError(l, w, fmt.Errorf("failed to list unknown payouts: %w", err))
			return
		}
		writeJSONResponse(w, api.PayoutListResponse{Payouts: records}, http.StatusOK)
	}
}
