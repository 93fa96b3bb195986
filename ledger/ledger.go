// Package ledger is the append-only record of payout attempts. It is the
// source of truth for idempotency (has this PR already been paid?) and for
// audit (what did every attempt do?). Records are never edited or removed.
package ledger

import (
	"context"
	"time"

	"github.com/brojonat/github-bounty-agent/near"
)

// Status classifies how a payout attempt resolved.
type Status string

const (
	// StatusPaid means the contract call succeeded and funds moved.
	StatusPaid Status = "paid"
	// StatusRejected means the contract or transport rejected the call;
	// funds did not move.
	StatusRejected Status = "rejected"
	// StatusUnknown means the call timed out or returned an ambiguous
	// response. Funds may or may not have moved; the record needs manual
	// reconciliation and must not be auto-retried.
	StatusUnknown Status = "unknown"
)

// PayoutRecord is a single payout attempt. Immutable once appended.
type PayoutRecord struct {
	ID              string    `json:"id"`
	RepoID          string    `json:"repo_id"`
	PRNumber        int       `json:"pr_number"`
	Recipient       string    `json:"recipient"`
	Amount          string    `json:"amount"` // decimal NEAR string
	Status          Status    `json:"status"`
	TransactionHash string    `json:"transaction_hash,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Succeeded reports whether the attempt completed a transfer.
func (r PayoutRecord) Succeeded() bool {
	return r.Status == StatusPaid
}

// PayoutStats is an aggregate view over all records, recomputed on each
// query. TotalAmountPaid sums successful amounts with exact decimal
// arithmetic.
type PayoutStats struct {
	TotalAttempts   int    `json:"total_attempts"`
	SuccessCount    int    `json:"success_count"`
	FailureCount    int    `json:"failure_count"`
	UnknownCount    int    `json:"unknown_count"`
	TotalAmountPaid string `json:"total_amount_paid"`
}

// Ledger stores payout attempts. Append must be safe under concurrent
// writers; reads must observe a consistent snapshot.
type Ledger interface {
	Append(ctx context.Context, rec PayoutRecord) error
	// FindPaid returns the successful record for (repoID, prNumber), or
	// nil if the pair has never been paid.
	FindPaid(ctx context.Context, repoID string, prNumber int) (*PayoutRecord, error)
	List(ctx context.Context) ([]PayoutRecord, error)
	ListByStatus(ctx context.Context, status Status) ([]PayoutRecord, error)
	Stats(ctx context.Context) (PayoutStats, error)
}

// statsOf aggregates records into PayoutStats. Amounts that fail to parse
// contribute zero, matching the converter's degrade-to-zero contract.
func statsOf(records []PayoutRecord) PayoutStats {
	total := near.Zero()
	stats := PayoutStats{TotalAttempts: len(records)}
	for _, rec := range records {
		switch rec.Status {
		case StatusPaid:
			stats.SuccessCount++
			amt, err := near.ParseNEAR(rec.Amount)
			if err != nil {
				amt = near.Zero()
			}
			total = total.Add(amt)
		case StatusUnknown:
			stats.UnknownCount++
		default:
			stats.FailureCount++
		}
	}
	stats.TotalAmountPaid = total.String()
	return stats
}
