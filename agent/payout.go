package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/brojonat/github-bounty-agent/ledger"
	"github.com/brojonat/github-bounty-agent/near"
	"github.com/google/uuid"
)

const (
	// ReleaseGas is the fixed gas budget attached to release_bounty calls.
	// 300 Tgas, the NEAR per-transaction maximum.
	ReleaseGas uint64 = 300_000_000_000_000

	// releaseTimeout bounds the release_bounty round trip. Expiry is an
	// ambiguous outcome: the transaction may still land after we give up.
	// Must stay below near.RequestTimeout so expiry reaches this package
	// as a context deadline instead of a transport error.
	releaseTimeout = 60 * time.Second

	// unknownTxHash is recorded when a call succeeds but the response
	// carries no transaction hash. A malformed success is still a success.
	unknownTxHash = "unknown"

	// genericErrMsg is recorded when a rejection carries no usable message.
	genericErrMsg = "Unknown error"
)

// PayoutRequest asks for a bounty to be released for a merged pull request.
// (RepoID, PRNumber) identifies the unit of work and must not be paid
// twice. Amount is a decimal NEAR string; when empty, the current on-chain
// bounty for the repo is quoted and paid out in full.
type PayoutRequest struct {
	RepoID    string `json:"repo_id"`
	Recipient string `json:"recipient"`
	PRNumber  int    `json:"pr_number"`
	Amount    string `json:"amount,omitempty"`
}

// PayoutOutcome is the caller-facing result of a payout attempt.
type PayoutOutcome struct {
	Success         bool   `json:"success"`
	AlreadyPaid     bool   `json:"already_paid,omitempty"`
	TransactionHash string `json:"transaction_hash,omitempty"`
	ErrorMessage    string `json:"error_message,omitempty"`
}

// Quoter resolves the bounty amount for a repository when the request does
// not carry one.
type Quoter interface {
	GetBounty(ctx context.Context, repoID string) string
}

// PayoutExecutor releases bounties and records every attempt in the
// ledger. ReleaseBounty never returns an error: all failure modes are
// captured in the outcome so the webhook handler can respond without
// crashing the process.
type PayoutExecutor struct {
	logger *slog.Logger
	caller near.ContractCaller
	quoter Quoter
	store  ledger.Ledger

	// one lock per (repo, PR) pair, created on demand; serializes
	// duplicate webhook deliveries so the idempotency check and the
	// contract call form a critical section.
	keys sync.Map
}

// NewPayoutExecutor creates an executor. All dependencies are injected; the
// contract caller is owned by the composition root.
func NewPayoutExecutor(logger *slog.Logger, caller near.ContractCaller, quoter Quoter, store ledger.Ledger) *PayoutExecutor {
	return &PayoutExecutor{
		logger: logger,
		caller: caller,
		quoter: quoter,
		store:  store,
	}
}

type releaseBountyArgs struct {
	RepoID    string `json:"repo_id"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"` // yoctoNEAR, U128 as string
}

func (e *PayoutExecutor) lockFor(repoID string, prNumber int) *sync.Mutex {
	key := fmt.Sprintf("%s#%d", repoID, prNumber)
	mu, _ := e.keys.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// ReleaseBounty resolves the amount, invokes release_bounty on the agent
// contract, and appends exactly one ledger record per attempt that reaches
// the contract, regardless of outcome.
func (e *PayoutExecutor) ReleaseBounty(ctx context.Context, req PayoutRequest) PayoutOutcome {
	mu := e.lockFor(req.RepoID, req.PRNumber)
	mu.Lock()
	defer mu.Unlock()

	// Duplicate deliveries must not pay twice: check for a prior
	// successful attempt before touching the contract.
	prior, err := e.store.FindPaid(ctx, req.RepoID, req.PRNumber)
	if err != nil {
		e.logger.Error("ledger lookup failed, refusing to pay", "repo_id", req.RepoID, "pr_number", req.PRNumber, "error", err)
		return PayoutOutcome{Success: false, ErrorMessage: fmt.Sprintf("payout ledger unavailable: %v", err)}
	}
	if prior != nil {
		e.logger.Info("bounty already paid, skipping",
			"repo_id", req.RepoID, "pr_number", req.PRNumber, "transaction_hash", prior.TransactionHash)
		return PayoutOutcome{Success: true, AlreadyPaid: true, TransactionHash: prior.TransactionHash}
	}

	// Resolve the amount: explicit on the request, else quoted from the
	// contract. A malformed amount degrades to zero (the contract rejects
	// zero transfers) rather than aborting the attempt.
	amount := req.Amount
	if amount == "" {
		amount = e.quoter.GetBounty(ctx, req.RepoID)
	}
	amt, err := near.ParseNEAR(amount)
	if err != nil {
		e.logger.Warn("unparseable payout amount, substituting zero", "repo_id", req.RepoID, "amount", amount, "error", err)
		amt = near.Zero()
		amount = "0"
	}

	callCtx, cancel := context.WithTimeout(ctx, releaseTimeout)
	defer cancel()
	res, callErr := e.caller.Call(callCtx, MethodReleaseBounty, releaseBountyArgs{
		RepoID:    req.RepoID,
		Recipient: req.Recipient,
		Amount:    amt.YoctoString(),
	}, ReleaseGas)

	rec := ledger.PayoutRecord{
		ID:        uuid.NewString(),
		RepoID:    req.RepoID,
		PRNumber:  req.PRNumber,
		Recipient: req.Recipient,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}

	var outcome PayoutOutcome
	switch {
	case callErr == nil:
		hash := unknownTxHash
		if res != nil && res.TransactionHash != "" {
			hash = res.TransactionHash
		}
		rec.Status = ledger.StatusPaid
		rec.TransactionHash = hash
		outcome = PayoutOutcome{Success: true, TransactionHash: hash}
		e.logger.Info("bounty released",
			"repo_id", req.RepoID, "pr_number", req.PRNumber, "recipient", req.Recipient,
			"amount", amount, "transaction_hash", hash)

	case isTimeout(callErr):
		// The transaction may still land: record the ambiguity for
		// manual reconciliation and do not retry.
		rec.Status = ledger.StatusUnknown
		rec.ErrorMessage = fmt.Sprintf("payout outcome unknown: %v", callErr)
		outcome = PayoutOutcome{Success: false, ErrorMessage: rec.ErrorMessage}
		e.logger.Warn("payout outcome unknown, needs reconciliation",
			"repo_id", req.RepoID, "pr_number", req.PRNumber, "recipient", req.Recipient,
			"amount", amount, "error", callErr)

	default:
		rec.Status = ledger.StatusRejected
		rec.ErrorMessage = rejectionMessage(callErr)
		outcome = PayoutOutcome{Success: false, ErrorMessage: rec.ErrorMessage}
		e.logger.Info("bounty payout rejected",
			"repo_id", req.RepoID, "pr_number", req.PRNumber, "recipient", req.Recipient,
			"amount", amount, "error", rec.ErrorMessage)
	}

	if appendErr := e.store.Append(ctx, rec); appendErr != nil {
		// A lost record never aborts a payout that already reached the
		// contract, but losing the audit row for a completed transfer is
		// the most severe condition this core can hit.
		if rec.Status == ledger.StatusPaid {
			e.logger.Error("ALERT: funds transferred but ledger append failed",
				"repo_id", req.RepoID, "pr_number", req.PRNumber,
				"transaction_hash", rec.TransactionHash, "amount", amount, "error", appendErr)
		} else {
			e.logger.Error("ledger append failed", "repo_id", req.RepoID, "pr_number", req.PRNumber, "error", appendErr)
		}
	}

	return outcome
}

// isTimeout reports whether the call expired without a definitive answer
// from the contract.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// rejectionMessage extracts a human-readable message from a rejection.
func rejectionMessage(err error) string {
	var callErr *near.CallError
	if errors.As(err, &callErr) && callErr.Message != "" {
		return callErr.Message
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return genericErrMsg
}
