// Package agent implements the payout orchestration core: quoting the
// escrowed bounty for a repository and releasing it to a contributor
// exactly once per merged pull request.
package agent

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/brojonat/github-bounty-agent/near"
)

// Contract method names on the agent contract.
const (
	MethodGetBounty     = "get_bounty"
	MethodReleaseBounty = "release_bounty"
)

// BountyQuoter reads the currently escrowed bounty amount for a repository
// from the agent contract.
type BountyQuoter struct {
	logger *slog.Logger
	caller near.ContractCaller
}

// NewBountyQuoter creates a quoter backed by the given contract caller.
func NewBountyQuoter(logger *slog.Logger, caller near.ContractCaller) *BountyQuoter {
	return &BountyQuoter{logger: logger, caller: caller}
}

type getBountyArgs struct {
	RepoID string `json:"repo_id"`
}

// GetBounty returns the escrowed bounty for repoID as a decimal NEAR
// string. An unavailable or malformed quote degrades to "0" with a warning
// rather than blocking the payout flow.
func (q *BountyQuoter) GetBounty(ctx context.Context, repoID string) string {
	raw, err := q.caller.View(ctx, MethodGetBounty, getBountyArgs{RepoID: repoID})
	if err != nil {
		q.logger.Warn("bounty quote unavailable, defaulting to zero", "repo_id", repoID, "error", err)
		return "0"
	}

	// The contract returns a U128 serialized as a JSON string of yoctoNEAR.
	var yocto string
	if err := json.Unmarshal(raw, &yocto); err != nil {
		q.logger.Warn("malformed bounty quote, defaulting to zero", "repo_id", repoID, "error", err)
		return "0"
	}

	amt, err := near.FromYoctoString(yocto)
	if err != nil {
		q.logger.Warn("unparseable bounty quote, defaulting to zero", "repo_id", repoID, "value", yocto, "error", err)
		return "0"
	}
	return amt.String()
}
