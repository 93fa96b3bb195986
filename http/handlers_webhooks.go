package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/brojonat/github-bounty-agent/agent"
	"github.com/brojonat/github-bounty-agent/http/api"
)

// bountyLabel marks pull requests eligible for a payout.
const bountyLabel = "bounty"

type githubLabel struct {
	Name string `json:"name"`
}

type githubPullRequest struct {
	Number int           `json:"number"`
	Merged bool          `json:"merged"`
	Title  string        `json:"title"`
	Body   string        `json:"body"`
	Labels []githubLabel `json:"labels"`
	User   struct {
		Login string `json:"login"`
	} `json:"user"`
}

type githubPREvent struct {
	Action      string            `json:"action"`
	PullRequest githubPullRequest `json:"pull_request"`
	Repository  struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

// requireWebhookSignature gates a handler on a valid GitHub HMAC signature.
func requireWebhookSignature(logger *slog.Logger, getSecret func() string) func(http.HandlerFunc) http.HandlerFunc {
	authorize := githubWebhookAuthorizer(logger, getSecret)
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !authorize(w, r) {
				return
			}
			next(w, r)
		}
	}
}

// handleGithubWebhook processes pull_request events. A merged PR carrying
// the bounty label and a NEAR wallet line in its body triggers a payout.
// Duplicate deliveries are absorbed by the executor's idempotency guard.
func handleGithubWebhook(logger *slog.Logger, executor *agent.PayoutExecutor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventType := r.Header.Get("X-GitHub-Event")
		webhookEvents.WithLabelValues(eventType).Inc()

		if eventType == "ping" {
			writeJSONResponse(w, api.DefaultJSONResponse{Message: "pong"}, http.StatusOK)
			return
		}
		if eventType != "pull_request" {
			logger.Debug("Ignoring webhook event", "type", eventType)
			writeOK(w)
			return
		}

		var event githubPREvent
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			logger.Error("Error decoding webhook event", "error", err)
			writeBadRequestError(w, fmt.Errorf("invalid webhook payload"))
			return
		}

		pr := event.PullRequest
		logger.Debug("Received pull_request event",
			"action", event.Action,
			"repo", event.Repository.FullName,
			"pr_number", pr.Number,
			"merged", pr.Merged)

		if event.Action != "closed" || !pr.Merged {
			writeOK(w)
			return
		}
		if !hasLabel(pr.Labels, bountyLabel) {
			logger.Debug("Merged PR has no bounty label, skipping",
				"repo", event.Repository.FullName, "pr_number", pr.Number)
			writeOK(w)
			return
		}

		wallet := extractWallet(pr.Body)
		if wallet == "" {
			logger.Warn("Merged bounty PR has no NEAR wallet in body, skipping payout",
				"repo", event.Repository.FullName, "pr_number", pr.Number, "author", pr.User.Login)
			writeOK(w)
			return
		}

		logger.Info("Processing merged bounty PR",
			"repo", event.Repository.FullName,
			"pr_number", pr.Number,
			"author", pr.User.Login,
			"recipient", wallet)

		outcome := executor.ReleaseBounty(r.Context(), agent.PayoutRequest{
			RepoID:    event.Repository.FullName,
			Recipient: wallet,
			PRNumber:  pr.Number,
		})
		observePayoutOutcome(outcome)

		// Always 200: GitHub retries non-2xx deliveries, and a retried
		// delivery cannot change a terminal payout outcome.
		writeJSONResponse(w, outcome, http.StatusOK)
	}
}

func hasLabel(labels []githubLabel, name string) bool {
	for _, l := range labels {
		if strings.EqualFold(l.Name, name) {
			return true
		}
	}
	return false
}

// extractWallet finds a "NEAR: <account>" line in the PR body and returns
// the account id, or "" if none is present.
func extractWallet(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		rest, ok := cutPrefixFold(line, "near:")
		if !ok {
			continue
		}
		wallet := strings.TrimSpace(rest)
		if wallet != "" {
			return wallet
		}
	}
	return ""
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}
