package http

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/github-bounty-agent/agent"
	"github.com/brojonat/github-bounty-agent/near"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func mergedPREvent(repo string, prNumber int, body string, labels ...string) []byte {
	event := map[string]any{
		"action": "closed",
		"pull_request": map[string]any{
			"number": prNumber,
			"merged": true,
			"title":  "Fix the widget",
			"body":   body,
			"labels": func() []map[string]string {
				out := make([]map[string]string, 0, len(labels))
				for _, l := range labels {
					out = append(out, map[string]string{"name": l})
				}
				return out
			}(),
			"user": map[string]string{"login": "alice"},
		},
		"repository": map[string]string{"full_name": repo},
	}
	b, _ := json.Marshal(event)
	return b
}

func TestGithubWebhookSignature(t *testing.T) {
	executor, _ := newTestExecutor(&near.MockContractCaller{})
	handler := requireWebhookSignature(testLogger(), func() string { return "hunter2" })(
		handleGithubWebhook(testLogger(), executor),
	)

	body := []byte(`{"zen":"Keep it logically awesome."}`)

	tests := []struct {
		name      string
		signature string
		wantCode  int
	}{
		{"valid signature", signBody("hunter2", body), http.StatusOK},
		{"wrong secret", signBody("wrong", body), http.StatusUnauthorized},
		{"missing signature", "", http.StatusBadRequest},
		{"garbage signature", "sha256=deadbeef", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/webhooks/github", bytes.NewReader(body))
			req.Header.Set("X-GitHub-Event", "ping")
			if tt.signature != "" {
				req.Header.Set("X-Hub-Signature-256", tt.signature)
			}
			w := httptest.NewRecorder()
			handler(w, req)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestGithubWebhook_MergedBountyPRTriggersPayout(t *testing.T) {
	caller := &near.MockContractCaller{}
	caller.On("View", mock.Anything, agent.MethodGetBounty, mock.Anything).
		Return(json.RawMessage(`"1500000000000000000000000"`), nil)
	caller.On("Call", mock.Anything, agent.MethodReleaseBounty, mock.Anything, agent.ReleaseGas).
		Return(&near.CallResult{TransactionHash: "tx1"}, nil)

	executor, store := newTestExecutor(caller)
	h := handleGithubWebhook(testLogger(), executor)

	body := mergedPREvent("acme/widgets", 42, "Closes #7\n\nNEAR: alice.near\n", "bounty")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", bytes.NewReader(body))
	req.Header.Set("X-GitHub-Event", "pull_request")
	w := httptest.NewRecorder()
	h(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var outcome agent.PayoutOutcome
	require.NoError(t, json.NewDecoder(w.Body).Decode(&outcome))
	assert.True(t, outcome.Success)
	assert.Equal(t, "tx1", outcome.TransactionHash)

	records, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "acme/widgets", records[0].RepoID)
	assert.Equal(t, 42, records[0].PRNumber)
	assert.Equal(t, "alice.near", records[0].Recipient)
	assert.Equal(t, "1.5000", records[0].Amount)
	caller.AssertExpectations(t)
}

func TestGithubWebhook_SkipsIneligibleEvents(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		body      []byte
	}{
		{"not a pull_request event", "issues", []byte(`{"action":"opened"}`)},
		{
			"closed but not merged",
			"pull_request",
			func() []byte {
				b := mergedPREvent("acme/widgets", 1, "NEAR: alice.near", "bounty")
				var e map[string]any
				json.Unmarshal(b, &e)
				e["pull_request"].(map[string]any)["merged"] = false
				out, _ := json.Marshal(e)
				return out
			}(),
		},
		{"no bounty label", "pull_request", mergedPREvent("acme/widgets", 2, "NEAR: alice.near")},
		{"no wallet in body", "pull_request", mergedPREvent("acme/widgets", 3, "Just a fix.", "bounty")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := &near.MockContractCaller{}
			executor, store := newTestExecutor(caller)
			h := handleGithubWebhook(testLogger(), executor)

			req := httptest.NewRequest(http.MethodPost, "/webhooks/github", bytes.NewReader(tt.body))
			req.Header.Set("X-GitHub-Event", tt.eventType)
			w := httptest.NewRecorder()
			h(w, req)

			// Ineligible events are acknowledged without touching the
			// contract or the ledger.
			assert.Equal(t, http.StatusOK, w.Code)
			caller.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			records, err := store.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, records)
		})
	}
}

func TestGithubWebhook_DuplicateDeliveryAbsorbed(t *testing.T) {
	caller := &near.MockContractCaller{}
	caller.On("View", mock.Anything, agent.MethodGetBounty, mock.Anything).
		Return(json.RawMessage(`"1000000000000000000000000"`), nil)
	caller.On("Call", mock.Anything, agent.MethodReleaseBounty, mock.Anything, agent.ReleaseGas).
		Return(&near.CallResult{TransactionHash: "tx1"}, nil)

	executor, store := newTestExecutor(caller)
	h := handleGithubWebhook(testLogger(), executor)

	body := mergedPREvent("acme/widgets", 42, "NEAR: alice.near", "bounty")
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/github", bytes.NewReader(body))
		req.Header.Set("X-GitHub-Event", "pull_request")
		w := httptest.NewRecorder()
		h(w, req)
		require.Equal(t, http.StatusOK, w.Code, "delivery %d", i)
	}

	caller.AssertNumberOfCalls(t, "Call", 1)
	records, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestExtractWallet(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"simple", "NEAR: alice.near", "alice.near"},
		{"lowercase prefix", "near: bob.testnet", "bob.testnet"},
		{"embedded in body", "Fixes #1\n\nNEAR: carol.near\nThanks!", "carol.near"},
		{"indented line", "  NEAR: dave.near  ", "dave.near"},
		{"no wallet", "Just a regular PR body.", ""},
		{"prefix with no value", "NEAR:", ""},
		{"empty body", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractWallet(tt.body); got != tt.want {
				t.Errorf("extractWallet(%q) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}

func TestHasLabel(t *testing.T) {
	labels := []githubLabel{{Name: "enhancement"}, {Name: "Bounty"}}
	assert.True(t, hasLabel(labels, "bounty"))
	assert.False(t, hasLabel(labels, "bug"))
	assert.False(t, hasLabel(nil, "bounty"))
}
