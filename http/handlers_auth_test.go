package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/github-bounty-agent/http/api"
)

func TestHandleIssueSudoToken(t *testing.T) {
	t.Setenv(EnvServerSecretKey, "test-secret")

	h := handleIssueSudoToken(testLogger())
	req := httptest.NewRequest(http.MethodPost, "/token", nil)
	req = req.WithContext(context.WithValue(req.Context(), ctxKeyEmail, "ops@example.com"))
	w := httptest.NewRecorder()
	h(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp api.DefaultJSONResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotEmpty(t, resp.Message)

	var claims authJWTClaims
	token, err := jwt.ParseWithClaims(resp.Message, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, "ops@example.com", claims.Email)
	assert.Equal(t, int(UserStatusSudo), claims.Status)
	assert.InDelta(t, time.Now().Add(sudoTokenLifetime).Unix(), claims.ExpiresAt, 5)
}

func TestHandleIssueSudoToken_MissingEmail(t *testing.T) {
	t.Setenv(EnvServerSecretKey, "test-secret")

	h := handleIssueSudoToken(testLogger())
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodPost, "/token", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
