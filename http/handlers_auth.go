package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/github-bounty-agent/http/api"
	"github.com/golang-jwt/jwt"
)

// sudoTokenLifetime bounds how long an issued admin token stays valid.
// Payout trigger and ledger inspection routes require a live sudo token,
// so operators re-issue every two weeks.
const sudoTokenLifetime = 14 * 24 * time.Hour

func generateAccessToken(claims authJWTClaims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(getSecretKey()))
}

func handleIssueSudoToken(l *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, ok := r.Context().Value(ctxKeyEmail).(string)
		if !ok {
			writeInternalError(l, w, fmt.Errorf("missing context key for basic auth email"))
			return
		}
		token, err := generateAccessToken(authJWTClaims{
			StandardClaims: jwt.StandardClaims{
				ExpiresAt: time.Now().Add(sudoTokenLifetime).Unix(),
			},
			Email:  email,
			Status: int(UserStatusSudo),
		})
		if err != nil {
			writeInternalError(l, w, fmt.Errorf("failed to sign access token: %w", err))
			return
		}
		writeJSONResponse(w, api.DefaultJSONResponse{Message: token}, http.StatusOK)
	}
}
