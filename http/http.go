package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brojonat/github-bounty-agent/agent"
	"github.com/brojonat/github-bounty-agent/http/api"
	"github.com/brojonat/github-bounty-agent/internal/stools"
	"github.com/brojonat/github-bounty-agent/ledger"
	"github.com/brojonat/github-bounty-agent/near"
)

// Environment Variable Keys
const (
	EnvServerSecretKey     = "GBA_SECRET_KEY"
	EnvShadeAgentAPIURL    = "SHADE_AGENT_API_URL"
	EnvAgentContractID     = "AGENT_CONTRACT_ID"
	EnvGithubWebhookSecret = "GITHUB_WEBHOOK_SECRET"
	EnvDatabaseURL         = "GBA_DATABASE_URL"
)

type corsConfigKey struct{}

// GetCORSConfig retrieves CORS configuration from the context
func GetCORSConfig(ctx context.Context) (headers, methods, origins []string) {
	if v := ctx.Value(corsConfigKey{}); v != nil {
		config := v.(struct {
			headers []string
			methods []string
			origins []string
		})
		return config.headers, config.methods, config.origins
	}
	return nil, nil, nil
}

// WithCORSConfig adds CORS configuration to the context
func WithCORSConfig(ctx context.Context, headers, methods, origins []string) context.Context {
	return context.WithValue(ctx, corsConfigKey{}, struct {
		headers []string
		methods []string
		origins []string
	}{headers, methods, origins})
}

func writeOK(w http.ResponseWriter) {
	resp := api.DefaultJSONResponse{Message: "ok"}
	writeJSONResponse(w, resp, http.StatusOK)
}

func writeInternalError(l *slog.Logger, w http.ResponseWriter, e error) {
	l.Error("internal error", "error", e.Error())
	resp := api.DefaultJSONResponse{Error: "internal error"}
	writeJSONResponse(w, resp, http.StatusInternalServerError)
}

func writeBadRequestError(w http.ResponseWriter, err error) {
	resp := api.DefaultJSONResponse{Error: err.Error()}
	writeJSONResponse(w, resp, http.StatusBadRequest)
}

func writeUnauthorized(w http.ResponseWriter) {
	resp := api.DefaultJSONResponse{Error: "unauthorized"}
	writeJSONResponse(w, resp, http.StatusUnauthorized)
}

func writeJSONResponse(w http.ResponseWriter, resp interface{}, code int) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}

// RunServer starts the HTTP server with the given configuration. It owns
// construction of the contract client, ledger, and payout executor; every
// handler receives its dependencies explicitly.
func RunServer(ctx context.Context, logger *slog.Logger, port string) error {
	mux := http.NewServeMux()

	// --- Read and Apply CORS Configuration from Env Vars ---
	allowedOriginsEnv := os.Getenv("CORS_ORIGINS")
	var allowedOrigins []string
	if allowedOriginsEnv == "*" {
		allowedOrigins = []string{"*"}
		logger.Warn("CORS configured to allow all origins (*)")
	} else if allowedOriginsEnv != "" {
		allowedOrigins = strings.Split(allowedOriginsEnv, ",")
	} else {
		logger.Warn("CORS_ORIGINS not set, CORS might not function correctly")
		allowedOrigins = []string{}
	}

	allowedMethodsEnv := os.Getenv("CORS_METHODS")
	var allowedMethods []string
	if allowedMethodsEnv != "" {
		allowedMethods = strings.Split(allowedMethodsEnv, ",")
	} else {
		allowedMethods = []string{"GET", "POST", "OPTIONS"}
	}

	allowedHeadersEnv := os.Getenv("CORS_HEADERS")
	var allowedHeaders []string
	if allowedHeadersEnv != "" {
		allowedHeaders = strings.Split(allowedHeadersEnv, ",")
	} else {
		allowedHeaders = []string{"Authorization", "Content-Type", "X-Requested-With"}
	}

	ctx = WithCORSConfig(ctx, allowedHeaders, allowedMethods, allowedOrigins)
	// --- End CORS Configuration ---

	if os.Getenv(EnvServerSecretKey) == "" {
		return fmt.Errorf("server startup error: %s not set", EnvServerSecretKey)
	}

	// --- Shade Agent Client ---
	agentAPIURL := os.Getenv(EnvShadeAgentAPIURL)
	if agentAPIURL == "" {
		return fmt.Errorf("server startup error: %s not set", EnvShadeAgentAPIURL)
	}
	contractID := os.Getenv(EnvAgentContractID)
	if contractID == "" {
		return fmt.Errorf("server startup error: %s not set", EnvAgentContractID)
	}
	caller, err := near.NewClient(agentAPIURL, contractID)
	if err != nil {
		return fmt.Errorf("server startup error: %w", err)
	}
	agentAccountID, err := caller.AccountID(ctx)
	if err != nil {
		return fmt.Errorf("server startup error: shade agent health check failed for %s: %w", agentAPIURL, err)
	}
	logger.Info("Shade agent initialized", "agent_account_id", agentAccountID, "contract_id", contractID)
	// --- End Shade Agent Client ---

	// --- Payout Ledger ---
	var store ledger.Ledger
	dbURL := os.Getenv(EnvDatabaseURL)
	if dbURL != "" {
		pgLedger, errDb := ledger.NewPostgresLedger(ctx, dbURL, logger, 5, 5*time.Second)
		if errDb != nil {
			return fmt.Errorf("server startup error: %w", errDb)
		}
		defer pgLedger.Close()
		store = pgLedger
		logger.Info("Payout ledger backed by Postgres")
	} else {
		store = ledger.NewMemoryLedger()
		logger.Warn("GBA_DATABASE_URL not set, payout ledger is in-memory and will not survive restarts")
	}
	// --- End Payout Ledger ---

	quoter := agent.NewBountyQuoter(logger, caller)
	executor := agent.NewPayoutExecutor(logger, caller, quoter, store)

	// Rate limiter for the token endpoint
	tokenLimiter := NewRateLimiter(1*time.Hour, 10)

	// Add routes
	mux.HandleFunc("GET /ping", stools.AdaptHandler(
		handlePing(),
		withLogging(logger),
	))

	mux.HandleFunc("GET /health", stools.AdaptHandler(
		handleGetHealth(logger, agentAccountID, store),
		withLogging(logger),
		withMetrics(),
	))

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /token", stools.AdaptHandler(
		handleIssueSudoToken(logger),
		withLogging(logger),
		rateLimitMiddleware(tokenLimiter),
		atLeastOneAuth(basicAuthorizerCtxSetEmail(getSecretKey)),
	))

	mux.HandleFunc("GET /payouts", stools.AdaptHandler(
		handleListPayouts(logger, store),
		withLogging(logger),
		atLeastOneAuth(bearerAuthorizerCtxSetToken(getSecretKey)),
		requireStatus(UserStatusSudo),
	))

	mux.HandleFunc("GET /payouts/stats", stools.AdaptHandler(
		handleGetPayoutStats(logger, store),
		withLogging(logger),
		withMetrics(),
	))

	mux.HandleFunc("GET /payouts/unknown", stools.AdaptHandler(
		handleListUnknownPayouts(logger, store),
		withLogging(logger),
		atLeastOneAuth(bearerAuthorizerCtxSetToken(getSecretKey)),
		requireStatus(UserStatusSudo),
	))

	mux.HandleFunc("POST /payouts/release", stools.AdaptHandler(
		handleReleaseBounty(logger, executor),
		withLogging(logger),
		makeGraceful(logger),
		setContentType("application/json"),
		atLeastOneAuth(bearerAuthorizerCtxSetToken(getSecretKey)),
		requireStatus(UserStatusSudo),
	))

	mux.HandleFunc("POST /webhooks/github", stools.AdaptHandler(
		handleGithubWebhook(logger, executor),
		withLogging(logger),
		withMetrics(),
		makeGraceful(logger),
		setContentType("application/json"),
		setMaxBytesReader(1048576),
		requireWebhookSignature(logger, getWebhookSecret),
	))

	// Apply CORS globally
	corsHandler := handlers.CORS(
		handlers.AllowedHeaders(allowedHeaders),
		handlers.AllowedMethods(allowedMethods),
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowCredentials(),
	)(mux)

	// Start server
	server := &http.Server{
		Addr:    ":" + port,
		Handler: corsHandler,
	}

	go func() {
		logger.Info("http server listening", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
		}
	}()

	// Wait for context cancellation
	<-ctx.Done()
	logger.Info("shutting down HTTP server")
	return server.Shutdown(context.Background())
}

// withLogging wraps a handler with logging middleware
func withLogging(logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next(w, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"duration", time.Since(start),
				"remote_addr", r.RemoteAddr,
			)
		}
	}
}

// handlePing returns a handler for the ping endpoint
func handlePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSONResponse(w, api.DefaultJSONResponse{Message: "pong"}, http.StatusOK)
	}
}
