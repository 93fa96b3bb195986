package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const payoutsSchema = `
CREATE TABLE IF NOT EXISTS payouts (
	id UUID PRIMARY KEY,
	repo_id TEXT NOT NULL,
	pr_number BIGINT NOT NULL,
	recipient TEXT NOT NULL,
	amount TEXT NOT NULL,
	status TEXT NOT NULL,
	transaction_hash TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS payouts_repo_pr_idx ON payouts (repo_id, pr_number);
`

// PostgresLedger is a Ledger backed by a Postgres table. Rows are only ever
// inserted; there is no update or delete path.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

// NewPostgresLedger connects to the database with retries, ensures the
// payouts table exists, and returns the ledger.
func NewPostgresLedger(ctx context.Context, dbURL string, logger *slog.Logger, maxRetries int, retryInterval time.Duration) (*PostgresLedger, error) {
	var pool *pgxpool.Pool
	var err error

	for i := 0; i < maxRetries; i++ {
		cfg, parseErr := pgxpool.ParseConfig(dbURL)
		if parseErr != nil {
			return nil, fmt.Errorf("failed to parse database URL: %w", parseErr)
		}

		pool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err == nil {
			pingErr := pool.Ping(ctx)
			if pingErr == nil {
				break
			}
			err = fmt.Errorf("failed to ping database: %w", pingErr)
			pool.Close()
			pool = nil
		}

		logger.Error("Failed to connect to database", "attempt", i+1, "max_attempts", maxRetries, "error", err)
		if i < maxRetries-1 {
			logger.Info("Retrying database connection", "interval", retryInterval)
			time.Sleep(retryInterval)
		}
	}
	if pool == nil {
		return nil, fmt.Errorf("could not connect to database after %d attempts: %w", maxRetries, err)
	}

	if _, err := pool.Exec(ctx, payoutsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure payouts schema: %w", err)
	}
	return &PostgresLedger{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (l *PostgresLedger) Close() {
	l.pool.Close()
}

// Append implements Ledger.
func (l *PostgresLedger) Append(ctx context.Context, rec PayoutRecord) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO payouts (id, repo_id, pr_number, recipient, amount, status, transaction_hash, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.RepoID, rec.PRNumber, rec.Recipient, rec.Amount,
		string(rec.Status), rec.TransactionHash, rec.ErrorMessage, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append payout record: %w", err)
	}
	return nil
}

// FindPaid implements Ledger.
func (l *PostgresLedger) FindPaid(ctx context.Context, repoID string, prNumber int) (*PayoutRecord, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, repo_id, pr_number, recipient, amount, status, transaction_hash, error_message, created_at
		FROM payouts
		WHERE repo_id = $1 AND pr_number = $2 AND status = $3
		ORDER BY created_at
		LIMIT 1`,
		repoID, prNumber, string(StatusPaid),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query paid record: %w", err)
	}
	recs, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

// List implements Ledger.
func (l *PostgresLedger) List(ctx context.Context) ([]PayoutRecord, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, repo_id, pr_number, recipient, amount, status, transaction_hash, error_message, created_at
		FROM payouts ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list payout records: %w", err)
	}
	return scanRecords(rows)
}

// ListByStatus implements Ledger.
func (l *PostgresLedger) ListByStatus(ctx context.Context, status Status) ([]PayoutRecord, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, repo_id, pr_number, recipient, amount, status, transaction_hash, error_message, created_at
		FROM payouts WHERE status = $1 ORDER BY created_at`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list payout records: %w", err)
	}
	return scanRecords(rows)
}

// Stats implements Ledger. Aggregation happens in Go so the amount sum uses
// exact decimal arithmetic rather than the database's float types.
func (l *PostgresLedger) Stats(ctx context.Context) (PayoutStats, error) {
	records, err := l.List(ctx)
	if err != nil {
		return PayoutStats{}, err
	}
	return statsOf(records), nil
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

func scanRecords(rows pgxRows) ([]PayoutRecord, error) {
	defer rows.Close()
	var out []PayoutRecord
	for rows.Next() {
		var rec PayoutRecord
		var status string
		if err := rows.Scan(
			&rec.ID, &rec.RepoID, &rec.PRNumber, &rec.Recipient, &rec.Amount,
			&status, &rec.TransactionHash, &rec.ErrorMessage, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan payout record: %w", err)
		}
		rec.Status = Status(status)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read payout records: %w", err)
	}
	return out, nil
}
