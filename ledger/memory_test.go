package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paidRecord(repoID string, prNumber int, amount string) PayoutRecord {
	return PayoutRecord{
		ID:              uuid.NewString(),
		RepoID:          repoID,
		PRNumber:        prNumber,
		Recipient:       "alice.near",
		Amount:          amount,
		Status:          StatusPaid,
		TransactionHash: "tx-" + uuid.NewString()[:8],
		CreatedAt:       time.Now().UTC(),
	}
}

func failedRecord(repoID string, prNumber int, status Status, msg string) PayoutRecord {
	return PayoutRecord{
		ID:           uuid.NewString(),
		RepoID:       repoID,
		PRNumber:     prNumber,
		Recipient:    "alice.near",
		Amount:       "1.0",
		Status:       status,
		ErrorMessage: msg,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestMemoryLedger_FindPaid(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	got, err := l.FindPaid(ctx, "acme/widgets", 42)
	require.NoError(t, err)
	assert.Nil(t, got)

	// A failed attempt does not count as paid.
	require.NoError(t, l.Append(ctx, failedRecord("acme/widgets", 42, StatusRejected, "insufficient funds")))
	got, err = l.FindPaid(ctx, "acme/widgets", 42)
	require.NoError(t, err)
	assert.Nil(t, got)

	rec := paidRecord("acme/widgets", 42, "1.5")
	require.NoError(t, l.Append(ctx, rec))

	got, err = l.FindPaid(ctx, "acme/widgets", 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.TransactionHash, got.TransactionHash)

	// Different PR on the same repo is a different unit of work.
	got, err = l.FindPaid(ctx, "acme/widgets", 43)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryLedger_Stats(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	require.NoError(t, l.Append(ctx, paidRecord("acme/widgets", 1, "0.1")))
	require.NoError(t, l.Append(ctx, paidRecord("acme/widgets", 2, "0.2")))
	require.NoError(t, l.Append(ctx, failedRecord("acme/widgets", 3, StatusRejected, "insufficient funds")))
	require.NoError(t, l.Append(ctx, failedRecord("acme/widgets", 4, StatusUnknown, "timeout")))

	stats, err := l.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalAttempts)
	assert.Equal(t, 2, stats.SuccessCount)
	assert.Equal(t, 1, stats.FailureCount)
	assert.Equal(t, 1, stats.UnknownCount)
	// Exact decimal sum: 0.1 + 0.2 must not drift.
	assert.Equal(t, "0.3000", stats.TotalAmountPaid)
}

func TestMemoryLedger_StatsEmpty(t *testing.T) {
	stats, err := NewMemoryLedger().Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalAttempts)
	assert.Equal(t, "0.0000", stats.TotalAmountPaid)
}

func TestMemoryLedger_ListByStatus(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	require.NoError(t, l.Append(ctx, paidRecord("acme/widgets", 1, "1.0")))
	require.NoError(t, l.Append(ctx, failedRecord("acme/widgets", 2, StatusUnknown, "timeout")))
	require.NoError(t, l.Append(ctx, failedRecord("acme/widgets", 3, StatusUnknown, "timeout")))

	unknown, err := l.ListByStatus(ctx, StatusUnknown)
	require.NoError(t, err)
	assert.Len(t, unknown, 2)

	paid, err := l.ListByStatus(ctx, StatusPaid)
	require.NoError(t, err)
	assert.Len(t, paid, 1)
}

func TestMemoryLedger_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = l.Append(ctx, paidRecord(fmt.Sprintf("acme/repo-%d", i), i, "1.0"))
		}(i)
	}
	// Stats may run concurrently with appends and must always see a
	// consistent snapshot.
	for i := 0; i < 10; i++ {
		_, err := l.Stats(ctx)
		require.NoError(t, err)
	}
	wg.Wait()

	stats, err := l.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, stats.TotalAttempts)
	assert.Equal(t, n, stats.SuccessCount)
	assert.Equal(t, "50.0000", stats.TotalAmountPaid)
}
