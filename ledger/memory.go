package ledger

import (
	"context"
	"sync"
)

// MemoryLedger is an in-process Ledger. It is the default store when no
// database URL is configured; the audit trail then lives only as long as
// the process.
type MemoryLedger struct {
	mu      sync.RWMutex
	records []PayoutRecord
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

// Append implements Ledger.
func (l *MemoryLedger) Append(ctx context.Context, rec PayoutRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return nil
}

// FindPaid implements Ledger.
func (l *MemoryLedger) FindPaid(ctx context.Context, repoID string, prNumber int) (*PayoutRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := range l.records {
		rec := l.records[i]
		if rec.Status == StatusPaid && rec.RepoID == repoID && rec.PRNumber == prNumber {
			return &rec, nil
		}
	}
	return nil, nil
}

// List implements Ledger. The returned slice is a snapshot copy.
func (l *MemoryLedger) List(ctx context.Context) ([]PayoutRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]PayoutRecord, len(l.records))
	copy(out, l.records)
	return out, nil
}

// ListByStatus implements Ledger.
func (l *MemoryLedger) ListByStatus(ctx context.Context, status Status) ([]PayoutRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []PayoutRecord
	for _, rec := range l.records {
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Stats implements Ledger.
func (l *MemoryLedger) Stats(ctx context.Context) (PayoutStats, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return statsOf(l.records), nil
}
