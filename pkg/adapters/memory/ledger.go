package memory

import (
	"context"
	"sync"

	"github.com/vkarpenko/slotbot/pkg/domain"
)

// Ledger implements ports.LedgerStore in memory.
// Safe for concurrent use.
type Ledger struct {
	data map[ledgerKey][]int
	mu   sync.Mutex
}

type ledgerKey struct {
	userID string
	region domain.Region
}

// NewLedger creates a new in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{
		data: make(map[ledgerKey][]int),
	}
}

// Append records a message id under the region.
func (l *Ledger) Append(ctx context.Context, userID string, region domain.Region, messageID int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := ledgerKey{userID, region}
	l.data[key] = append(l.data[key], messageID)
	return nil
}

// Messages returns the recorded ids, oldest first.
func (l *Ledger) Messages(ctx context.Context, userID string, region domain.Region) ([]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := l.data[ledgerKey{userID, region}]
	out := make([]int, len(ids))
	copy(out, ids)
	return out, nil
}

// Drop forgets one id from every region of the user.
func (l *Ledger) Drop(ctx context.Context, userID string, messageID int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, ids := range l.data {
		if key.userID != userID {
			continue
		}
		kept := ids[:0]
		for _, id := range ids {
			if id != messageID {
				kept = append(kept, id)
			}
		}
		l.data[key] = kept
	}
	return nil
}

// Clear forgets all ids under the region.
func (l *Ledger) Clear(ctx context.Context, userID string, region domain.Region) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.data, ledgerKey{userID, region})
	return nil
}
