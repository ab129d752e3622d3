package redis

import (
	"context"
	"fmt"
	"strconv"

	backend "github.com/redis/go-redis/v9"

	"github.com/vkarpenko/slotbot/pkg/domain"
)

// Ledger implements ports.LedgerStore using Redis lists, one list per
// (user, region) pair.
type Ledger struct {
	client *backend.Client
	prefix string
}

// NewLedger creates a new Redis ledger.
func NewLedger(client *backend.Client, prefix string) *Ledger {
	if prefix == "" {
		prefix = "slotbot:ledger:"
	}
	return &Ledger{
		client: client,
		prefix: prefix,
	}
}

func (l *Ledger) key(userID string, region domain.Region) string {
	return l.prefix + userID + ":" + string(region)
}

// Append records a message id under the region.
func (l *Ledger) Append(ctx context.Context, userID string, region domain.Region, messageID int) error {
	err := l.client.RPush(ctx, l.key(userID, region), messageID).Err()
	if err != nil {
		return fmt.Errorf("failed to append to ledger: %w", err)
	}
	return nil
}

// Messages returns the recorded ids, oldest first.
func (l *Ledger) Messages(ctx context.Context, userID string, region domain.Region) ([]int, error) {
	vals, err := l.client.LRange(ctx, l.key(userID, region), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	ids := make([]int, 0, len(vals))
	for _, v := range vals {
		id, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("corrupt ledger entry %q: %w", v, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Drop forgets one id from every region of the user.
func (l *Ledger) Drop(ctx context.Context, userID string, messageID int) error {
	for _, region := range domain.Regions {
		err := l.client.LRem(ctx, l.key(userID, region), 0, messageID).Err()
		if err != nil {
			return fmt.Errorf("failed to drop ledger entry: %w", err)
		}
	}
	return nil
}

// Clear forgets all ids under the region.
func (l *Ledger) Clear(ctx context.Context, userID string, region domain.Region) error {
	return l.client.Del(ctx, l.key(userID, region)).Err()
}
