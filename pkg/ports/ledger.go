package ports

import (
	"context"

	"github.com/vkarpenko/slotbot/pkg/domain"
)

// LedgerStore tracks the chat message ids the engine has posted, grouped by
// user and screen region, so stale UI can be deleted before redrawing.
type LedgerStore interface {
	// Append records a posted message id under the region.
	Append(ctx context.Context, userID string, region domain.Region, messageID int) error

	// Messages returns the recorded ids for the region, oldest first.
	Messages(ctx context.Context, userID string, region domain.Region) ([]int, error)

	// Drop forgets one id from every region it was recorded under. Used when
	// a single message (a transient notice) is deleted outside a bulk clear.
	Drop(ctx context.Context, userID string, messageID int) error

	// Clear forgets all ids recorded under the region.
	Clear(ctx context.Context, userID string, region domain.Region) error
}
