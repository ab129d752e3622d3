package engine

import (
	"context"

	"github.com/vkarpenko/slotbot/pkg/domain"
)

// clearRegion deletes every message recorded under the region and empties the
// ledger entry. Delete failures (already-gone messages) are logged and
// swallowed: the ledger is emptied regardless so ids are never retried.
func (e *Engine) clearRegion(ctx context.Context, userID string, region domain.Region) error {
	ids, err := e.ledger.Messages(ctx, userID, region)
	if err != nil {
		return err
	}

	for _, id := range ids {
		if err := e.transport.DeleteMessage(ctx, userID, id); err != nil {
			e.logger.Debug("delete of tracked message failed",
				"user_id", userID, "region", region, "message_id", id, "err", err)
		}
	}

	return e.ledger.Clear(ctx, userID, region)
}

// showRegion replaces the region's content with one fresh message.
func (e *Engine) showRegion(ctx context.Context, userID string, region domain.Region, screen domain.Screen) (int, error) {
	if err := e.clearRegion(ctx, userID, region); err != nil {
		return 0, err
	}

	id, err := e.transport.SendMessage(ctx, userID, screen)
	if err != nil {
		return 0, err
	}

	if err := e.ledger.Append(ctx, userID, region, id); err != nil {
		return 0, err
	}
	return id, nil
}

// editCard edits the wizard-card message in place, falling back to a fresh
// message when none is tracked or the edit fails.
func (e *Engine) editCard(ctx context.Context, userID string, screen domain.Screen) error {
	ids, err := e.ledger.Messages(ctx, userID, domain.RegionWizardCard)
	if err != nil {
		return err
	}

	if len(ids) > 0 {
		last := ids[len(ids)-1]
		if err := e.transport.EditMessageText(ctx, userID, last, screen); err == nil {
			return nil
		}
		e.logger.Debug("edit failed, repainting card", "user_id", userID)
	}

	_, err = e.showRegion(ctx, userID, domain.RegionWizardCard, screen)
	return err
}

// editCardKeyboard swaps only the keyboard of the tracked wizard card. Used
// by the weekday toggle so the message does not flicker.
func (e *Engine) editCardKeyboard(ctx context.Context, userID string, keyboard domain.Keyboard) error {
	ids, err := e.ledger.Messages(ctx, userID, domain.RegionWizardCard)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return e.transport.EditMessageKeyboard(ctx, userID, ids[len(ids)-1], keyboard)
}

// dropMessage deletes one transient message and forgets it in the ledger
// without touching the rest of its region. Delete failures are swallowed the
// same way clearRegion swallows them.
func (e *Engine) dropMessage(ctx context.Context, userID string, messageID int) error {
	if err := e.transport.DeleteMessage(ctx, userID, messageID); err != nil {
		e.logger.Debug("delete of transient message failed",
			"user_id", userID, "message_id", messageID, "err", err)
	}
	return e.ledger.Drop(ctx, userID, messageID)
}

// clearAllRegions wipes every tracked region for the user.
func (e *Engine) clearAllRegions(ctx context.Context, userID string) error {
	for _, region := range domain.Regions {
		if err := e.clearRegion(ctx, userID, region); err != nil {
			return err
		}
	}
	return nil
}
