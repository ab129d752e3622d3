package ports

import (
	"context"

	"github.com/vkarpenko/slotbot/pkg/domain"
)

// ChatTransport sends rendered screens to the chat front-end. Implementations
// wrap a concrete messenger API; the engine never sees transport payloads.
type ChatTransport interface {
	// SendMessage posts a new message and returns its id.
	SendMessage(ctx context.Context, userID string, screen domain.Screen) (int, error)

	// EditMessageText replaces the text and keyboard of an existing message.
	EditMessageText(ctx context.Context, userID string, messageID int, screen domain.Screen) error

	// EditMessageKeyboard replaces only the keyboard of an existing message.
	EditMessageKeyboard(ctx context.Context, userID string, messageID int, keyboard domain.Keyboard) error

	// DeleteMessage removes a message. Deleting an already-gone message is
	// reported as an error but is not fatal to callers.
	DeleteMessage(ctx context.Context, userID string, messageID int) error
}
