// Package telegram implements the chat transport over the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/vkarpenko/slotbot/internal/logging"
	"github.com/vkarpenko/slotbot/pkg/domain"
	"github.com/vkarpenko/slotbot/pkg/ports"
)

const apiBase = "https://api.telegram.org/bot"

// Client talks to the Telegram Bot API. User ids are chat ids in decimal
// string form.
type Client struct {
	token  string
	http   *http.Client
	logger *slog.Logger
}

var _ ports.ChatTransport = (*Client)(nil)

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Telegram transport for the given bot token.
func New(token string, opts ...Option) *Client {
	c := &Client{
		token:  token,
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// inlineKeyboard is the Bot API reply_markup shape.
type inlineKeyboard struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

func markup(kb domain.Keyboard) *inlineKeyboard {
	if len(kb) == 0 {
		return nil
	}
	rows := make([][]inlineButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]inlineButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, inlineButton{Text: b.Text, CallbackData: b.Callback})
		}
		rows = append(rows, buttons)
	}
	return &inlineKeyboard{InlineKeyboard: rows}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

func (c *Client) call(ctx context.Context, method string, payload any, result any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram %s: marshal: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiBase+c.token+"/"+method, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("telegram %s: build request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("telegram %s: read response: %w", method, err)
	}

	var ar apiResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return fmt.Errorf("telegram %s: decode response: %w", method, err)
	}
	if !ar.OK {
		return fmt.Errorf("telegram %s: %s", method, ar.Description)
	}
	if result != nil {
		if err := json.Unmarshal(ar.Result, result); err != nil {
			return fmt.Errorf("telegram %s: decode result: %w", method, err)
		}
	}
	return nil
}

// SendMessage posts a new message and returns its id.
func (c *Client) SendMessage(ctx context.Context, userID string, screen domain.Screen) (int, error) {
	payload := map[string]any{
		"chat_id": userID,
		"text":    screen.Text,
	}
	if mk := markup(screen.Keyboard); mk != nil {
		payload["reply_markup"] = mk
	}

	var result struct {
		MessageID int `json:"message_id"`
	}
	if err := c.call(ctx, "sendMessage", payload, &result); err != nil {
		return 0, err
	}
	return result.MessageID, nil
}

// EditMessageText replaces the text and keyboard of an existing message.
func (c *Client) EditMessageText(ctx context.Context, userID string, messageID int, screen domain.Screen) error {
	payload := map[string]any{
		"chat_id":    userID,
		"message_id": messageID,
		"text":       screen.Text,
	}
	if mk := markup(screen.Keyboard); mk != nil {
		payload["reply_markup"] = mk
	}
	return c.call(ctx, "editMessageText", payload, nil)
}

// EditMessageKeyboard replaces only the keyboard of an existing message.
func (c *Client) EditMessageKeyboard(ctx context.Context, userID string, messageID int, keyboard domain.Keyboard) error {
	payload := map[string]any{
		"chat_id":    userID,
		"message_id": messageID,
	}
	if mk := markup(keyboard); mk != nil {
		payload["reply_markup"] = mk
	}
	return c.call(ctx, "editMessageReplyMarkup", payload, nil)
}

// DeleteMessage removes a message.
func (c *Client) DeleteMessage(ctx context.Context, userID string, messageID int) error {
	payload := map[string]any{
		"chat_id":    userID,
		"message_id": messageID,
	}
	return c.call(ctx, "deleteMessage", payload, nil)
}

// AnswerCallback acknowledges a callback query so the client stops showing a
// progress spinner.
func (c *Client) AnswerCallback(ctx context.Context, callbackID string) error {
	return c.call(ctx, "answerCallbackQuery", map[string]any{"callback_query_id": callbackID}, nil)
}

// Update is the subset of a Bot API update the engine cares about.
type Update struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		MessageID int    `json:"message_id"`
		Text      string `json:"text"`
		From      *User  `json:"from"`
		Chat      Chat   `json:"chat"`
	} `json:"message"`
	CallbackQuery *struct {
		ID      string `json:"id"`
		Data    string `json:"data"`
		From    *User  `json:"from"`
		Message *struct {
			MessageID int  `json:"message_id"`
			Chat      Chat `json:"chat"`
		} `json:"message"`
	} `json:"callback_query"`
}

// User is a Telegram account.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Chat is a Telegram chat.
type Chat struct {
	ID int64 `json:"id"`
}

// ParseUpdate maps an inbound update to an engine event. The second return is
// the callback query id to acknowledge, empty for plain messages. Updates
// with no usable content return ok=false.
func ParseUpdate(u Update) (userID string, ev domain.Event, callbackID string, ok bool) {
	switch {
	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil:
		ev := domain.CallbackEvent(u.CallbackQuery.Data)
		ev.MessageID = strconv.Itoa(u.CallbackQuery.Message.MessageID)
		return strconv.FormatInt(u.CallbackQuery.Message.Chat.ID, 10), ev, u.CallbackQuery.ID, true
	case u.Message != nil && u.Message.Text != "":
		ev := domain.TextEvent(u.Message.Text)
		ev.MessageID = strconv.Itoa(u.Message.MessageID)
		return strconv.FormatInt(u.Message.Chat.ID, 10), ev, "", true
	}
	return "", domain.Event{}, "", false
}
