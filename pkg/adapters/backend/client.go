// Package backend implements ports.Gateway over the HTTP API of the
// business-logic service. Every method is a single round trip with a bounded
// timeout; failures come back as *domain.GatewayError values and are never
// retried here.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vkarpenko/slotbot/internal/logging"
	"github.com/vkarpenko/slotbot/pkg/domain"
	"github.com/vkarpenko/slotbot/pkg/ports"
)

// Per-operation timeouts. Auth and cabinet calls go through to WB and are
// slow; booking execution is slower still.
const (
	timeoutDefault  = 10 * time.Second
	timeoutRegister = 5 * time.Second
	timeoutConfirm  = 20 * time.Second
	timeoutCabinet  = 30 * time.Second
	timeoutAuth     = 60 * time.Second
	timeoutLoad     = 120 * time.Second
)

// Client talks to the business-logic service.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

var _ ports.Gateway = (*Client)(nil)

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

// New creates a backend client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		// Per-call deadlines come from the request context, not the client.
		http:   &http.Client{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do performs one round trip and decodes the JSON response into out (if out
// is non-nil). The op name ends up in error values and logs.
func (c *Client) do(ctx context.Context, op, method, path string, timeout time.Duration, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		kind := domain.FailNetwork
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			kind = domain.FailTimeout
		}
		c.logger.Warn("backend call failed", "op", op, "kind", kind, "err", err)
		return &domain.GatewayError{Kind: kind, Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("backend call", "op", op, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode == http.StatusNotFound {
		return &domain.GatewayError{Kind: domain.FailNotFound, Op: op, Status: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &domain.GatewayError{
			Kind:   domain.FailStatus,
			Op:     op,
			Status: resp.StatusCode,
			Detail: errorDetail(raw),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.GatewayError{Kind: domain.FailDecode, Op: op, Err: err}
	}
	return nil
}

// errorDetail pulls the human-readable message out of a backend error body.
// The backend wraps messages in a "detail" field; anything else is passed
// through raw so the failure is still diagnosable.
func errorDetail(raw []byte) string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Detail != "" {
		return body.Detail
	}
	return string(raw)
}

func (c *Client) RegisterUser(ctx context.Context, userID, username string) error {
	body := map[string]string{"telegram_id": userID, "username": username}
	return c.do(ctx, "register_user", http.MethodPost, "/users/register", timeoutRegister, body, nil)
}

func (c *Client) ResolveUserID(ctx context.Context, userID string) (string, error) {
	var out struct {
		UserID string `json:"user_id"`
	}
	err := c.do(ctx, "resolve_user", http.MethodGet, "/users/by-telegram/"+url.PathEscape(userID), timeoutDefault, nil, &out)
	return out.UserID, err
}

func (c *Client) AuthStart(ctx context.Context, userID, phone string) (domain.AuthStartResult, error) {
	body := map[string]string{"telegram_id": userID, "phone": phone}
	var out domain.AuthStartResult
	err := c.do(ctx, "auth_start", http.MethodPost, "/auth/start", timeoutAuth, body, &out)
	return out, err
}

func (c *Client) AuthConfirm(ctx context.Context, userID, sessionID, code string) error {
	body := map[string]string{"telegram_id": userID, "session_id": sessionID, "code": code}
	return c.do(ctx, "auth_confirm", http.MethodPost, "/auth/confirm", timeoutConfirm, body, nil)
}

func (c *Client) AuthStatus(ctx context.Context, userID string) (domain.AuthStatus, error) {
	var out domain.AuthStatus
	err := c.do(ctx, "auth_status", http.MethodGet, "/auth/status?telegram_id="+url.QueryEscape(userID), timeoutDefault, nil, &out)
	return out, err
}

func (c *Client) Logout(ctx context.Context, userID string) error {
	body := map[string]string{"telegram_id": userID}
	return c.do(ctx, "logout", http.MethodPost, "/auth/logout", timeoutDefault, body, nil)
}

func (c *Client) Warehouses(ctx context.Context, page int) (domain.WarehousePage, error) {
	var out domain.WarehousePage
	err := c.do(ctx, "warehouses", http.MethodGet, "/warehouses?page="+strconv.Itoa(page), timeoutDefault, nil, &out)
	return out, err
}

func (c *Client) ListSlotTasks(ctx context.Context, userID string) ([]domain.SlotTask, error) {
	var out struct {
		Tasks []domain.SlotTask `json:"tasks"`
	}
	err := c.do(ctx, "list_slot_tasks", http.MethodGet, "/tasks/slots?user_id="+url.QueryEscape(userID), timeoutDefault, nil, &out)
	return out.Tasks, err
}

func (c *Client) CreateSlotSearch(ctx context.Context, req domain.CreateSlotSearchRequest) (domain.SlotTask, error) {
	var out domain.SlotTask
	err := c.do(ctx, "create_slot_search", http.MethodPost, "/tasks/slots", timeoutConfirm, req, &out)
	return out, err
}

func (c *Client) CancelSlotTask(ctx context.Context, userID string, taskID int) error {
	body := map[string]string{"user_id": userID}
	return c.do(ctx, "cancel_slot_task", http.MethodPost, "/tasks/slots/"+strconv.Itoa(taskID)+"/cancel", timeoutDefault, body, nil)
}

func (c *Client) RestartSlotTask(ctx context.Context, userID string, taskID int) error {
	body := map[string]string{"user_id": userID}
	return c.do(ctx, "restart_slot_task", http.MethodPost, "/tasks/slots/"+strconv.Itoa(taskID)+"/restart", timeoutDefault, body, nil)
}

func (c *Client) DeleteSlotTask(ctx context.Context, userID string, taskID int) error {
	return c.do(ctx, "delete_slot_task", http.MethodDelete, "/tasks/slots/"+strconv.Itoa(taskID)+"?user_id="+url.QueryEscape(userID), timeoutDefault, nil, nil)
}

func (c *Client) TaskHistory(ctx context.Context, userID, taskType string, page, pageSize int) (domain.HistoryPage, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	q.Set("type", taskType)
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))
	var out domain.HistoryPage
	err := c.do(ctx, "task_history", http.MethodGet, "/tasks/history?"+q.Encode(), timeoutDefault, nil, &out)
	return out, err
}

func (c *Client) AutobookOptions(ctx context.Context, userID string, slotTaskID int) (domain.AutobookOptions, error) {
	var out domain.AutobookOptions
	path := "/tasks/slots/" + strconv.Itoa(slotTaskID) + "/autobook-options?user_id=" + url.QueryEscape(userID)
	err := c.do(ctx, "autobook_options", http.MethodGet, path, timeoutCabinet, nil, &out)
	return out, err
}

func (c *Client) CreateAutobook(ctx context.Context, req domain.CreateAutobookRequest) (domain.AutobookTask, error) {
	var out domain.AutobookTask
	err := c.do(ctx, "create_autobook", http.MethodPost, "/tasks/autobook", timeoutConfirm, req, &out)
	return out, err
}

func (c *Client) ListAutobooks(ctx context.Context, userID string) ([]domain.AutobookTask, error) {
	var out struct {
		Tasks []domain.AutobookTask `json:"tasks"`
	}
	err := c.do(ctx, "list_autobooks", http.MethodGet, "/tasks/autobook?user_id="+url.QueryEscape(userID), timeoutDefault, nil, &out)
	return out.Tasks, err
}

func (c *Client) StartAutobook(ctx context.Context, userID string, taskID int) error {
	body := map[string]string{"user_id": userID}
	return c.do(ctx, "start_autobook", http.MethodPost, "/tasks/autobook/"+strconv.Itoa(taskID)+"/start", timeoutDefault, body, nil)
}

func (c *Client) StopAutobook(ctx context.Context, userID string, taskID int) error {
	body := map[string]string{"user_id": userID}
	return c.do(ctx, "stop_autobook", http.MethodPost, "/tasks/autobook/"+strconv.Itoa(taskID)+"/stop", timeoutDefault, body, nil)
}

func (c *Client) DeleteAutobook(ctx context.Context, userID string, taskID int) error {
	return c.do(ctx, "delete_autobook", http.MethodDelete, "/tasks/autobook/"+strconv.Itoa(taskID)+"?user_id="+url.QueryEscape(userID), timeoutDefault, nil, nil)
}

func (c *Client) Accounts(ctx context.Context, userID string) ([]domain.Account, error) {
	var out struct {
		Accounts []domain.Account `json:"accounts"`
	}
	err := c.do(ctx, "accounts", http.MethodGet, "/accounts?user_id="+url.QueryEscape(userID), timeoutCabinet, nil, &out)
	return out.Accounts, err
}

func (c *Client) SyncAccounts(ctx context.Context, userID string) error {
	body := map[string]string{"user_id": userID}
	return c.do(ctx, "sync_accounts", http.MethodPost, "/accounts/sync", timeoutCabinet, body, nil)
}

func (c *Client) Overview(ctx context.Context, userID, accountID string, page int) (domain.Overview, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	q.Set("seller_account_id", accountID)
	q.Set("page", strconv.Itoa(page))
	var out domain.Overview
	err := c.do(ctx, "overview", http.MethodGet, "/cabinet/overview?"+q.Encode(), timeoutCabinet, nil, &out)
	return out, err
}

func (c *Client) SlotRequests(ctx context.Context, userID string) ([]domain.SlotRequest, error) {
	var out struct {
		Requests []domain.SlotRequest `json:"requests"`
	}
	err := c.do(ctx, "slot_requests", http.MethodGet, "/slot-requests?user_id="+url.QueryEscape(userID), timeoutDefault, nil, &out)
	return out.Requests, err
}

func (c *Client) CreateAutobookNew(ctx context.Context, req domain.CreateAutobookNewRequest) (domain.AutobookTask, error) {
	var out domain.AutobookTask
	err := c.do(ctx, "create_autobook_new", http.MethodPost, "/tasks/autobook/new", timeoutConfirm, req, &out)
	return out, err
}

func (c *Client) MoveOptions(ctx context.Context, userID string) (domain.MoveOptions, error) {
	var out domain.MoveOptions
	err := c.do(ctx, "move_options", http.MethodGet, "/moves/options?user_id="+url.QueryEscape(userID), timeoutCabinet, nil, &out)
	return out, err
}

func (c *Client) ListMoveTasks(ctx context.Context, userID string) ([]domain.MoveTask, error) {
	var out struct {
		Tasks []domain.MoveTask `json:"tasks"`
	}
	err := c.do(ctx, "list_move_tasks", http.MethodGet, "/tasks/moves?user_id="+url.QueryEscape(userID), timeoutDefault, nil, &out)
	return out.Tasks, err
}

func (c *Client) CreateMoveTask(ctx context.Context, req domain.CreateMoveRequest) (domain.MoveTask, error) {
	var out domain.MoveTask
	err := c.do(ctx, "create_move_task", http.MethodPost, "/tasks/moves", timeoutConfirm, req, &out)
	return out, err
}

func (c *Client) CancelMoveTask(ctx context.Context, userID string, taskID int) error {
	body := map[string]string{"user_id": userID}
	return c.do(ctx, "cancel_move_task", http.MethodPost, "/tasks/moves/"+strconv.Itoa(taskID)+"/cancel", timeoutDefault, body, nil)
}

func (c *Client) RestartMoveTask(ctx context.Context, userID string, taskID int) error {
	body := map[string]string{"user_id": userID}
	return c.do(ctx, "restart_move_task", http.MethodPost, "/tasks/moves/"+strconv.Itoa(taskID)+"/restart", timeoutDefault, body, nil)
}

func (c *Client) LoadSupplies(ctx context.Context, userID string, taskID int) (domain.LoadResult, error) {
	body := map[string]string{"user_id": userID}
	var out domain.LoadResult
	err := c.do(ctx, "load_supplies", http.MethodPost, "/tasks/"+strconv.Itoa(taskID)+"/load-supplies", timeoutLoad, body, &out)
	return out, err
}
