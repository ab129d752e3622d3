package ports

import (
	"context"

	"github.com/vkarpenko/slotbot/pkg/domain"
)

// Gateway is the client-side port to the business-logic service. Every method
// performs a single HTTP round trip with a bounded timeout and classifies
// failures as *domain.GatewayError values. No method retries.
type Gateway interface {
	// RegisterUser registers a chat user on first contact. Idempotent.
	RegisterUser(ctx context.Context, userID, username string) error

	// ResolveUserID maps an external chat identity to the backend user id.
	ResolveUserID(ctx context.Context, userID string) (string, error)

	// AuthStart submits a phone number and begins WB authorization.
	AuthStart(ctx context.Context, userID, phone string) (domain.AuthStartResult, error)

	// AuthConfirm submits the SMS code for a pending authorization.
	AuthConfirm(ctx context.Context, userID, sessionID, code string) error

	// AuthStatus reports whether the user holds a live WB session.
	AuthStatus(ctx context.Context, userID string) (domain.AuthStatus, error)

	// Logout drops the user's WB session.
	Logout(ctx context.Context, userID string) error

	// Warehouses returns one 0-based page of selectable warehouses.
	Warehouses(ctx context.Context, page int) (domain.WarehousePage, error)

	// ListSlotTasks returns all of the user's slot-search tasks.
	ListSlotTasks(ctx context.Context, userID string) ([]domain.SlotTask, error)

	// CreateSlotSearch creates a slot-search task.
	CreateSlotSearch(ctx context.Context, req domain.CreateSlotSearchRequest) (domain.SlotTask, error)

	// CancelSlotTask stops a running slot-search task.
	CancelSlotTask(ctx context.Context, userID string, taskID int) error

	// RestartSlotTask resumes a stopped slot-search task.
	RestartSlotTask(ctx context.Context, userID string, taskID int) error

	// DeleteSlotTask removes a slot-search task.
	DeleteSlotTask(ctx context.Context, userID string, taskID int) error

	// TaskHistory returns one 1-based page of finished tasks of the given type.
	TaskHistory(ctx context.Context, userID, taskType string, page, pageSize int) (domain.HistoryPage, error)

	// AutobookOptions loads the context for autobooking from an existing search.
	AutobookOptions(ctx context.Context, userID string, slotTaskID int) (domain.AutobookOptions, error)

	// CreateAutobook attaches automated booking to an existing slot search.
	CreateAutobook(ctx context.Context, req domain.CreateAutobookRequest) (domain.AutobookTask, error)

	// ListAutobooks returns all of the user's automated booking tasks.
	ListAutobooks(ctx context.Context, userID string) ([]domain.AutobookTask, error)

	// StartAutobook resumes a stopped booking task.
	StartAutobook(ctx context.Context, userID string, taskID int) error

	// StopAutobook pauses a running booking task.
	StopAutobook(ctx context.Context, userID string, taskID int) error

	// DeleteAutobook removes a booking task.
	DeleteAutobook(ctx context.Context, userID string, taskID int) error

	// Accounts lists the user's seller accounts.
	Accounts(ctx context.Context, userID string) ([]domain.Account, error)

	// SyncAccounts refreshes accounts and drafts from the WB cabinet.
	SyncAccounts(ctx context.Context, userID string) error

	// Overview returns one 1-based page of the seller cabinet overview for
	// the given seller account.
	Overview(ctx context.Context, userID, accountID string, page int) (domain.Overview, error)

	// SlotRequests lists the user's active slot searches for binding.
	SlotRequests(ctx context.Context, userID string) ([]domain.SlotRequest, error)

	// CreateAutobookNew creates a booking task from the cabinet overview.
	CreateAutobookNew(ctx context.Context, req domain.CreateAutobookNewRequest) (domain.AutobookTask, error)

	// MoveOptions loads accounts, articles and warehouses for the move wizard.
	MoveOptions(ctx context.Context, userID string) (domain.MoveOptions, error)

	// ListMoveTasks returns all of the user's stock redistribution tasks.
	ListMoveTasks(ctx context.Context, userID string) ([]domain.MoveTask, error)

	// CreateMoveTask creates a stock redistribution task.
	CreateMoveTask(ctx context.Context, req domain.CreateMoveRequest) (domain.MoveTask, error)

	// CancelMoveTask stops a running redistribution task.
	CancelMoveTask(ctx context.Context, userID string, taskID int) error

	// RestartMoveTask resumes a stopped redistribution task.
	RestartMoveTask(ctx context.Context, userID string, taskID int) error

	// LoadSupplies executes booking for a task synchronously. Long call.
	LoadSupplies(ctx context.Context, userID string, taskID int) (domain.LoadResult, error)
}
