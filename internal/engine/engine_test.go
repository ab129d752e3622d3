package engine

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkarpenko/slotbot/pkg/adapters/memory"
	"github.com/vkarpenko/slotbot/pkg/domain"
	"github.com/vkarpenko/slotbot/pkg/ports"
	"github.com/vkarpenko/slotbot/pkg/session"
)

// fakeTransport records every outbound call and hands out sequential ids.
type fakeTransport struct {
	nextID     int
	sent       []domain.Screen
	edits      []domain.Screen
	kbEdits    []domain.Keyboard
	deleted    []int
	failDelete bool
}

var _ ports.ChatTransport = (*fakeTransport)(nil)

func (t *fakeTransport) SendMessage(_ context.Context, _ string, screen domain.Screen) (int, error) {
	t.nextID++
	t.sent = append(t.sent, screen)
	return t.nextID, nil
}

func (t *fakeTransport) EditMessageText(_ context.Context, _ string, _ int, screen domain.Screen) error {
	t.edits = append(t.edits, screen)
	return nil
}

func (t *fakeTransport) EditMessageKeyboard(_ context.Context, _ string, _ int, keyboard domain.Keyboard) error {
	t.kbEdits = append(t.kbEdits, keyboard)
	return nil
}

func (t *fakeTransport) DeleteMessage(_ context.Context, _ string, messageID int) error {
	if t.failDelete {
		return errors.New("message to delete not found")
	}
	t.deleted = append(t.deleted, messageID)
	return nil
}

// fakeGateway serves canned data and records mutating requests.
type fakeGateway struct {
	registered []string

	resolvedID   string
	resolveCalls []string

	authStart    domain.AuthStartResult
	authStartErr error
	authPhones   []string
	authCodes    []string
	authStatus   domain.AuthStatus
	logoutErr    error

	warehousePages  []domain.WarehousePage
	warehousesErr   error
	warehousesPanic bool

	slotTasks     []domain.SlotTask
	createdSlot   *domain.CreateSlotSearchRequest
	createSlotErr error
	slotCancelled []int
	slotRestarted []int
	slotDeleted   []int

	history      domain.HistoryPage
	historyTypes []string

	autobookOpts    domain.AutobookOptions
	createdAutobook *domain.CreateAutobookRequest

	accounts           []domain.Account
	overviewPages      map[int]domain.Overview
	overviewCalls      []overviewCall
	slotRequests       []domain.SlotRequest
	createdAutobookNew *domain.CreateAutobookNewRequest

	loadResult domain.LoadResult
	loadUsers  []string

	moveOpts    domain.MoveOptions
	moveTasks   []domain.MoveTask
	createdMove *domain.CreateMoveRequest
}

type overviewCall struct {
	accountID string
	page      int
}

var _ ports.Gateway = (*fakeGateway)(nil)

func (g *fakeGateway) RegisterUser(_ context.Context, userID, _ string) error {
	g.registered = append(g.registered, userID)
	return nil
}

func (g *fakeGateway) ResolveUserID(_ context.Context, userID string) (string, error) {
	g.resolveCalls = append(g.resolveCalls, userID)
	if g.resolvedID != "" {
		return g.resolvedID, nil
	}
	return userID, nil
}

func (g *fakeGateway) AuthStart(_ context.Context, _, phone string) (domain.AuthStartResult, error) {
	g.authPhones = append(g.authPhones, phone)
	return g.authStart, g.authStartErr
}

func (g *fakeGateway) AuthConfirm(_ context.Context, _, _, code string) error {
	g.authCodes = append(g.authCodes, code)
	return nil
}

func (g *fakeGateway) AuthStatus(_ context.Context, _ string) (domain.AuthStatus, error) {
	return g.authStatus, nil
}

func (g *fakeGateway) Logout(context.Context, string) error { return g.logoutErr }

func (g *fakeGateway) Warehouses(_ context.Context, page int) (domain.WarehousePage, error) {
	if g.warehousesPanic {
		panic("warehouse cache corrupted")
	}
	if g.warehousesErr != nil {
		return domain.WarehousePage{}, g.warehousesErr
	}
	if page < 0 || page >= len(g.warehousePages) {
		return domain.WarehousePage{Pages: len(g.warehousePages)}, nil
	}
	return g.warehousePages[page], nil
}

func (g *fakeGateway) ListSlotTasks(context.Context, string) ([]domain.SlotTask, error) {
	return g.slotTasks, nil
}

func (g *fakeGateway) CreateSlotSearch(_ context.Context, req domain.CreateSlotSearchRequest) (domain.SlotTask, error) {
	if g.createSlotErr != nil {
		return domain.SlotTask{}, g.createSlotErr
	}
	g.createdSlot = &req
	return domain.SlotTask{ID: 42}, nil
}

func (g *fakeGateway) CancelSlotTask(_ context.Context, _ string, taskID int) error {
	g.slotCancelled = append(g.slotCancelled, taskID)
	return nil
}

func (g *fakeGateway) RestartSlotTask(_ context.Context, _ string, taskID int) error {
	g.slotRestarted = append(g.slotRestarted, taskID)
	return nil
}

func (g *fakeGateway) DeleteSlotTask(_ context.Context, _ string, taskID int) error {
	g.slotDeleted = append(g.slotDeleted, taskID)
	return nil
}

func (g *fakeGateway) TaskHistory(_ context.Context, _, taskType string, _, _ int) (domain.HistoryPage, error) {
	g.historyTypes = append(g.historyTypes, taskType)
	return g.history, nil
}

func (g *fakeGateway) AutobookOptions(context.Context, string, int) (domain.AutobookOptions, error) {
	return g.autobookOpts, nil
}

func (g *fakeGateway) CreateAutobook(_ context.Context, req domain.CreateAutobookRequest) (domain.AutobookTask, error) {
	g.createdAutobook = &req
	return domain.AutobookTask{ID: 77}, nil
}

func (g *fakeGateway) ListAutobooks(context.Context, string) ([]domain.AutobookTask, error) {
	return nil, nil
}

func (g *fakeGateway) StartAutobook(context.Context, string, int) error { return nil }
func (g *fakeGateway) StopAutobook(context.Context, string, int) error { return nil }
func (g *fakeGateway) DeleteAutobook(context.Context, string, int) error { return nil }

func (g *fakeGateway) Accounts(context.Context, string) ([]domain.Account, error) {
	return g.accounts, nil
}
func (g *fakeGateway) SyncAccounts(context.Context, string) error { return nil }

func (g *fakeGateway) Overview(_ context.Context, _, accountID string, page int) (domain.Overview, error) {
	g.overviewCalls = append(g.overviewCalls, overviewCall{accountID: accountID, page: page})
	return g.overviewPages[page], nil
}

func (g *fakeGateway) SlotRequests(context.Context, string) ([]domain.SlotRequest, error) {
	return g.slotRequests, nil
}

func (g *fakeGateway) CreateAutobookNew(_ context.Context, req domain.CreateAutobookNewRequest) (domain.AutobookTask, error) {
	g.createdAutobookNew = &req
	return domain.AutobookTask{ID: 88}, nil
}

func (g *fakeGateway) MoveOptions(context.Context, string) (domain.MoveOptions, error) {
	return g.moveOpts, nil
}

func (g *fakeGateway) ListMoveTasks(context.Context, string) ([]domain.MoveTask, error) {
	return g.moveTasks, nil
}

func (g *fakeGateway) CreateMoveTask(_ context.Context, req domain.CreateMoveRequest) (domain.MoveTask, error) {
	g.createdMove = &req
	return domain.MoveTask{ID: 7}, nil
}

func (g *fakeGateway) CancelMoveTask(context.Context, string, int) error { return nil }
func (g *fakeGateway) RestartMoveTask(context.Context, string, int) error { return nil }

func (g *fakeGateway) LoadSupplies(_ context.Context, userID string, _ int) (domain.LoadResult, error) {
	g.loadUsers = append(g.loadUsers, userID)
	return g.loadResult, nil
}

type testRig struct {
	engine    *Engine
	store     ports.SessionStore
	ledger    ports.LedgerStore
	transport *fakeTransport
	gateway   *fakeGateway
}

func newTestRig(gateway *fakeGateway) *testRig {
	store := memory.NewStore()
	ledger := memory.NewLedger()
	transport := &fakeTransport{}
	manager := session.NewManager(store)
	return &testRig{
		engine:    New(manager, ledger, transport, gateway),
		store:     store,
		ledger:    ledger,
		transport: transport,
		gateway:   gateway,
	}
}

func (r *testRig) press(t *testing.T, userID, data string) {
	t.Helper()
	require.NoError(t, r.engine.HandleEvent(context.Background(), userID, domain.CallbackEvent(data)))
}

func (r *testRig) typeText(t *testing.T, userID, text string) {
	t.Helper()
	require.NoError(t, r.engine.HandleEvent(context.Background(), userID, domain.TextEvent(text)))
}

func (r *testRig) session(t *testing.T, userID string) *domain.Session {
	t.Helper()
	sess, err := r.store.Load(context.Background(), userID)
	require.NoError(t, err)
	return sess
}

func TestHandleEvent_StartCommand(t *testing.T) {
	rig := newTestRig(&fakeGateway{})

	rig.typeText(t, "100", "/start")

	assert.Equal(t, []string{"100"}, rig.gateway.registered)
	require.NotEmpty(t, rig.transport.sent)
	assert.Equal(t, "Главное меню", rig.transport.sent[len(rig.transport.sent)-1].Text)
}

func TestHandleEvent_UnknownCallbackIgnored(t *testing.T) {
	rig := newTestRig(&fakeGateway{})

	rig.press(t, "100", "no_such_namespace:1")

	assert.Empty(t, rig.transport.sent)
	assert.Empty(t, rig.transport.edits)
}

func TestHandleEvent_TextOutsideInputState(t *testing.T) {
	rig := newTestRig(&fakeGateway{})

	rig.typeText(t, "100", "привет")

	require.NotEmpty(t, rig.transport.sent)
	assert.Contains(t, rig.transport.sent[0].Text, "кнопки")
}

func TestAuthWizard_HappyPath(t *testing.T) {
	rig := newTestRig(&fakeGateway{
		authStart: domain.AuthStartResult{Status: "code_sent", SessionID: "sess-1"},
	})

	rig.press(t, "100", "menu_auth")
	sess := rig.session(t, "100")
	assert.True(t, sess.In(domain.WizardAuth, domain.StateAuthWaitPhone))

	rig.typeText(t, "100", "+7 (912) 345-67-89")
	require.Equal(t, []string{"9123456789"}, rig.gateway.authPhones)
	sess = rig.session(t, "100")
	assert.True(t, sess.In(domain.WizardAuth, domain.StateAuthWaitCode))
	assert.Equal(t, "sess-1", sess.GetString("auth_session_id"))

	rig.typeText(t, "100", "123456")
	require.Equal(t, []string{"123456"}, rig.gateway.authCodes)
	sess = rig.session(t, "100")
	assert.Equal(t, domain.WizardNone, sess.Wizard)
	assert.Equal(t, domain.StateIdle, sess.State)
}

func TestAuthWizard_InvalidPhoneKeepsState(t *testing.T) {
	rig := newTestRig(&fakeGateway{})

	rig.press(t, "100", "menu_auth")
	rig.typeText(t, "100", "12345")

	assert.Empty(t, rig.gateway.authPhones)
	sess := rig.session(t, "100")
	assert.True(t, sess.In(domain.WizardAuth, domain.StateAuthWaitPhone))
}

func TestAuthWizard_AlreadyAuthorized(t *testing.T) {
	rig := newTestRig(&fakeGateway{
		authStart: domain.AuthStartResult{Status: "already_authorized"},
	})

	rig.press(t, "100", "menu_auth")
	rig.typeText(t, "100", "9123456789")

	sess := rig.session(t, "100")
	assert.Equal(t, domain.WizardNone, sess.Wizard)
	require.NotEmpty(t, rig.transport.sent)
	assert.Contains(t, rig.transport.sent[len(rig.transport.sent)-1].Text, "уже авторизованы")
}

func twoWarehousePages() []domain.WarehousePage {
	return []domain.WarehousePage{
		{
			Items: []domain.Warehouse{{ID: 15, Name: "Коледино"}, {ID: 21, Name: "Электросталь"}},
			Page:  0, Pages: 2,
		},
		{
			Items: []domain.Warehouse{{ID: 33, Name: "Казань"}},
			Page:  1, Pages: 2,
		},
	}
}

func TestSlotSearchWizard_CreatesTask(t *testing.T) {
	rig := newTestRig(&fakeGateway{
		warehousePages: twoWarehousePages(),
		authStatus:     domain.AuthStatus{Authorized: true},
		resolvedID:     "user-900",
	})

	rig.press(t, "100", "menu_search")
	rig.press(t, "100", "wh_page:1")
	rig.press(t, "100", "slot_wh_id:33")
	rig.press(t, "100", "slot_supply:box")
	rig.press(t, "100", "slot_coef:3")
	rig.press(t, "100", "slot_log:any")
	rig.press(t, "100", "slot_period:14")
	rig.press(t, "100", "slot_lead:2")
	rig.press(t, "100", "slot_day:done")
	rig.press(t, "100", "slot_confirm:create")

	req := rig.gateway.createdSlot
	require.NotNil(t, req)
	assert.Equal(t, "Казань", req.Warehouse)
	assert.Equal(t, "Короба", req.SupplyType)
	assert.Equal(t, "3", req.MaxCoef)
	assert.Equal(t, 9999, req.MaxLogistics)
	assert.Equal(t, 14, req.SearchPeriodDays)
	assert.Equal(t, 2, req.LeadTimeDays)
	assert.Equal(t, "daily", req.Weekdays)
	assert.Equal(t, "100", req.ChatID)
	// The payload carries the backend's user id, not the chat id.
	assert.Equal(t, "user-900", req.UserID)
	assert.Contains(t, rig.gateway.resolveCalls, "100")

	sess := rig.session(t, "100")
	assert.Equal(t, domain.WizardNone, sess.Wizard)
	assert.Empty(t, sess.Data)

	require.NotEmpty(t, rig.transport.sent)
	assert.Contains(t, rig.transport.sent[len(rig.transport.sent)-1].Text, "#42")
}

func TestSlotSearchWizard_WeekdayToggle(t *testing.T) {
	rig := newTestRig(&fakeGateway{
		warehousePages: twoWarehousePages(),
		authStatus:     domain.AuthStatus{Authorized: true},
	})

	rig.press(t, "100", "menu_search")
	rig.press(t, "100", "slot_wh_id:15")
	rig.press(t, "100", "slot_supply:mono")
	rig.press(t, "100", "slot_coef:1")
	rig.press(t, "100", "slot_log:10")
	rig.press(t, "100", "slot_period:30")
	rig.press(t, "100", "slot_lead:0")

	// Turning days off must edit only the keyboard, not repaint the card.
	editsBefore := len(rig.transport.edits)
	rig.press(t, "100", "slot_day:sat")
	rig.press(t, "100", "slot_day:sun")
	assert.Equal(t, editsBefore, len(rig.transport.edits))
	assert.Len(t, rig.transport.kbEdits, 2)

	sess := rig.session(t, "100")
	assert.ElementsMatch(t, []string{"mon", "tue", "wed", "thu", "fri"}, sess.GetStrings("days"))

	rig.press(t, "100", "slot_day:done")
	rig.press(t, "100", "slot_confirm:create")

	require.NotNil(t, rig.gateway.createdSlot)
	assert.Equal(t, "weekdays", rig.gateway.createdSlot.Weekdays)
	assert.Equal(t, 10, rig.gateway.createdSlot.MaxLogistics)
}

func TestSlotSearchWizard_LastDayCannotBeRemoved(t *testing.T) {
	rig := newTestRig(&fakeGateway{
		warehousePages: twoWarehousePages(),
		authStatus:     domain.AuthStatus{Authorized: true},
	})

	rig.press(t, "100", "menu_search")
	rig.press(t, "100", "slot_wh_id:15")
	rig.press(t, "100", "slot_supply:box")
	rig.press(t, "100", "slot_coef:1")
	rig.press(t, "100", "slot_log:any")
	rig.press(t, "100", "slot_period:7")
	rig.press(t, "100", "slot_lead:0")

	for _, day := range []string{"tue", "wed", "thu", "fri", "sat", "sun"} {
		rig.press(t, "100", "slot_day:"+day)
	}
	// Only Monday remains; removing it is refused.
	rig.press(t, "100", "slot_day:mon")

	sess := rig.session(t, "100")
	assert.Equal(t, []string{"mon"}, sess.GetStrings("days"))
}

func TestSlotSearchWizard_BackIsIdempotent(t *testing.T) {
	rig := newTestRig(&fakeGateway{
		warehousePages: twoWarehousePages(),
		authStatus:     domain.AuthStatus{Authorized: true},
	})

	rig.press(t, "100", "menu_search")
	rig.press(t, "100", "slot_wh_id:15")
	rig.press(t, "100", "slot_supply:box")

	rig.press(t, "100", "slot_back:supply")
	rig.press(t, "100", "slot_back:supply")

	sess := rig.session(t, "100")
	assert.True(t, sess.In(domain.WizardSlotSearch, domain.StateSlotSupplyType))

	// The step can be answered again after going back.
	rig.press(t, "100", "slot_supply:mono")
	sess = rig.session(t, "100")
	assert.Equal(t, "Монопаллеты", sess.GetString("supply"))
}

func TestSlotSearchWizard_StaleWarehouseButton(t *testing.T) {
	rig := newTestRig(&fakeGateway{
		warehousePages: twoWarehousePages(),
		authStatus:     domain.AuthStatus{Authorized: true},
	})

	rig.press(t, "100", "menu_search")
	// Id never shown on any visited page.
	rig.press(t, "100", "slot_wh_id:777")

	sess := rig.session(t, "100")
	assert.True(t, sess.In(domain.WizardSlotSearch, domain.StateSlotWarehouse))
	assert.Nil(t, rig.gateway.createdSlot)
}

func moveTestOptions() domain.MoveOptions {
	return domain.MoveOptions{
		Accounts: []domain.Account{{ID: "acc-1", Name: "ИП Иванов"}},
		Articles: []domain.Article{
			{
				ID: "art-1", Name: "Футболка", TotalQty: 12,
				Stocks: []domain.Stock{
					{Warehouse: "Коледино", Qty: 10},
					{Warehouse: "Казань", Qty: 2},
					{Warehouse: "Тула", Qty: 0},
				},
			},
		},
		Warehouses: []domain.Warehouse{
			{ID: 1, Name: "Коледино"}, {ID: 2, Name: "Казань"}, {ID: 3, Name: "Тула"},
		},
	}
}

func TestMoveWizard_CreatesTask(t *testing.T) {
	rig := newTestRig(&fakeGateway{moveOpts: moveTestOptions()})

	rig.press(t, "100", "moves_create")
	rig.press(t, "100", "moves_acc:acc-1")
	rig.press(t, "100", "moves_art:art-1")
	rig.press(t, "100", "moves_from:Коледино")
	rig.press(t, "100", "moves_to:Казань")
	rig.typeText(t, "100", "5")
	rig.press(t, "100", "moves_confirm:")

	req := rig.gateway.createdMove
	require.NotNil(t, req)
	assert.Equal(t, "100", req.UserID)
	assert.Equal(t, "acc-1", req.Account)
	assert.Equal(t, "art-1", req.Article)
	assert.Equal(t, "Коледино", req.FromWarehouse)
	assert.Equal(t, "Казань", req.ToWarehouse)
	assert.Equal(t, 5, req.Qty)

	sess := rig.session(t, "100")
	assert.Equal(t, domain.WizardNone, sess.Wizard)
}

func TestMoveWizard_QtyValidation(t *testing.T) {
	rig := newTestRig(&fakeGateway{moveOpts: moveTestOptions()})

	rig.press(t, "100", "moves_create")
	rig.press(t, "100", "moves_acc:acc-1")
	rig.press(t, "100", "moves_art:art-1")
	rig.press(t, "100", "moves_from:Коледино")
	rig.press(t, "100", "moves_to:Казань")

	for _, input := range []string{"abc", "0", "-3", "11"} {
		rig.typeText(t, "100", input)
		sess := rig.session(t, "100")
		assert.True(t, sess.In(domain.WizardStockMove, domain.StateMoveChooseQty),
			"input %q must not advance the wizard", input)
	}
	require.NotEmpty(t, rig.transport.edits)
	assert.Contains(t, rig.transport.edits[len(rig.transport.edits)-1].Text, "только 10 шт")

	rig.typeText(t, "100", "10")
	sess := rig.session(t, "100")
	assert.True(t, sess.In(domain.WizardStockMove, domain.StateMoveConfirm))
}

func TestMoveWizard_SourceExcludesEmptyAndDestinationExcludesSource(t *testing.T) {
	rig := newTestRig(&fakeGateway{moveOpts: moveTestOptions()})

	rig.press(t, "100", "moves_create")
	rig.press(t, "100", "moves_acc:acc-1")
	rig.press(t, "100", "moves_art:art-1")

	fromScreen := rig.transport.edits[len(rig.transport.edits)-1]
	froms := callbacksWithPrefix(fromScreen.Keyboard, "moves_from:")
	assert.ElementsMatch(t, []string{"moves_from:Коледино", "moves_from:Казань"}, froms)

	rig.press(t, "100", "moves_from:Коледино")
	toScreen := rig.transport.edits[len(rig.transport.edits)-1]
	tos := callbacksWithPrefix(toScreen.Keyboard, "moves_to:")
	assert.ElementsMatch(t, []string{"moves_to:Казань", "moves_to:Тула"}, tos)
}

func TestMenuMain_ResetsSessionAndClearsRegions(t *testing.T) {
	rig := newTestRig(&fakeGateway{warehousePages: twoWarehousePages()})
	ctx := context.Background()

	rig.press(t, "100", "menu_search")
	sess := rig.session(t, "100")
	require.Equal(t, domain.WizardSlotSearch, sess.Wizard)

	// Deletes fail from here on; the ledger must still be emptied.
	rig.transport.failDelete = true
	rig.press(t, "100", "menu_main")

	sess = rig.session(t, "100")
	assert.Equal(t, domain.WizardNone, sess.Wizard)
	assert.Empty(t, sess.Data)

	for _, region := range domain.Regions {
		if region == domain.RegionMain {
			continue
		}
		ids, err := rig.ledger.Messages(ctx, "100", region)
		require.NoError(t, err)
		assert.Empty(t, ids, "region %s must be cleared", region)
	}
}

func TestHandleEvent_GatewayTimeoutRendersErrorScreen(t *testing.T) {
	rig := newTestRig(&fakeGateway{
		warehousesErr: &domain.GatewayError{Kind: domain.FailTimeout, Op: "warehouses"},
	})

	// The failure is reported as a screen, not surfaced to the webhook.
	rig.press(t, "100", "menu_search")

	require.NotEmpty(t, rig.transport.sent)
	assert.Contains(t, rig.transport.sent[len(rig.transport.sent)-1].Text, "слишком долго")

	// The wizard state survives so the user can retry.
	sess := rig.session(t, "100")
	assert.Equal(t, domain.WizardSlotSearch, sess.Wizard)
}

func TestHandleEvent_UserIsolation(t *testing.T) {
	rig := newTestRig(&fakeGateway{
		warehousePages: twoWarehousePages(),
		authStatus:     domain.AuthStatus{Authorized: true},
	})

	rig.press(t, "alice", "menu_search")
	rig.press(t, "bob", "menu_auth")

	assert.True(t, rig.session(t, "alice").In(domain.WizardSlotSearch, domain.StateSlotWarehouse))
	assert.True(t, rig.session(t, "bob").In(domain.WizardAuth, domain.StateAuthWaitPhone))

	rig.press(t, "alice", "slot_wh_id:15")
	assert.True(t, rig.session(t, "bob").In(domain.WizardAuth, domain.StateAuthWaitPhone))
}

func TestSlotTaskCard_Actions(t *testing.T) {
	rig := newTestRig(&fakeGateway{
		slotTasks: []domain.SlotTask{
			{ID: 9, Warehouse: "Коледино", SupplyType: "Короба", MaxCoef: 3, Weekdays: "daily", Status: "active"},
		},
	})

	rig.press(t, "100", "slot_task_open:9")
	card := rig.transport.sent[len(rig.transport.sent)-1]
	assert.Contains(t, card.Text, "Задача поиска слота #9")
	assert.Contains(t, flattenCallbacks(card.Keyboard), "slot_cancel:9")

	rig.press(t, "100", "slot_cancel:9")
	assert.Equal(t, []int{9}, rig.gateway.slotCancelled)

	rig.press(t, "100", "slot_delete:9")
	assert.Equal(t, []int{9}, rig.gateway.slotDeleted)
}

func flattenCallbacks(kb domain.Keyboard) []string {
	var out []string
	for _, row := range kb {
		for _, b := range row {
			out = append(out, b.Callback)
		}
	}
	return out
}

func callbacksWithPrefix(kb domain.Keyboard, prefix string) []string {
	var out []string
	for _, cb := range flattenCallbacks(kb) {
		if len(cb) >= len(prefix) && cb[:len(prefix)] == prefix {
			out = append(out, cb)
		}
	}
	return out
}

func TestWarehousePager_NavButtons(t *testing.T) {
	rig := newTestRig(&fakeGateway{warehousePages: twoWarehousePages()})

	// The first paint lands as a fresh message, later pages edit it in place.
	rig.press(t, "100", "menu_search")
	first := rig.transport.sent[len(rig.transport.sent)-1]
	cbs := flattenCallbacks(first.Keyboard)
	assert.Contains(t, cbs, "wh_page:1")
	assert.NotContains(t, cbs, "wh_page:"+strconv.Itoa(-1))

	rig.press(t, "100", "wh_page:1")
	second := rig.transport.edits[len(rig.transport.edits)-1]
	cbs = flattenCallbacks(second.Keyboard)
	assert.Contains(t, cbs, "wh_page:0")
	assert.NotContains(t, cbs, "wh_page:2")
}

func TestAuthWizard_CodeMustBeDigits(t *testing.T) {
	rig := newTestRig(&fakeGateway{
		authStart: domain.AuthStartResult{Status: "code_sent", SessionID: "sess-1"},
	})

	rig.press(t, "100", "menu_auth")
	rig.typeText(t, "100", "9123456789")

	rig.typeText(t, "100", "12ab")
	assert.Empty(t, rig.gateway.authCodes)
	sess := rig.session(t, "100")
	assert.True(t, sess.In(domain.WizardAuth, domain.StateAuthWaitCode))
	require.NotEmpty(t, rig.transport.edits)
	assert.Contains(t, rig.transport.edits[len(rig.transport.edits)-1].Text, "только из цифр")

	rig.typeText(t, "100", "1234")
	assert.Equal(t, []string{"1234"}, rig.gateway.authCodes)
}

func TestSlotSearchWizard_RequiresAuthorization(t *testing.T) {
	rig := newTestRig(&fakeGateway{warehousePages: twoWarehousePages()})

	rig.press(t, "100", "menu_search")
	rig.press(t, "100", "slot_wh_id:15")

	sess := rig.session(t, "100")
	assert.True(t, sess.In(domain.WizardSlotSearch, domain.StateSlotWarehouse))
	assert.Empty(t, sess.GetString("warehouse"))

	require.NotEmpty(t, rig.transport.edits)
	card := rig.transport.edits[len(rig.transport.edits)-1]
	assert.Contains(t, card.Text, "не авторизованы")
	assert.Contains(t, flattenCallbacks(card.Keyboard), "menu_auth")
}

func TestSlotSearchWizard_LeadTimeShowsDates(t *testing.T) {
	rig := newTestRig(&fakeGateway{
		warehousePages: twoWarehousePages(),
		authStatus:     domain.AuthStatus{Authorized: true},
	})

	rig.press(t, "100", "menu_search")
	rig.press(t, "100", "slot_wh_id:15")
	rig.press(t, "100", "slot_supply:box")
	rig.press(t, "100", "slot_coef:1")
	rig.press(t, "100", "slot_log:any")
	rig.press(t, "100", "slot_period:14")

	screen := rig.transport.edits[len(rig.transport.edits)-1]
	require.NotEmpty(t, screen.Keyboard)
	assert.Equal(t, "Сегодня ("+leadDate(14, 0)+")", screen.Keyboard[0][0].Text)
	assert.Equal(t, "2 дня ("+leadDate(14, 2)+")", screen.Keyboard[0][2].Text)
}

func TestSlotSearchWizard_RetryAfterFailedSubmit(t *testing.T) {
	rig := newTestRig(&fakeGateway{
		warehousePages: twoWarehousePages(),
		authStatus:     domain.AuthStatus{Authorized: true},
		createSlotErr:  &domain.GatewayError{Kind: domain.FailTimeout, Op: "create_slot_search"},
	})

	rig.press(t, "100", "menu_search")
	rig.press(t, "100", "slot_wh_id:15")
	rig.press(t, "100", "slot_supply:box")
	rig.press(t, "100", "slot_coef:1")
	rig.press(t, "100", "slot_log:any")
	rig.press(t, "100", "slot_period:7")
	rig.press(t, "100", "slot_lead:0")
	rig.press(t, "100", "slot_day:done")
	rig.press(t, "100", "slot_confirm:create")

	require.Nil(t, rig.gateway.createdSlot)
	errScreen := rig.transport.sent[len(rig.transport.sent)-1]
	assert.Contains(t, errScreen.Text, "слишком долго")
	require.Contains(t, flattenCallbacks(errScreen.Keyboard), "slot_confirm:create")

	// The same button resubmits the payload once the backend recovers.
	rig.gateway.createSlotErr = nil
	rig.press(t, "100", "slot_confirm:create")
	require.NotNil(t, rig.gateway.createdSlot)
	assert.Equal(t, "Коледино", rig.gateway.createdSlot.Warehouse)
}

func TestMenuLogout_WithoutBackendSession(t *testing.T) {
	rig := newTestRig(&fakeGateway{
		logoutErr: &domain.GatewayError{Kind: domain.FailNotFound, Op: "logout", Status: 404},
	})

	rig.press(t, "100", "menu_logout")

	require.NotEmpty(t, rig.transport.sent)
	assert.Contains(t, rig.transport.sent[len(rig.transport.sent)-1].Text, "и так не авторизованы")
}

func TestHandleEvent_StatusErrorShowsDetail(t *testing.T) {
	rig := newTestRig(&fakeGateway{
		warehousesErr: &domain.GatewayError{
			Kind:   domain.FailStatus,
			Op:     "warehouses",
			Status: 422,
			Detail: "лимит активных задач исчерпан",
		},
	})

	rig.press(t, "100", "menu_search")

	require.NotEmpty(t, rig.transport.sent)
	assert.Contains(t, rig.transport.sent[len(rig.transport.sent)-1].Text, "лимит активных задач исчерпан")
}

func TestHandleEvent_PanicIsContained(t *testing.T) {
	rig := newTestRig(&fakeGateway{
		warehousePages:  twoWarehousePages(),
		warehousesPanic: true,
	})

	// The crash becomes an error screen, not a dead handler.
	rig.press(t, "100", "menu_search")
	require.NotEmpty(t, rig.transport.sent)
	assert.Contains(t, rig.transport.sent[len(rig.transport.sent)-1].Text, "Произошла ошибка")

	// Other users keep working afterwards.
	rig.gateway.warehousesPanic = false
	rig.press(t, "200", "menu_search")
	assert.True(t, rig.session(t, "200").In(domain.WizardSlotSearch, domain.StateSlotWarehouse))
}

func TestTaskHistory_PageMathWithPartialBackendPaging(t *testing.T) {
	// The backend reports only items and total; page math must not blow up
	// on the omitted page size.
	rig := newTestRig(&fakeGateway{
		history: domain.HistoryPage{
			Items: []domain.HistoryItem{
				{ID: 1, Warehouse: "Коледино", SupplyType: "Короба"},
				{ID: 2, Warehouse: "Казань", SupplyType: "Монопаллеты"},
			},
			Total: 7,
		},
	})

	rig.press(t, "100", "tasks_history_search")

	assert.Equal(t, []string{"slot_search"}, rig.gateway.historyTypes)
	require.NotEmpty(t, rig.transport.sent)
	last := rig.transport.sent[len(rig.transport.sent)-1]
	assert.Contains(t, last.Text, "Страница 1 из 2")
	assert.Contains(t, flattenCallbacks(last.Keyboard), "tasks_history_search_page:2")
}

func autobookTestOptions() domain.AutobookOptions {
	return domain.AutobookOptions{
		SlotTask: domain.SlotTask{ID: 9, Warehouse: "Коледино"},
		Accounts: []domain.Account{{ID: "acc-1", Name: "ИП Иванов"}},
		Drafts:   []domain.Draft{{ID: 3, Name: "Поставка март"}},
		TransitWarehouses: []domain.TransitWarehouse{
			{ID: "tw-1", Name: "СЦ Подольск"},
		},
	}
}

func TestAutobookFromSearch_CreatesTask(t *testing.T) {
	rig := newTestRig(&fakeGateway{autobookOpts: autobookTestOptions()})

	rig.press(t, "100", "autobook_from_search:9")
	rig.press(t, "100", "autobook_choose_account:acc-1")
	rig.press(t, "100", "autobook_transit:tw-1")
	rig.press(t, "100", "autobook_choose_draft:3")
	rig.press(t, "100", "autobook_confirm:")

	req := rig.gateway.createdAutobook
	require.NotNil(t, req)
	assert.Equal(t, "100", req.UserID)
	assert.Equal(t, 9, req.SlotTaskID)
	assert.Equal(t, "ИП Иванов", req.SellerName)
	assert.Equal(t, 3, req.DraftID)
	assert.Equal(t, "СЦ Подольск", req.TransitWarehouse)
	assert.Equal(t, "any", req.LogisticsAcceptMode)

	sess := rig.session(t, "100")
	assert.Equal(t, domain.WizardNone, sess.Wizard)
	require.NotEmpty(t, rig.transport.sent)
	assert.Contains(t, rig.transport.sent[len(rig.transport.sent)-1].Text, "#77")
}

func TestAutobookFromSearch_SkipsTransitWhenNoneOffered(t *testing.T) {
	opts := autobookTestOptions()
	opts.TransitWarehouses = nil
	rig := newTestRig(&fakeGateway{autobookOpts: opts})

	rig.press(t, "100", "autobook_from_search:9")
	rig.press(t, "100", "autobook_choose_account:acc-1")

	// No transit step: account pick drops straight into the draft list.
	sess := rig.session(t, "100")
	assert.True(t, sess.In(domain.WizardAutobookFrom, domain.StateABChooseDraft))

	rig.press(t, "100", "autobook_choose_draft:3")
	rig.press(t, "100", "autobook_confirm:")

	req := rig.gateway.createdAutobook
	require.NotNil(t, req)
	assert.Empty(t, req.TransitWarehouse)
}

func TestAutobookNew_OverviewScopedToAccount(t *testing.T) {
	rig := newTestRig(&fakeGateway{
		accounts: []domain.Account{{ID: "acc-1", Name: "ИП Иванов"}},
		overviewPages: map[int]domain.Overview{
			1: {
				Drafts:     []domain.Draft{{ID: 1, Name: "Первый"}},
				Pagination: domain.Pagination{Page: 1, Pages: 2},
			},
			2: {
				Drafts:     []domain.Draft{{ID: 2, Name: "Второй"}},
				Pagination: domain.Pagination{Page: 2, Pages: 2},
			},
		},
	})

	rig.press(t, "100", "autobook_menu:create")
	card := rig.transport.sent[len(rig.transport.sent)-1]
	assert.Contains(t, flattenCallbacks(card.Keyboard), "autobook_new_account:acc-1")

	rig.press(t, "100", "autobook_new_account:acc-1")
	rig.press(t, "100", "autobook_drafts_page:2")

	require.Len(t, rig.gateway.overviewCalls, 2)
	assert.Equal(t, overviewCall{accountID: "acc-1", page: 1}, rig.gateway.overviewCalls[0])
	assert.Equal(t, overviewCall{accountID: "acc-1", page: 2}, rig.gateway.overviewCalls[1])

	page2 := rig.transport.edits[len(rig.transport.edits)-1]
	cbs := flattenCallbacks(page2.Keyboard)
	assert.Contains(t, cbs, "autobook_new_draft:2")
	assert.Contains(t, cbs, "autobook_drafts_page:1")
}

func TestAutobookLoad_RemovesProgressNotice(t *testing.T) {
	rig := newTestRig(&fakeGateway{
		resolvedID: "user-900",
		loadResult: domain.LoadResult{Warehouse: "Коледино", SupplyType: "Короба"},
	})

	rig.press(t, "100", "autobook_load:5")

	// The booking runs under the backend user id.
	assert.Equal(t, []string{"user-900"}, rig.gateway.loadUsers)

	// The progress notice is deleted and forgotten once the result lands.
	assert.Equal(t, []int{1}, rig.transport.deleted)
	ids, err := rig.ledger.Messages(context.Background(), "100", domain.RegionWizardCard)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NotEmpty(t, rig.transport.sent)
	assert.Contains(t, rig.transport.sent[len(rig.transport.sent)-1].Text, "Бронирование выполнено")
}
