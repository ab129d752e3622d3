// Package engine drives the conversational session machine: it receives chat
// events, advances per-user wizard sessions, and repaints the UI through the
// chat transport. All domain decisions live in the backend; the engine only
// orchestrates.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/vkarpenko/slotbot/internal/logging"
	"github.com/vkarpenko/slotbot/internal/observability"
	"github.com/vkarpenko/slotbot/pkg/domain"
	"github.com/vkarpenko/slotbot/pkg/ports"
	"github.com/vkarpenko/slotbot/pkg/session"
)

const (
	pageSize         = 5
	overviewPageSize = 10
)

// Engine handles chat events for all users.
type Engine struct {
	sessions  *session.Manager
	ledger    ports.LedgerStore
	transport ports.ChatTransport
	gateway   ports.Gateway
	logger    *slog.Logger
	metrics   *observability.Metrics

	callbacks map[string]callbackHandler
	texts     map[domain.StateID]textHandler
}

// callbackHandler processes one callback namespace.
type callbackHandler func(ctx context.Context, sess *domain.Session, payload string) error

// textHandler processes free text for one wizard state.
type textHandler func(ctx context.Context, sess *domain.Session, text string) error

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics enables Prometheus reporting.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates the engine and declares its full routing table. Every callback
// namespace and every text-accepting state is listed here; anything else is
// ignored with a log line.
func New(sessions *session.Manager, ledger ports.LedgerStore, transport ports.ChatTransport, gateway ports.Gateway, opts ...Option) *Engine {
	e := &Engine{
		sessions:  sessions,
		ledger:    ledger,
		transport: transport,
		gateway:   gateway,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.callbacks = map[string]callbackHandler{
		// Main menu
		"menu_main":     e.onMenuMain,
		"menu_search":   e.onMenuSearch,
		"menu_tasks":    e.onMenuTasks,
		"menu_autobook": e.onMenuAutobook,
		"menu_moves":    e.onMenuMoves,
		"menu_auth":     e.onMenuAuth,
		"menu_status":   e.onMenuStatus,
		"menu_logout":   e.onMenuLogout,
		"menu_help":     e.onMenuHelp,

		// Slot-search wizard
		"wh_page":      e.onWarehousePage,
		"slot_wh_id":   e.onSlotWarehouse,
		"slot_supply":  e.onSlotSupply,
		"slot_coef":    e.onSlotCoef,
		"slot_log":     e.onSlotLogistics,
		"slot_period":  e.onSlotPeriod,
		"slot_lead":    e.onSlotLead,
		"slot_day":     e.onSlotDay,
		"slot_back":    e.onSlotBack,
		"slot_confirm": e.onSlotConfirm,

		// Slot task list and cards
		"slot_tasks_page": e.onSlotTasksPage,
		"slot_task_open":  e.onSlotTaskOpen,
		"slot_cancel":     e.onSlotCancel,
		"slot_restart":    e.onSlotRestart,
		"slot_delete":     e.onSlotDelete,

		// Task history
		"tasks_history_search":        e.onHistorySearch,
		"tasks_history_autobook":      e.onHistoryAutobook,
		"tasks_history_search_page":   e.onHistorySearchPage,
		"tasks_history_autobook_page": e.onHistoryAutobookPage,

		// Autobook from an existing search
		"autobook_from_search":    e.onAutobookFromSearch,
		"autobook_choose_account": e.onAutobookAccount,
		"autobook_transit":        e.onAutobookTransit,
		"autobook_choose_draft":   e.onAutobookDraft,
		"autobook_confirm":        e.onAutobookConfirm,

		// Autobook menu, list and cards
		"autobook_menu":         e.onAutobookMenu,
		"autobook_page":         e.onAutobookPage,
		"autobook_open":         e.onAutobookOpen,
		"autobook_start":        e.onAutobookStart,
		"autobook_stop":         e.onAutobookStop,
		"autobook_delete":       e.onAutobookDelete,
		"autobook_load":         e.onAutobookLoad,
		"autobook_back_to_list": e.onAutobookBackToList,
		"autobook_main_menu":    e.onMenuMain,

		// Autobook from the seller cabinet
		"autobook_new_refresh": e.onAutobookNewRefresh,
		"autobook_new_account": e.onAutobookNewAccount,
		"autobook_drafts_page": e.onAutobookDraftsPage,
		"autobook_new_draft":   e.onAutobookNewDraft,
		"autobook_new_request": e.onAutobookNewRequest,
		"autobook_new_confirm": e.onAutobookNewConfirm,
		"autobook_new_retry":   e.onAutobookNewRetry,
		"autobook_new_cancel":  e.onMenuMain,

		// Stock moves
		"moves_create":    e.onMovesCreate,
		"moves_acc":       e.onMoveAccount,
		"moves_art_page":  e.onMoveArticlePage,
		"moves_art":       e.onMoveArticle,
		"moves_from":      e.onMoveFrom,
		"moves_to":        e.onMoveTo,
		"moves_confirm":   e.onMoveConfirm,
		"moves_back":      e.onMoveBack,
		"moves_list_page": e.onMovesListPage,
		"moves_open":      e.onMoveOpen,
		"moves_stop":      e.onMoveStop,
		"moves_start":     e.onMoveStart,
	}

	e.texts = map[domain.StateID]textHandler{
		domain.StateAuthWaitPhone: e.onAuthPhone,
		domain.StateAuthWaitCode:  e.onAuthCode,
		domain.StateMoveChooseQty: e.onMoveQty,
	}

	return e
}

// HandleEvent processes one chat event under the user's session lock. Events
// from the same user are strictly serialized; distinct users run in parallel.
func (e *Engine) HandleEvent(ctx context.Context, userID string, ev domain.Event) error {
	correlationID := uuid.NewString()
	logger := e.logger.With("user_id", userID, "correlation_id", correlationID)
	start := time.Now()

	var wizard domain.WizardKind

	err := e.sessions.WithLock(ctx, userID, func(ctx context.Context) error {
		sess, err := e.loadOrStart(ctx, userID)
		if err != nil {
			return err
		}

		if dispatchErr := e.dispatchSafe(ctx, logger, sess, ev); dispatchErr != nil {
			// Gateway failures become an error screen, not a lost update.
			e.reportFailure(ctx, logger, sess, dispatchErr)
		}
		wizard = sess.Wizard

		return e.sessions.Store().Save(ctx, userID, sess)
	})

	if e.metrics != nil {
		e.metrics.ObserveEvent(string(ev.Kind), string(wizard), time.Since(start))
	}
	if err != nil {
		logger.Error("event handling failed", "err", err)
	}
	return err
}

func (e *Engine) loadOrStart(ctx context.Context, userID string) (*domain.Session, error) {
	sess, err := e.sessions.Store().Load(ctx, userID)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, err
	}
	return domain.NewSession(userID), nil
}

// dispatchSafe converts a handler panic into an error so one user's failure
// can never take the process down with it.
func (e *Engine) dispatchSafe(ctx context.Context, logger *slog.Logger, sess *domain.Session, ev domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("handler panicked", "panic", r, "state", sess.State)
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return e.dispatch(ctx, logger, sess, ev)
}

func (e *Engine) dispatch(ctx context.Context, logger *slog.Logger, sess *domain.Session, ev domain.Event) error {
	switch ev.Kind {
	case domain.EventText:
		text := strings.TrimSpace(ev.Text)
		if strings.HasPrefix(text, "/") {
			return e.onCommand(ctx, logger, sess, text)
		}
		handler, ok := e.texts[sess.State]
		if !ok {
			logger.Debug("text outside an input state ignored", "state", sess.State)
			return e.hintUseButtons(ctx, sess)
		}
		return handler(ctx, sess, text)

	case domain.EventCallback:
		namespace, payload := ev.Callback()
		handler, ok := e.callbacks[namespace]
		if !ok {
			logger.Warn("unknown callback ignored", "namespace", namespace)
			return nil
		}
		logger.Debug("callback", "namespace", namespace, "payload", payload)
		return handler(ctx, sess, payload)
	}
	return nil
}

func (e *Engine) onCommand(ctx context.Context, logger *slog.Logger, sess *domain.Session, text string) error {
	cmd, arg, _ := strings.Cut(text, " ")
	_ = arg
	switch cmd {
	case "/start":
		if err := e.gateway.RegisterUser(ctx, sess.UserID, ""); err != nil {
			// Registration is idempotent upstream; a failure here only
			// costs a log line, the menu still works.
			logger.Warn("register on /start failed", "err", err)
		}
		return e.onMenuMain(ctx, sess, "")
	case "/help":
		return e.onMenuHelp(ctx, sess, "")
	default:
		logger.Debug("unknown command ignored", "command", cmd)
		return e.onMenuMain(ctx, sess, "")
	}
}

// reportFailure renders a gateway failure into the wizard-card region. The
// session keeps its state so the user can retry the same step.
func (e *Engine) reportFailure(ctx context.Context, logger *slog.Logger, sess *domain.Session, err error) {
	text := "Произошла ошибка. Попробуйте ещё раз."
	label := "internal"
	var gwErr *domain.GatewayError
	if errors.As(err, &gwErr) {
		label = string(gwErr.Kind)
		switch gwErr.Kind {
		case domain.FailTimeout:
			text = "Сервис отвечает слишком долго. Попробуйте ещё раз через минуту."
		case domain.FailNetwork:
			text = "Сервис временно недоступен. Попробуйте ещё раз позже."
		case domain.FailNotFound:
			text = "Запись не найдена. Возможно, она уже удалена."
		case domain.FailStatus:
			text = "Сервис отклонил запрос. Попробуйте ещё раз."
			if gwErr.Detail != "" {
				text = "Сервис отклонил запрос: " + gwErr.Detail
			}
		}
	}
	logger.Warn("step failed", "failure", label, "err", err)
	if e.metrics != nil {
		e.metrics.EventErrorsTotal.WithLabelValues(label).Inc()
	}

	kb := domain.Keyboard{}
	if cb, ok := retrySubmit(sess); ok {
		kb = kb.Row(domain.Button{Text: "🔁 Повторить", Callback: cb})
	}
	kb = kb.Row(domain.Button{Text: "В главное меню", Callback: "menu_main"})

	screen := domain.Screen{Text: text, Keyboard: kb}
	if _, sendErr := e.showRegion(ctx, sess.UserID, domain.RegionWizardCard, screen); sendErr != nil {
		logger.Error("failed to render error screen", "err", sendErr)
	}
}

// retrySubmit returns the callback that re-runs a wizard's final submission.
// Sessions sitting on a confirm step get a retry button on the error screen;
// everywhere else the failed step is reachable again through its own buttons.
func retrySubmit(sess *domain.Session) (string, bool) {
	switch {
	case sess.In(domain.WizardSlotSearch, domain.StateSlotConfirm):
		return "slot_confirm:create", true
	case sess.In(domain.WizardAutobookFrom, domain.StateABConfirm):
		return "autobook_confirm:", true
	case sess.In(domain.WizardStockMove, domain.StateMoveConfirm):
		return "moves_confirm:", true
	}
	return "", false
}

func (e *Engine) hintUseButtons(ctx context.Context, sess *domain.Session) error {
	screen := domain.Screen{
		Text: "Пожалуйста, используйте кнопки меню.",
		Keyboard: domain.Keyboard{}.
			Row(domain.Button{Text: "В главное меню", Callback: "menu_main"}),
	}
	_, err := e.showRegion(ctx, sess.UserID, domain.RegionWizardCard, screen)
	return err
}

// decodeInto rebuilds a typed value from a scratchpad entry that went through
// a JSON round trip (maps with string keys, float64 numbers).
func decodeInto(sess *domain.Session, key string, out any) bool {
	raw, ok := sess.Get(key)
	if !ok {
		return false
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return false
	}
	return decoder.Decode(raw) == nil
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
