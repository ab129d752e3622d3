package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/vkarpenko/slotbot/pkg/domain"
)

// startAutobookNew begins the cabinet-based autobook wizard. With refresh set
// the seller cabinet is synced first, which takes noticeably longer.
func (e *Engine) startAutobookNew(ctx context.Context, sess *domain.Session, refresh bool) error {
	if refresh {
		wait := domain.Screen{Text: "🔄 Обновляю данные кабинета..."}
		if err := e.editCard(ctx, sess.UserID, wait); err != nil {
			return err
		}
		if err := e.gateway.SyncAccounts(ctx, sess.UserID); err != nil {
			return err
		}
	}

	accounts, err := e.gateway.Accounts(ctx, sess.UserID)
	if err != nil {
		return err
	}

	if len(accounts) == 0 {
		screen := domain.Screen{
			Text: "Кабинеты продавца не найдены.\nПопробуйте обновить данные или выполните авторизацию WB.",
			Keyboard: domain.Keyboard{}.
				Row(domain.Button{Text: "🔄 Обновить", Callback: "autobook_new_refresh"}).
				Row(domain.Button{Text: "🔑 Авторизация WB", Callback: "menu_auth"}).
				Row(domain.Button{Text: "В главное меню", Callback: "menu_main"}),
		}
		_, err := e.showRegion(ctx, sess.UserID, domain.RegionWizardCard, screen)
		return err
	}

	sess.Begin(domain.WizardAutobookNew, domain.StateABNewChooseAccount)
	// Cached so the account pick can recover the name from the id.
	sess.Set("accounts", accounts)

	kb := domain.Keyboard{}
	for _, acc := range accounts {
		kb = kb.Row(domain.Button{Text: acc.Name, Callback: "autobook_new_account:" + acc.ID})
	}
	kb = kb.
		Row(domain.Button{Text: "🔄 Обновить", Callback: "autobook_new_refresh"}).
		Row(domain.Button{Text: "Отмена", Callback: "autobook_new_cancel"})

	screen := domain.Screen{
		Text:     "Выберите кабинет продавца.",
		Keyboard: kb,
	}
	_, err = e.showRegion(ctx, sess.UserID, domain.RegionWizardCard, screen)
	return err
}

func (e *Engine) onAutobookNewRefresh(ctx context.Context, sess *domain.Session, _ string) error {
	return e.startAutobookNew(ctx, sess, true)
}

func (e *Engine) onAutobookNewAccount(ctx context.Context, sess *domain.Session, payload string) error {
	if !sess.In(domain.WizardAutobookNew, domain.StateABNewChooseAccount) {
		return e.onMenuMain(ctx, sess, "")
	}

	var accounts []domain.Account
	decodeInto(sess, "accounts", &accounts)
	name := ""
	for _, acc := range accounts {
		if acc.ID == payload {
			name = acc.Name
			break
		}
	}
	if name == "" {
		// Stale button from a cleared session.
		return e.startAutobookNew(ctx, sess, false)
	}

	sess.Set("seller_account_id", payload)
	sess.Set("seller_name", name)
	sess.SetState(domain.StateABNewChooseDraft)
	return e.showOverviewDrafts(ctx, sess, 1)
}

func (e *Engine) onAutobookDraftsPage(ctx context.Context, sess *domain.Session, payload string) error {
	if !sess.In(domain.WizardAutobookNew, domain.StateABNewChooseDraft) {
		return e.onMenuMain(ctx, sess, "")
	}
	return e.showOverviewDrafts(ctx, sess, atoiOr(payload, 1))
}

// showOverviewDrafts renders one 1-based page of the cabinet overview.
func (e *Engine) showOverviewDrafts(ctx context.Context, sess *domain.Session, page int) error {
	if page < 1 {
		page = 1
	}

	ov, err := e.gateway.Overview(ctx, sess.UserID, sess.GetString("seller_account_id"), page)
	if err != nil {
		return err
	}

	if len(ov.Drafts) == 0 {
		screen := domain.Screen{
			Text: "В кабинете нет черновиков поставок.\nСоздайте черновик в кабинете WB и обновите данные.",
			Keyboard: domain.Keyboard{}.
				Row(domain.Button{Text: "🔄 Обновить", Callback: "autobook_new_refresh"}).
				Row(domain.Button{Text: "Отмена", Callback: "autobook_new_cancel"}),
		}
		return e.editCard(ctx, sess.UserID, screen)
	}

	kb := domain.Keyboard{}
	for _, d := range ov.Drafts {
		kb = kb.Row(domain.Button{Text: draftLine(d), Callback: "autobook_new_draft:" + strconv.Itoa(d.ID)})
	}

	var nav []domain.Button
	if ov.Pagination.Page > 1 {
		nav = append(nav, domain.Button{Text: "⬅️", Callback: "autobook_drafts_page:" + strconv.Itoa(ov.Pagination.Page-1)})
	}
	if ov.Pagination.Page < ov.Pagination.Pages {
		nav = append(nav, domain.Button{Text: "➡️", Callback: "autobook_drafts_page:" + strconv.Itoa(ov.Pagination.Page+1)})
	}
	if len(nav) > 0 {
		kb = kb.Row(nav...)
	}
	kb = kb.Row(domain.Button{Text: "Отмена", Callback: "autobook_new_cancel"})

	text := fmt.Sprintf("Кабинет: %s\n\nВыберите черновик поставки.\nСтраница %d из %d",
		sess.GetString("seller_name"), ov.Pagination.Page, ov.Pagination.Pages)
	return e.editCard(ctx, sess.UserID, domain.Screen{Text: text, Keyboard: kb})
}

func (e *Engine) onAutobookNewDraft(ctx context.Context, sess *domain.Session, payload string) error {
	if !sess.In(domain.WizardAutobookNew, domain.StateABNewChooseDraft) {
		return e.onMenuMain(ctx, sess, "")
	}

	sess.Set("draft_id", atoiOr(payload, 0))
	sess.SetState(domain.StateABNewChooseRequest)

	requests, err := e.gateway.SlotRequests(ctx, sess.UserID)
	if err != nil {
		return err
	}

	if len(requests) == 0 {
		sess.Reset()
		screen := domain.Screen{
			Text: "У вас нет активных поисков слота.\nСначала создайте задачу поиска, автобронирование привязывается к ней.",
			Keyboard: domain.Keyboard{}.
				Row(domain.Button{Text: "🔍 Создать поиск", Callback: "menu_search"}).
				Row(domain.Button{Text: "В главное меню", Callback: "menu_main"}),
		}
		_, err := e.showRegion(ctx, sess.UserID, domain.RegionWizardCard, screen)
		return err
	}

	// Cache for the confirm screen.
	sess.Set("slot_requests", requests)

	kb := domain.Keyboard{}
	for _, r := range requests {
		kb = kb.Row(domain.Button{Text: slotRequestLine(r), Callback: "autobook_new_request:" + strconv.Itoa(r.ID)})
	}
	kb = kb.Row(domain.Button{Text: "Отмена", Callback: "autobook_new_cancel"})

	return e.editCard(ctx, sess.UserID, domain.Screen{
		Text:     "К какому поиску слота привязать бронирование?",
		Keyboard: kb,
	})
}

func (e *Engine) onAutobookNewRequest(ctx context.Context, sess *domain.Session, payload string) error {
	if !sess.In(domain.WizardAutobookNew, domain.StateABNewChooseRequest) {
		return e.onMenuMain(ctx, sess, "")
	}

	requestID := atoiOr(payload, 0)
	sess.Set("slot_request_id", requestID)
	sess.SetState(domain.StateABNewConfirm)

	var requests []domain.SlotRequest
	decodeInto(sess, "slot_requests", &requests)

	var b strings.Builder
	b.WriteString("Проверьте параметры автобронирования:\n\n")
	fmt.Fprintf(&b, "Кабинет: %s\n", sess.GetString("seller_name"))
	fmt.Fprintf(&b, "Черновик: %d\n", sess.GetInt("draft_id"))
	for _, r := range requests {
		if r.ID == requestID {
			fmt.Fprintf(&b, "Поиск: %s\n", slotRequestLine(r))
			break
		}
	}

	return e.editCard(ctx, sess.UserID, domain.Screen{
		Text: b.String(),
		Keyboard: domain.Keyboard{}.
			Row(domain.Button{Text: "✅ Создать", Callback: "autobook_new_confirm"}).
			Row(domain.Button{Text: "Отмена", Callback: "autobook_new_cancel"}),
	})
}

func (e *Engine) onAutobookNewConfirm(ctx context.Context, sess *domain.Session, _ string) error {
	if !sess.In(domain.WizardAutobookNew, domain.StateABNewConfirm) {
		return e.onMenuMain(ctx, sess, "")
	}

	req := domain.CreateAutobookNewRequest{
		UserID:        sess.UserID,
		SellerName:    sess.GetString("seller_name"),
		DraftID:       sess.GetInt("draft_id"),
		SlotRequestID: sess.GetInt("slot_request_id"),
	}

	task, err := e.gateway.CreateAutobookNew(ctx, req)
	if err != nil {
		// Keep the state so the retry button can resubmit the same payload.
		screen := domain.Screen{
			Text: "Не удалось создать автобронирование. Попробуйте ещё раз.",
			Keyboard: domain.Keyboard{}.
				Row(domain.Button{Text: "🔁 Повторить", Callback: "autobook_new_retry"}).
				Row(domain.Button{Text: "Отмена", Callback: "autobook_new_cancel"}),
		}
		if editErr := e.editCard(ctx, sess.UserID, screen); editErr != nil {
			return editErr
		}
		e.logger.Warn("autobook create failed", "user_id", sess.UserID, "err", err)
		return nil
	}

	sess.Reset()
	screen := domain.Screen{
		Text: fmt.Sprintf("✅ Автобронирование #%d создано.", task.ID),
		Keyboard: domain.Keyboard{}.
			Row(domain.Button{Text: "📋 Мои автобронирования", Callback: "autobook_menu:list"}).
			Row(domain.Button{Text: "В главное меню", Callback: "menu_main"}),
	}
	_, err = e.showRegion(ctx, sess.UserID, domain.RegionWizardCard, screen)
	return err
}

func (e *Engine) onAutobookNewRetry(ctx context.Context, sess *domain.Session, _ string) error {
	return e.onAutobookNewConfirm(ctx, sess, "")
}
