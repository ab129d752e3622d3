package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/vkarpenko/slotbot/pkg/domain"
	"github.com/vkarpenko/slotbot/pkg/paginate"
)

// onMenuAutobook shows the autobooking entry menu.
func (e *Engine) onMenuAutobook(ctx context.Context, sess *domain.Session, _ string) error {
	sess.Reset()
	screen := domain.Screen{
		Text: "Автобронирование",
		Keyboard: domain.Keyboard{}.
			Row(domain.Button{Text: "📋 Мои автобронирования", Callback: "autobook_menu:list"}).
			Row(domain.Button{Text: "➕ Создать из кабинета", Callback: "autobook_menu:create"}).
			Row(domain.Button{Text: "В главное меню", Callback: "menu_main"}),
	}
	_, err := e.showRegion(ctx, sess.UserID, domain.RegionListAutobook, screen)
	return err
}

func (e *Engine) onAutobookMenu(ctx context.Context, sess *domain.Session, payload string) error {
	switch payload {
	case "list":
		return e.showAutobookList(ctx, sess, 0)
	case "create":
		return e.startAutobookNew(ctx, sess, false)
	}
	return e.onMenuAutobook(ctx, sess, "")
}

func (e *Engine) onAutobookPage(ctx context.Context, sess *domain.Session, payload string) error {
	return e.showAutobookList(ctx, sess, atoiOr(payload, 0))
}

func (e *Engine) onAutobookBackToList(ctx context.Context, sess *domain.Session, _ string) error {
	return e.showAutobookList(ctx, sess, 0)
}

func (e *Engine) showAutobookList(ctx context.Context, sess *domain.Session, page int) error {
	tasks, err := e.gateway.ListAutobooks(ctx, sess.UserID)
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		screen := domain.Screen{
			Text: "У вас пока нет задач автобронирования.",
			Keyboard: domain.Keyboard{}.
				Row(domain.Button{Text: "➕ Создать из кабинета", Callback: "autobook_menu:create"}).
				Row(domain.Button{Text: "В главное меню", Callback: "autobook_main_menu"}),
		}
		_, err := e.showRegion(ctx, sess.UserID, domain.RegionListAutobook, screen)
		return err
	}

	p := paginate.New(len(tasks), page, pageSize)

	var b strings.Builder
	fmt.Fprintf(&b, "Ваши автобронирования (%d):\n", len(tasks))
	b.WriteString(pageTitle(p.Number, p.Count))

	kb := domain.Keyboard{}
	for _, t := range tasks[p.Start:p.End] {
		kb = kb.Row(domain.Button{Text: autobookTaskLine(t), Callback: "autobook_open:" + strconv.Itoa(t.ID)})
	}

	var nav []domain.Button
	if p.HasPrev() {
		nav = append(nav, domain.Button{Text: "⬅️", Callback: "autobook_page:" + strconv.Itoa(p.Number-1)})
	}
	if p.HasNext() {
		nav = append(nav, domain.Button{Text: "➡️", Callback: "autobook_page:" + strconv.Itoa(p.Number+1)})
	}
	if len(nav) > 0 {
		kb = kb.Row(nav...)
	}
	kb = kb.Row(domain.Button{Text: "В главное меню", Callback: "autobook_main_menu"})

	_, err = e.showRegion(ctx, sess.UserID, domain.RegionListAutobook, domain.Screen{Text: b.String(), Keyboard: kb})
	return err
}

func (e *Engine) onAutobookOpen(ctx context.Context, sess *domain.Session, payload string) error {
	taskID := atoiOr(payload, 0)

	tasks, err := e.gateway.ListAutobooks(ctx, sess.UserID)
	if err != nil {
		return err
	}

	for _, t := range tasks {
		if t.ID != taskID {
			continue
		}

		kb := domain.Keyboard{}
		switch strings.ToLower(t.Status) {
		case "active", "running":
			kb = kb.Row(domain.Button{Text: "⏸ Остановить", Callback: "autobook_stop:" + payload})
		default:
			kb = kb.Row(domain.Button{Text: "▶️ Запустить", Callback: "autobook_start:" + payload})
		}
		kb = kb.
			Row(domain.Button{Text: "🚚 Забронировать сейчас", Callback: "autobook_load:" + payload}).
			Row(domain.Button{Text: "🗑 Удалить", Callback: "autobook_delete:" + payload}).
			Row(
				domain.Button{Text: "К списку", Callback: "autobook_back_to_list"},
				domain.Button{Text: "В главное меню", Callback: "autobook_main_menu"},
			)

		_, err := e.showRegion(ctx, sess.UserID, domain.RegionListAutobook, domain.Screen{Text: autobookTaskCard(t), Keyboard: kb})
		return err
	}

	return e.showAutobookList(ctx, sess, 0)
}

func (e *Engine) onAutobookStart(ctx context.Context, sess *domain.Session, payload string) error {
	if err := e.gateway.StartAutobook(ctx, sess.UserID, atoiOr(payload, 0)); err != nil {
		return err
	}
	return e.onAutobookOpen(ctx, sess, payload)
}

func (e *Engine) onAutobookStop(ctx context.Context, sess *domain.Session, payload string) error {
	if err := e.gateway.StopAutobook(ctx, sess.UserID, atoiOr(payload, 0)); err != nil {
		return err
	}
	return e.onAutobookOpen(ctx, sess, payload)
}

func (e *Engine) onAutobookDelete(ctx context.Context, sess *domain.Session, payload string) error {
	if err := e.gateway.DeleteAutobook(ctx, sess.UserID, atoiOr(payload, 0)); err != nil {
		return err
	}
	return e.showAutobookList(ctx, sess, 0)
}

// onAutobookLoad runs the booking synchronously. The call can take up to two
// minutes, so the user is warned before the engine blocks on it.
func (e *Engine) onAutobookLoad(ctx context.Context, sess *domain.Session, payload string) error {
	wait := domain.Screen{Text: "🚚 Выполняю бронирование, это может занять до двух минут..."}
	waitID, err := e.showRegion(ctx, sess.UserID, domain.RegionWizardCard, wait)
	if err != nil {
		return err
	}

	backendID, err := e.gateway.ResolveUserID(ctx, sess.UserID)
	if err != nil {
		return err
	}

	result, err := e.gateway.LoadSupplies(ctx, backendID, atoiOr(payload, 0))
	if err != nil {
		return err
	}

	// The progress notice has served its purpose once the result is in.
	if err := e.dropMessage(ctx, sess.UserID, waitID); err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("✅ Бронирование выполнено.\n\n")
	fmt.Fprintf(&b, "Склад: %s\n", result.Warehouse)
	fmt.Fprintf(&b, "Тип поставки: %s\n", result.SupplyType)
	if result.ChosenDate != "" {
		fmt.Fprintf(&b, "Дата: %s\n", result.ChosenDate)
	}
	if result.FileSaved != "" {
		fmt.Fprintf(&b, "Файл: %s\n", result.FileSaved)
	}

	screen := domain.Screen{
		Text: b.String(),
		Keyboard: domain.Keyboard{}.
			Row(domain.Button{Text: "К списку", Callback: "autobook_back_to_list"}).
			Row(domain.Button{Text: "В главное меню", Callback: "autobook_main_menu"}),
	}
	_, err = e.showRegion(ctx, sess.UserID, domain.RegionListAutobook, screen)
	return err
}

// onAutobookFromSearch starts the autobook wizard bound to an existing
// slot-search task. The transit step is skipped when the backend offers no
// transit warehouses.
func (e *Engine) onAutobookFromSearch(ctx context.Context, sess *domain.Session, payload string) error {
	slotTaskID := atoiOr(payload, 0)

	opts, err := e.gateway.AutobookOptions(ctx, sess.UserID, slotTaskID)
	if err != nil {
		return err
	}

	if len(opts.Accounts) == 0 {
		screen := domain.Screen{
			Text: "Не найдено ни одного кабинета продавца.\nСначала выполните авторизацию WB.",
			Keyboard: domain.Keyboard{}.
				Row(domain.Button{Text: "🔑 Авторизация WB", Callback: "menu_auth"}).
				Row(domain.Button{Text: "В главное меню", Callback: "menu_main"}),
		}
		_, err := e.showRegion(ctx, sess.UserID, domain.RegionWizardCard, screen)
		return err
	}

	sess.Begin(domain.WizardAutobookFrom, domain.StateABChooseAccount)
	sess.Set("slot_task_id", slotTaskID)
	sess.Set("ab_options", opts)

	kb := domain.Keyboard{}
	for _, acc := range opts.Accounts {
		kb = kb.Row(domain.Button{Text: acc.Name, Callback: "autobook_choose_account:" + acc.ID})
	}
	kb = kb.Row(domain.Button{Text: "Отмена", Callback: "menu_main"})

	screen := domain.Screen{
		Text: fmt.Sprintf("Автобронирование для поиска #%d.\n\nВыберите кабинет продавца.", slotTaskID),
		Keyboard: kb,
	}
	_, err = e.showRegion(ctx, sess.UserID, domain.RegionWizardCard, screen)
	return err
}

func (e *Engine) abOptions(sess *domain.Session) (domain.AutobookOptions, bool) {
	var opts domain.AutobookOptions
	ok := decodeInto(sess, "ab_options", &opts)
	return opts, ok
}

func (e *Engine) onAutobookAccount(ctx context.Context, sess *domain.Session, payload string) error {
	if !sess.In(domain.WizardAutobookFrom, domain.StateABChooseAccount) {
		return e.onMenuMain(ctx, sess, "")
	}
	opts, ok := e.abOptions(sess)
	if !ok {
		return e.onMenuMain(ctx, sess, "")
	}

	accountName := payload
	for _, acc := range opts.Accounts {
		if acc.ID == payload {
			accountName = acc.Name
			break
		}
	}
	sess.Set("account", accountName)

	if len(opts.TransitWarehouses) == 0 {
		sess.SetState(domain.StateABChooseDraft)
		return e.renderAutobookDrafts(ctx, sess, opts)
	}

	sess.SetState(domain.StateABChooseTransit)
	kb := domain.Keyboard{}
	for _, tw := range opts.TransitWarehouses {
		kb = kb.Row(domain.Button{Text: tw.Name, Callback: "autobook_transit:" + tw.ID})
	}
	kb = kb.
		Row(domain.Button{Text: "Без транзита", Callback: "autobook_transit:skip"}).
		Row(domain.Button{Text: "Отмена", Callback: "menu_main"})

	return e.editCard(ctx, sess.UserID, domain.Screen{
		Text:     "Выберите транзитный склад (или продолжите без транзита).",
		Keyboard: kb,
	})
}

func (e *Engine) onAutobookTransit(ctx context.Context, sess *domain.Session, payload string) error {
	if !sess.In(domain.WizardAutobookFrom, domain.StateABChooseTransit) {
		return e.onMenuMain(ctx, sess, "")
	}
	opts, ok := e.abOptions(sess)
	if !ok {
		return e.onMenuMain(ctx, sess, "")
	}

	if payload != "skip" {
		for _, tw := range opts.TransitWarehouses {
			if tw.ID == payload {
				sess.Set("transit", tw.Name)
				break
			}
		}
	}

	sess.SetState(domain.StateABChooseDraft)
	return e.renderAutobookDrafts(ctx, sess, opts)
}

func (e *Engine) renderAutobookDrafts(ctx context.Context, sess *domain.Session, opts domain.AutobookOptions) error {
	if len(opts.Drafts) == 0 {
		sess.Reset()
		screen := domain.Screen{
			Text: "В кабинете нет черновиков поставок.\nСоздайте черновик в кабинете WB и попробуйте снова.",
			Keyboard: domain.Keyboard{}.
				Row(domain.Button{Text: "В главное меню", Callback: "menu_main"}),
		}
		_, err := e.showRegion(ctx, sess.UserID, domain.RegionWizardCard, screen)
		return err
	}

	kb := domain.Keyboard{}
	for _, d := range opts.Drafts {
		kb = kb.Row(domain.Button{Text: draftLine(d), Callback: "autobook_choose_draft:" + strconv.Itoa(d.ID)})
	}
	kb = kb.Row(domain.Button{Text: "Отмена", Callback: "menu_main"})

	return e.editCard(ctx, sess.UserID, domain.Screen{
		Text:     "Выберите черновик поставки.",
		Keyboard: kb,
	})
}

func (e *Engine) onAutobookDraft(ctx context.Context, sess *domain.Session, payload string) error {
	if !sess.In(domain.WizardAutobookFrom, domain.StateABChooseDraft) {
		return e.onMenuMain(ctx, sess, "")
	}

	sess.Set("draft_id", atoiOr(payload, 0))
	sess.SetState(domain.StateABConfirm)

	var b strings.Builder
	b.WriteString("Проверьте параметры автобронирования:\n\n")
	fmt.Fprintf(&b, "Поиск слота: #%d\n", sess.GetInt("slot_task_id"))
	fmt.Fprintf(&b, "Кабинет: %s\n", sess.GetString("account"))
	if transit := sess.GetString("transit"); transit != "" {
		fmt.Fprintf(&b, "Транзитный склад: %s\n", transit)
	}
	fmt.Fprintf(&b, "Черновик: %d", sess.GetInt("draft_id"))

	return e.editCard(ctx, sess.UserID, domain.Screen{
		Text: b.String(),
		Keyboard: domain.Keyboard{}.
			Row(domain.Button{Text: "✅ Включить автобронирование", Callback: "autobook_confirm:"}).
			Row(domain.Button{Text: "Отмена", Callback: "menu_main"}),
	})
}

func (e *Engine) onAutobookConfirm(ctx context.Context, sess *domain.Session, _ string) error {
	if !sess.In(domain.WizardAutobookFrom, domain.StateABConfirm) {
		return e.onMenuMain(ctx, sess, "")
	}

	req := domain.CreateAutobookRequest{
		UserID:              sess.UserID,
		SlotTaskID:          sess.GetInt("slot_task_id"),
		SellerName:          sess.GetString("account"),
		DraftID:             sess.GetInt("draft_id"),
		TransitWarehouse:    sess.GetString("transit"),
		LogisticsAcceptMode: "any",
	}

	task, err := e.gateway.CreateAutobook(ctx, req)
	if err != nil {
		return err
	}

	sess.Reset()
	screen := domain.Screen{
		Text: fmt.Sprintf("✅ Автобронирование #%d включено.\nСлот будет забронирован автоматически, как только найдётся.", task.ID),
		Keyboard: domain.Keyboard{}.
			Row(domain.Button{Text: "📋 Мои автобронирования", Callback: "autobook_menu:list"}).
			Row(domain.Button{Text: "В главное меню", Callback: "menu_main"}),
	}
	_, err = e.showRegion(ctx, sess.UserID, domain.RegionWizardCard, screen)
	return err
}
