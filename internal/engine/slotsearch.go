package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/vkarpenko/slotbot/pkg/domain"
)

// onMenuSearch starts the slot-search wizard. The day selection starts with
// every weekday enabled.
func (e *Engine) onMenuSearch(ctx context.Context, sess *domain.Session, _ string) error {
	sess.Begin(domain.WizardSlotSearch, domain.StateSlotWarehouse)
	sess.Set("days", append([]string(nil), weekdayKeys...))
	sess.Set("wh_names", map[string]string{})

	return e.showWarehousePage(ctx, sess, 0)
}

// showWarehousePage loads one backend page of warehouses and renders the
// picker. Names of every page seen so far are cached in the session so a
// later pick can be resolved without another round trip.
func (e *Engine) showWarehousePage(ctx context.Context, sess *domain.Session, page int) error {
	wp, err := e.gateway.Warehouses(ctx, page)
	if err != nil {
		return err
	}

	names := map[string]string{}
	decodeInto(sess, "wh_names", &names)
	for _, wh := range wp.Items {
		names[strconv.Itoa(wh.ID)] = wh.Name
	}
	sess.Set("wh_names", names)
	sess.Set("wh_page", wp.Page)

	kb := domain.Keyboard{}
	for _, wh := range wp.Items {
		kb = kb.Row(domain.Button{Text: wh.Name, Callback: "slot_wh_id:" + strconv.Itoa(wh.ID)})
	}

	var nav []domain.Button
	if wp.Page > 0 {
		nav = append(nav, domain.Button{Text: "⬅️", Callback: "wh_page:" + strconv.Itoa(wp.Page-1)})
	}
	if wp.Page < wp.Pages-1 {
		nav = append(nav, domain.Button{Text: "➡️", Callback: "wh_page:" + strconv.Itoa(wp.Page+1)})
	}
	if len(nav) > 0 {
		kb = kb.Row(nav...)
	}
	kb = kb.Row(domain.Button{Text: "Отмена", Callback: "menu_main"})

	screen := domain.Screen{
		Text:     "Выберите склад назначения.\n" + pageTitle(wp.Page, wp.Pages),
		Keyboard: kb,
	}
	return e.editCard(ctx, sess.UserID, screen)
}

func (e *Engine) onWarehousePage(ctx context.Context, sess *domain.Session, payload string) error {
	if !sess.In(domain.WizardSlotSearch, domain.StateSlotWarehouse) {
		return e.onMenuMain(ctx, sess, "")
	}
	return e.showWarehousePage(ctx, sess, atoiOr(payload, 0))
}

func (e *Engine) onSlotWarehouse(ctx context.Context, sess *domain.Session, payload string) error {
	if !sess.In(domain.WizardSlotSearch, domain.StateSlotWarehouse) {
		return e.onMenuMain(ctx, sess, "")
	}

	// Searching needs a WB session on the backend side; check before the
	// user walks the whole wizard only to fail at creation.
	status, err := e.gateway.AuthStatus(ctx, sess.UserID)
	if err != nil {
		return err
	}
	if !status.Authorized {
		screen := domain.Screen{
			Text: "Вы не авторизованы в WB ❌\nПройдите авторизацию и вернитесь к поиску.",
			Keyboard: domain.Keyboard{}.
				Row(domain.Button{Text: "🔑 Авторизация WB", Callback: "menu_auth"}).
				Row(domain.Button{Text: "В главное меню", Callback: "menu_main"}),
		}
		return e.editCard(ctx, sess.UserID, screen)
	}

	names := map[string]string{}
	decodeInto(sess, "wh_names", &names)
	name, ok := names[payload]
	if !ok {
		// Stale button from a cleared session.
		return e.showWarehousePage(ctx, sess, 0)
	}

	sess.Set("warehouse", name)
	sess.Set("warehouse_id", atoiOr(payload, 0))
	sess.SetState(domain.StateSlotSupplyType)
	return e.renderSlotStep(ctx, sess)
}

func (e *Engine) onSlotSupply(ctx context.Context, sess *domain.Session, payload string) error {
	if !sess.In(domain.WizardSlotSearch, domain.StateSlotSupplyType) {
		return e.onMenuMain(ctx, sess, "")
	}
	label, ok := supplyTypeLabels[payload]
	if !ok {
		return e.renderSlotStep(ctx, sess)
	}

	sess.Set("supply", label)
	sess.SetState(domain.StateSlotMaxCoef)
	return e.renderSlotStep(ctx, sess)
}

func (e *Engine) onSlotCoef(ctx context.Context, sess *domain.Session, payload string) error {
	if !sess.In(domain.WizardSlotSearch, domain.StateSlotMaxCoef) {
		return e.onMenuMain(ctx, sess, "")
	}
	sess.Set("coef", atoiOr(payload, 1))
	sess.SetState(domain.StateSlotLogistics)
	return e.renderSlotStep(ctx, sess)
}

func (e *Engine) onSlotLogistics(ctx context.Context, sess *domain.Session, payload string) error {
	if !sess.In(domain.WizardSlotSearch, domain.StateSlotLogistics) {
		return e.onMenuMain(ctx, sess, "")
	}
	if payload == "any" {
		sess.Set("logistics", 9999)
	} else {
		sess.Set("logistics", atoiOr(payload, 9999))
	}
	sess.SetState(domain.StateSlotPeriod)
	return e.renderSlotStep(ctx, sess)
}

func (e *Engine) onSlotPeriod(ctx context.Context, sess *domain.Session, payload string) error {
	if !sess.In(domain.WizardSlotSearch, domain.StateSlotPeriod) {
		return e.onMenuMain(ctx, sess, "")
	}
	sess.Set("period", atoiOr(payload, 30))
	sess.SetState(domain.StateSlotLeadTime)
	return e.renderSlotStep(ctx, sess)
}

func (e *Engine) onSlotLead(ctx context.Context, sess *domain.Session, payload string) error {
	if !sess.In(domain.WizardSlotSearch, domain.StateSlotLeadTime) {
		return e.onMenuMain(ctx, sess, "")
	}
	sess.Set("lead", atoiOr(payload, 0))
	sess.SetState(domain.StateSlotWeekdays)
	return e.renderSlotStep(ctx, sess)
}

// onSlotDay toggles one weekday or finishes the selection. Toggling edits
// only the keyboard so the card does not flicker; removing the last enabled
// day is refused.
func (e *Engine) onSlotDay(ctx context.Context, sess *domain.Session, payload string) error {
	if !sess.In(domain.WizardSlotSearch, domain.StateSlotWeekdays) {
		return e.onMenuMain(ctx, sess, "")
	}

	if payload == "done" {
		sess.SetState(domain.StateSlotConfirm)
		return e.renderSlotStep(ctx, sess)
	}

	days := sess.GetStrings("days")
	idx := -1
	for i, d := range days {
		if d == payload {
			idx = i
			break
		}
	}
	if idx >= 0 {
		if len(days) == 1 {
			return nil // keep at least one day enabled
		}
		days = append(days[:idx], days[idx+1:]...)
	} else if _, known := weekdayLabels[payload]; known {
		days = append(days, payload)
	}
	sess.Set("days", days)

	return e.editCardKeyboard(ctx, sess.UserID, weekdayKeyboard(days))
}

func weekdayKeyboard(selected []string) domain.Keyboard {
	set := make(map[string]bool, len(selected))
	for _, d := range selected {
		set[d] = true
	}

	var row []domain.Button
	kb := domain.Keyboard{}
	for _, key := range weekdayKeys {
		label := weekdayLabels[key]
		if set[key] {
			label = "✅ " + label
		}
		row = append(row, domain.Button{Text: label, Callback: "slot_day:" + key})
		if len(row) == 4 {
			kb = kb.Row(row...)
			row = nil
		}
	}
	if len(row) > 0 {
		kb = kb.Row(row...)
	}
	return kb.
		Row(domain.Button{Text: "Готово", Callback: "slot_day:done"}).
		Row(
			domain.Button{Text: "Назад", Callback: "slot_back:lead"},
			domain.Button{Text: "Отмена", Callback: "menu_main"},
		)
}

// slotBackTargets maps back-navigation payloads onto wizard states.
var slotBackTargets = map[string]domain.StateID{
	"warehouse": domain.StateSlotWarehouse,
	"supply":    domain.StateSlotSupplyType,
	"coef":      domain.StateSlotMaxCoef,
	"log":       domain.StateSlotLogistics,
	"period":    domain.StateSlotPeriod,
	"lead":      domain.StateSlotLeadTime,
	"days":      domain.StateSlotWeekdays,
}

func (e *Engine) onSlotBack(ctx context.Context, sess *domain.Session, payload string) error {
	if sess.Wizard != domain.WizardSlotSearch {
		return e.onMenuMain(ctx, sess, "")
	}
	target, ok := slotBackTargets[payload]
	if !ok {
		return e.onMenuMain(ctx, sess, "")
	}
	sess.SetState(target)
	if target == domain.StateSlotWarehouse {
		return e.showWarehousePage(ctx, sess, sess.GetInt("wh_page"))
	}
	return e.renderSlotStep(ctx, sess)
}

// renderSlotStep paints the card for the wizard's current state. Re-entering
// a state repaints the same screen, so back navigation is idempotent.
func (e *Engine) renderSlotStep(ctx context.Context, sess *domain.Session) error {
	var screen domain.Screen

	switch sess.State {
	case domain.StateSlotSupplyType:
		kb := domain.Keyboard{}
		for _, key := range supplyTypeKeys {
			kb = kb.Row(domain.Button{Text: supplyTypeLabels[key], Callback: "slot_supply:" + key})
		}
		kb = kb.Row(
			domain.Button{Text: "Назад", Callback: "slot_back:warehouse"},
			domain.Button{Text: "Отмена", Callback: "menu_main"},
		)
		screen = domain.Screen{
			Text:     fmt.Sprintf("Склад: %s\n\nВыберите тип поставки.", sess.GetString("warehouse")),
			Keyboard: kb,
		}

	case domain.StateSlotMaxCoef:
		kb := domain.Keyboard{}.
			Row(
				domain.Button{Text: "1", Callback: "slot_coef:1"},
				domain.Button{Text: "2", Callback: "slot_coef:2"},
				domain.Button{Text: "3", Callback: "slot_coef:3"},
			).
			Row(
				domain.Button{Text: "5", Callback: "slot_coef:5"},
				domain.Button{Text: "10", Callback: "slot_coef:10"},
				domain.Button{Text: "20", Callback: "slot_coef:20"},
			).
			Row(
				domain.Button{Text: "Назад", Callback: "slot_back:supply"},
				domain.Button{Text: "Отмена", Callback: "menu_main"},
			)
		screen = domain.Screen{
			Text:     "Максимальный коэффициент приёмки.\nСлоты с коэффициентом выше выбранного будут пропускаться.",
			Keyboard: kb,
		}

	case domain.StateSlotLogistics:
		kb := domain.Keyboard{}.
			Row(
				domain.Button{Text: "5%", Callback: "slot_log:5"},
				domain.Button{Text: "10%", Callback: "slot_log:10"},
				domain.Button{Text: "15%", Callback: "slot_log:15"},
			).
			Row(
				domain.Button{Text: "20%", Callback: "slot_log:20"},
				domain.Button{Text: "25%", Callback: "slot_log:25"},
				domain.Button{Text: "Любой", Callback: "slot_log:any"},
			).
			Row(
				domain.Button{Text: "Назад", Callback: "slot_back:coef"},
				domain.Button{Text: "Отмена", Callback: "menu_main"},
			)
		screen = domain.Screen{
			Text:     "Максимальная надбавка за логистику.",
			Keyboard: kb,
		}

	case domain.StateSlotPeriod:
		kb := domain.Keyboard{}.
			Row(
				domain.Button{Text: "7 дней", Callback: "slot_period:7"},
				domain.Button{Text: "14 дней", Callback: "slot_period:14"},
			).
			Row(
				domain.Button{Text: "30 дней", Callback: "slot_period:30"},
				domain.Button{Text: "60 дней", Callback: "slot_period:60"},
				domain.Button{Text: "90 дней", Callback: "slot_period:90"},
			).
			Row(
				domain.Button{Text: "Назад", Callback: "slot_back:log"},
				domain.Button{Text: "Отмена", Callback: "menu_main"},
			)
		screen = domain.Screen{
			Text:     "За какой период искать слоты?",
			Keyboard: kb,
		}

	case domain.StateSlotLeadTime:
		period := sess.GetInt("period")
		kb := domain.Keyboard{}.
			Row(
				domain.Button{Text: "Сегодня (" + leadDate(period, 0) + ")", Callback: "slot_lead:0"},
				domain.Button{Text: "1 день (" + leadDate(period, 1) + ")", Callback: "slot_lead:1"},
				domain.Button{Text: "2 дня (" + leadDate(period, 2) + ")", Callback: "slot_lead:2"},
			).
			Row(
				domain.Button{Text: "3 дня (" + leadDate(period, 3) + ")", Callback: "slot_lead:3"},
				domain.Button{Text: "5 дней (" + leadDate(period, 5) + ")", Callback: "slot_lead:5"},
				domain.Button{Text: "7 дней (" + leadDate(period, 7) + ")", Callback: "slot_lead:7"},
			).
			Row(
				domain.Button{Text: "Назад", Callback: "slot_back:period"},
				domain.Button{Text: "Отмена", Callback: "menu_main"},
			)
		screen = domain.Screen{
			Text:     "Сколько дней вам нужно на подготовку поставки?",
			Keyboard: kb,
		}

	case domain.StateSlotWeekdays:
		screen = domain.Screen{
			Text:     "В какие дни недели подходит поставка?\nНажмите на день, чтобы включить или выключить его.",
			Keyboard: weekdayKeyboard(sess.GetStrings("days")),
		}

	case domain.StateSlotConfirm:
		screen = domain.Screen{
			Text: slotSummary(sess),
			Keyboard: domain.Keyboard{}.
				Row(domain.Button{Text: "✅ Создать задачу", Callback: "slot_confirm:create"}).
				Row(
					domain.Button{Text: "Назад", Callback: "slot_back:days"},
					domain.Button{Text: "Отмена", Callback: "menu_main"},
				),
		}

	default:
		return e.showWarehousePage(ctx, sess, sess.GetInt("wh_page"))
	}

	return e.editCard(ctx, sess.UserID, screen)
}

func slotSummary(sess *domain.Session) string {
	var b strings.Builder
	b.WriteString("Проверьте параметры задачи:\n\n")
	fmt.Fprintf(&b, "Склад: %s\n", sess.GetString("warehouse"))
	fmt.Fprintf(&b, "Тип поставки: %s\n", sess.GetString("supply"))
	fmt.Fprintf(&b, "Макс. коэффициент: %d\n", sess.GetInt("coef"))
	fmt.Fprintf(&b, "Логистика: %s\n", logisticsLabel(sess.GetInt("logistics")))
	fmt.Fprintf(&b, "Период поиска: %d дн.\n", sess.GetInt("period"))
	fmt.Fprintf(&b, "Срок до поставки: %d дн.\n", sess.GetInt("lead"))
	fmt.Fprintf(&b, "Дни недели: %s", weekdaysLabel(collapseWeekdays(sess.GetStrings("days"))))
	return b.String()
}

func (e *Engine) onSlotConfirm(ctx context.Context, sess *domain.Session, payload string) error {
	if payload != "create" || !sess.In(domain.WizardSlotSearch, domain.StateSlotConfirm) {
		return e.onMenuMain(ctx, sess, "")
	}

	period := sess.GetInt("period")
	if period == 0 {
		period = 30
	}

	// The backend keys tasks by its own user id, not the chat id.
	backendID, err := e.gateway.ResolveUserID(ctx, sess.UserID)
	if err != nil {
		return err
	}

	req := domain.CreateSlotSearchRequest{
		Warehouse:        sess.GetString("warehouse"),
		SupplyType:       sess.GetString("supply"),
		MaxCoef:          strconv.Itoa(sess.GetInt("coef")),
		MaxLogistics:     sess.GetInt("logistics"),
		SearchPeriodDays: period,
		LeadTimeDays:     sess.GetInt("lead"),
		Weekdays:         collapseWeekdays(sess.GetStrings("days")),
		ChatID:           sess.UserID,
		UserID:           backendID,
	}
	if req.MaxLogistics == 0 {
		req.MaxLogistics = 9999
	}

	task, err := e.gateway.CreateSlotSearch(ctx, req)
	if err != nil {
		return err
	}

	sess.Reset()
	screen := domain.Screen{
		Text: fmt.Sprintf("✅ Задача поиска #%d создана.\nКак только подходящий слот найдётся, придёт уведомление.", task.ID),
		Keyboard: domain.Keyboard{}.
			Row(domain.Button{Text: "📋 Мои задачи", Callback: "menu_tasks"}).
			Row(domain.Button{Text: "В главное меню", Callback: "menu_main"}),
	}
	_, err = e.showRegion(ctx, sess.UserID, domain.RegionWizardCard, screen)
	return err
}
