package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/vkarpenko/slotbot/pkg/domain"
	"github.com/vkarpenko/slotbot/pkg/paginate"
)

// onMenuMoves shows the stock redistribution task list.
func (e *Engine) onMenuMoves(ctx context.Context, sess *domain.Session, _ string) error {
	sess.Reset()
	return e.showMoveList(ctx, sess, 0)
}

func (e *Engine) onMovesListPage(ctx context.Context, sess *domain.Session, payload string) error {
	return e.showMoveList(ctx, sess, atoiOr(payload, 0))
}

func (e *Engine) showMoveList(ctx context.Context, sess *domain.Session, page int) error {
	tasks, err := e.gateway.ListMoveTasks(ctx, sess.UserID)
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		screen := domain.Screen{
			Text: "У вас пока нет задач перераспределения.",
			Keyboard: domain.Keyboard{}.
				Row(domain.Button{Text: "➕ Создать", Callback: "moves_create"}).
				Row(domain.Button{Text: "В главное меню", Callback: "menu_main"}),
		}
		_, err := e.showRegion(ctx, sess.UserID, domain.RegionListMoves, screen)
		return err
	}

	p := paginate.New(len(tasks), page, pageSize)

	var b strings.Builder
	fmt.Fprintf(&b, "Перераспределение остатков (%d):\n", len(tasks))
	b.WriteString(pageTitle(p.Number, p.Count))

	kb := domain.Keyboard{}
	for _, t := range tasks[p.Start:p.End] {
		kb = kb.Row(domain.Button{Text: moveTaskLine(t), Callback: "moves_open:" + strconv.Itoa(t.ID)})
	}

	var nav []domain.Button
	if p.HasPrev() {
		nav = append(nav, domain.Button{Text: "⬅️", Callback: "moves_list_page:" + strconv.Itoa(p.Number-1)})
	}
	if p.HasNext() {
		nav = append(nav, domain.Button{Text: "➡️", Callback: "moves_list_page:" + strconv.Itoa(p.Number+1)})
	}
	if len(nav) > 0 {
		kb = kb.Row(nav...)
	}
	kb = kb.
		Row(domain.Button{Text: "➕ Создать", Callback: "moves_create"}).
		Row(domain.Button{Text: "В главное меню", Callback: "menu_main"})

	_, err = e.showRegion(ctx, sess.UserID, domain.RegionListMoves, domain.Screen{Text: b.String(), Keyboard: kb})
	return err
}

func (e *Engine) onMoveOpen(ctx context.Context, sess *domain.Session, payload string) error {
	taskID := atoiOr(payload, 0)

	tasks, err := e.gateway.ListMoveTasks(ctx, sess.UserID)
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
			kb = kb.Row(domain.Button{Text: "⏸ Остановить", Callback: "moves_stop:" + payload})
		default:
			kb = kb.Row(domain.Button{Text: "▶️ Возобновить", Callback: "moves_start:" + payload})
		}
		kb = kb.Row(
			domain.Button{Text: "К списку", Callback: "moves_list_page:0"},
			domain.Button{Text: "В главное меню", Callback: "menu_main"},
		)

		_, err := e.showRegion(ctx, sess.UserID, domain.RegionListMoves, domain.Screen{Text: moveTaskCard(t), Keyboard: kb})
		return err
	}

	return e.showMoveList(ctx, sess, 0)
}

func (e *Engine) onMoveStop(ctx context.Context, sess *domain.Session, payload string) error {
	if err := e.gateway.CancelMoveTask(ctx, sess.UserID, atoiOr(payload, 0)); err != nil {
		return err
	}
	return e.onMoveOpen(ctx, sess, payload)
}

func (e *Engine) onMoveStart(ctx context.Context, sess *domain.Session, payload string) error {
	if err := e.gateway.RestartMoveTask(ctx, sess.UserID, atoiOr(payload, 0)); err != nil {
		return err
	}
	return e.onMoveOpen(ctx, sess, payload)
}

// onMovesCreate starts the move wizard. The full option set (accounts,
// articles with per-warehouse stocks, warehouses) is loaded once and cached
// in the session; quantity validation later runs against this cache.
func (e *Engine) onMovesCreate(ctx context.Context, sess *domain.Session, _ string) error {
	opts, err := e.gateway.MoveOptions(ctx, sess.UserID)
	if err != nil {
		return err
	}

	if len(opts.Accounts) == 0 {
		screen := domain.Screen{
			Text: "Кабинеты продавца не найдены.\nСначала выполните авторизацию WB.",
			Keyboard: domain.Keyboard{}.
				Row(domain.Button{Text: "🔑 Авторизация WB", Callback: "menu_auth"}).
				Row(domain.Button{Text: "В главное меню", Callback: "menu_main"}),
		}
		_, err := e.showRegion(ctx, sess.UserID, domain.RegionWizardCard, screen)
		return err
	}

	sess.Begin(domain.WizardStockMove, domain.StateMoveChooseAccount)
	sess.Set("move_options", opts)

	kb := domain.Keyboard{}
	for _, acc := range opts.Accounts {
		kb = kb.Row(domain.Button{Text: acc.Name, Callback: "moves_acc:" + acc.ID})
	}
	kb = kb.Row(domain.Button{Text: "Отмена", Callback: "menu_main"})

	screen := domain.Screen{Text: "Выберите кабинет продавца.", Keyboard: kb}
	_, err = e.showRegion(ctx, sess.UserID, domain.RegionWizardCard, screen)
	return err
}

func (e *Engine) moveOptions(sess *domain.Session) (domain.MoveOptions, bool) {
	var opts domain.MoveOptions
	ok := decodeInto(sess, "move_options", &opts)
	return opts, ok
}

func (e *Engine) onMoveAccount(ctx context.Context, sess *domain.Session, payload string) error {
	if !sess.In(domain.WizardStockMove, domain.StateMoveChooseAccount) {
		return e.onMenuMain(ctx, sess, "")
	}
	opts, ok := e.moveOptions(sess)
	if !ok {
		return e.onMenuMain(ctx, sess, "")
	}

	sess.Set("account", payload)
	sess.Set("account_name", opts.AccountName(payload))
	sess.SetState(domain.StateMoveChooseArticle)
	return e.showMoveArticles(ctx, sess, opts, 0)
}

func (e *Engine) onMoveArticlePage(ctx context.Context, sess *domain.Session, payload string) error {
	if !sess.In(domain.WizardStockMove, domain.StateMoveChooseArticle) {
		return e.onMenuMain(ctx, sess, "")
	}
	opts, ok := e.moveOptions(sess)
	if !ok {
		return e.onMenuMain(ctx, sess, "")
	}
	return e.showMoveArticles(ctx, sess, opts, atoiOr(payload, 0))
}

func (e *Engine) showMoveArticles(ctx context.Context, sess *domain.Session, opts domain.MoveOptions, page int) error {
	if len(opts.Articles) == 0 {
		sess.Reset()
		screen := domain.Screen{
			Text: "В кабинете нет товаров с остатками.",
			Keyboard: domain.Keyboard{}.
				Row(domain.Button{Text: "В главное меню", Callback: "menu_main"}),
		}
		_, err := e.showRegion(ctx, sess.UserID, domain.RegionWizardCard, screen)
		return err
	}

	p := paginate.New(len(opts.Articles), page, pageSize)

	kb := domain.Keyboard{}
	for _, art := range opts.Articles[p.Start:p.End] {
		label := fmt.Sprintf("%s (%d шт.)", art.Name, art.TotalQty)
		kb = kb.Row(domain.Button{Text: label, Callback: "moves_art:" + art.ID})
	}

	var nav []domain.Button
	if p.HasPrev() {
		nav = append(nav, domain.Button{Text: "⬅️", Callback: "moves_art_page:" + strconv.Itoa(p.Number-1)})
	}
	if p.HasNext() {
		nav = append(nav, domain.Button{Text: "➡️", Callback: "moves_art_page:" + strconv.Itoa(p.Number+1)})
	}
	if len(nav) > 0 {
		kb = kb.Row(nav...)
	}
	kb = kb.Row(
		domain.Button{Text: "Назад", Callback: "moves_back:account"},
		domain.Button{Text: "Отмена", Callback: "menu_main"},
	)

	text := fmt.Sprintf("Кабинет: %s\n\nВыберите артикул.\n%s",
		sess.GetString("account_name"), pageTitle(p.Number, p.Count))
	return e.editCard(ctx, sess.UserID, domain.Screen{Text: text, Keyboard: kb})
}

func (e *Engine) onMoveArticle(ctx context.Context, sess *domain.Session, payload string) error {
	if !sess.In(domain.WizardStockMove, domain.StateMoveChooseArticle) {
		return e.onMenuMain(ctx, sess, "")
	}
	opts, ok := e.moveOptions(sess)
	if !ok {
		return e.onMenuMain(ctx, sess, "")
	}

	art, found := opts.ArticleByID(payload)
	if !found {
		return e.showMoveArticles(ctx, sess, opts, 0)
	}

	sess.Set("article", art.ID)
	sess.Set("article_name", art.Name)
	sess.SetState(domain.StateMoveChooseFrom)

	// Only warehouses that actually hold stock of this article qualify as a
	// source.
	kb := domain.Keyboard{}
	for _, st := range art.Stocks {
		if st.Qty <= 0 {
			continue
		}
		label := fmt.Sprintf("%s (%d шт.)", st.Warehouse, st.Qty)
		kb = kb.Row(domain.Button{Text: label, Callback: "moves_from:" + st.Warehouse})
	}
	kb = kb.Row(
		domain.Button{Text: "Назад", Callback: "moves_back:article"},
		domain.Button{Text: "Отмена", Callback: "menu_main"},
	)

	return e.editCard(ctx, sess.UserID, domain.Screen{
		Text:     fmt.Sprintf("Артикул: %s\n\nС какого склада забрать остатки?", art.Name),
		Keyboard: kb,
	})
}

func (e *Engine) onMoveFrom(ctx context.Context, sess *domain.Session, payload string) error {
	if !sess.In(domain.WizardStockMove, domain.StateMoveChooseFrom) {
		return e.onMenuMain(ctx, sess, "")
	}
	opts, ok := e.moveOptions(sess)
	if !ok {
		return e.onMenuMain(ctx, sess, "")
	}

	sess.Set("from", payload)
	sess.SetState(domain.StateMoveChooseTo)

	kb := domain.Keyboard{}
	for _, wh := range opts.Warehouses {
		if wh.Name == payload {
			continue
		}
		kb = kb.Row(domain.Button{Text: wh.Name, Callback: "moves_to:" + wh.Name})
	}
	kb = kb.Row(
		domain.Button{Text: "Назад", Callback: "moves_back:from"},
		domain.Button{Text: "Отмена", Callback: "menu_main"},
	)

	return e.editCard(ctx, sess.UserID, domain.Screen{
		Text:     "На какой склад перевезти остатки?",
		Keyboard: kb,
	})
}

func (e *Engine) onMoveTo(ctx context.Context, sess *domain.Session, payload string) error {
	if !sess.In(domain.WizardStockMove, domain.StateMoveChooseTo) {
		return e.onMenuMain(ctx, sess, "")
	}

	sess.Set("to", payload)
	sess.SetState(domain.StateMoveChooseQty)
	return e.renderMoveQty(ctx, sess, "")
}

func (e *Engine) renderMoveQty(ctx context.Context, sess *domain.Session, warning string) error {
	opts, _ := e.moveOptions(sess)
	available, _ := opts.StockFor(sess.GetString("article"), sess.GetString("from"))

	text := fmt.Sprintf("Сколько штук перевезти?\nДоступно на складе %s: %d шт.",
		sess.GetString("from"), available)
	if warning != "" {
		text = warning + "\n\n" + text
	}

	return e.editCard(ctx, sess.UserID, domain.Screen{
		Text: text,
		Keyboard: domain.Keyboard{}.
			Row(
				domain.Button{Text: "Назад", Callback: "moves_back:to"},
				domain.Button{Text: "Отмена", Callback: "menu_main"},
			),
	})
}

// onMoveQty validates typed quantity against the cached stock of the chosen
// article at the source warehouse.
func (e *Engine) onMoveQty(ctx context.Context, sess *domain.Session, text string) error {
	qty, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || qty <= 0 {
		return e.renderMoveQty(ctx, sess, "Введите целое число больше нуля.")
	}

	opts, ok := e.moveOptions(sess)
	if !ok {
		return e.onMenuMain(ctx, sess, "")
	}
	available, _ := opts.StockFor(sess.GetString("article"), sess.GetString("from"))
	if qty > available {
		return e.renderMoveQty(ctx, sess, fmt.Sprintf("На складе только %d шт.", available))
	}

	sess.Set("qty", qty)
	sess.SetState(domain.StateMoveConfirm)

	var b strings.Builder
	b.WriteString("Проверьте параметры перераспределения:\n\n")
	fmt.Fprintf(&b, "Кабинет: %s\n", sess.GetString("account_name"))
	fmt.Fprintf(&b, "Артикул: %s\n", sess.GetString("article_name"))
	fmt.Fprintf(&b, "Откуда: %s\n", sess.GetString("from"))
	fmt.Fprintf(&b, "Куда: %s\n", sess.GetString("to"))
	fmt.Fprintf(&b, "Количество: %d шт.", qty)

	return e.editCard(ctx, sess.UserID, domain.Screen{
		Text: b.String(),
		Keyboard: domain.Keyboard{}.
			Row(domain.Button{Text: "✅ Создать задачу", Callback: "moves_confirm:"}).
			Row(
				domain.Button{Text: "Назад", Callback: "moves_back:qty"},
				domain.Button{Text: "Отмена", Callback: "menu_main"},
			),
	})
}

func (e *Engine) onMoveConfirm(ctx context.Context, sess *domain.Session, _ string) error {
	if !sess.In(domain.WizardStockMove, domain.StateMoveConfirm) {
		return e.onMenuMain(ctx, sess, "")
	}

	req := domain.CreateMoveRequest{
		UserID:        sess.UserID,
		Account:       sess.GetString("account"),
		Article:       sess.GetString("article"),
		FromWarehouse: sess.GetString("from"),
		ToWarehouse:   sess.GetString("to"),
		Qty:           sess.GetInt("qty"),
	}

	task, err := e.gateway.CreateMoveTask(ctx, req)
	if err != nil {
		return err
	}

	sess.Reset()
	screen := domain.Screen{
		Text: fmt.Sprintf("✅ Задача перераспределения #%d создана.", task.ID),
		Keyboard: domain.Keyboard{}.
			Row(domain.Button{Text: "📦 К списку задач", Callback: "menu_moves"}).
			Row(domain.Button{Text: "В главное меню", Callback: "menu_main"}),
	}
	_, err = e.showRegion(ctx, sess.UserID, domain.RegionWizardCard, screen)
	return err
}

// moveBackTargets maps back-navigation payloads onto wizard states.
var moveBackTargets = map[string]domain.StateID{
	"account": domain.StateMoveChooseAccount,
	"article": domain.StateMoveChooseArticle,
	"from":    domain.StateMoveChooseFrom,
	"to":      domain.StateMoveChooseTo,
	"qty":     domain.StateMoveChooseQty,
}

func (e *Engine) onMoveBack(ctx context.Context, sess *domain.Session, payload string) error {
	if sess.Wizard != domain.WizardStockMove {
		return e.onMenuMain(ctx, sess, "")
	}
	target, ok := moveBackTargets[payload]
	if !ok {
		return e.onMenuMain(ctx, sess, "")
	}

	opts, haveOpts := e.moveOptions(sess)
	if !haveOpts {
		return e.onMenuMain(ctx, sess, "")
	}

	switch target {
	case domain.StateMoveChooseAccount:
		return e.onMovesCreate(ctx, sess, "")
	case domain.StateMoveChooseArticle:
		sess.SetState(domain.StateMoveChooseArticle)
		return e.showMoveArticles(ctx, sess, opts, 0)
	case domain.StateMoveChooseFrom:
		// Replay the article pick so the source choice renders again.
		sess.SetState(domain.StateMoveChooseArticle)
		return e.onMoveArticle(ctx, sess, sess.GetString("article"))
	case domain.StateMoveChooseTo:
		sess.SetState(domain.StateMoveChooseFrom)
		return e.onMoveFrom(ctx, sess, sess.GetString("from"))
	case domain.StateMoveChooseQty:
		sess.SetState(domain.StateMoveChooseQty)
		return e.renderMoveQty(ctx, sess, "")
	}
	return nil
}
