package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/vkarpenko/slotbot/pkg/domain"
	"github.com/vkarpenko/slotbot/pkg/paginate"
)

// onMenuTasks shows the first page of the user's slot-search tasks.
func (e *Engine) onMenuTasks(ctx context.Context, sess *domain.Session, _ string) error {
	sess.Reset()
	return e.showSlotTasks(ctx, sess, 0)
}

func (e *Engine) onSlotTasksPage(ctx context.Context, sess *domain.Session, payload string) error {
	return e.showSlotTasks(ctx, sess, atoiOr(payload, 0))
}

func (e *Engine) showSlotTasks(ctx context.Context, sess *domain.Session, page int) error {
	tasks, err := e.gateway.ListSlotTasks(ctx, sess.UserID)
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		screen := domain.Screen{
			Text: "У вас пока нет задач поиска слота.",
			Keyboard: domain.Keyboard{}.
				Row(domain.Button{Text: "🔍 Создать задачу", Callback: "menu_search"}).
				Row(domain.Button{Text: "📜 История", Callback: "tasks_history_search"}).
				Row(domain.Button{Text: "В главное меню", Callback: "menu_main"}),
		}
		_, err := e.showRegion(ctx, sess.UserID, domain.RegionListTasks, screen)
		return err
	}

	p := paginate.New(len(tasks), page, pageSize)

	var b strings.Builder
	fmt.Fprintf(&b, "Ваши задачи поиска слота (%d):\n", len(tasks))
	b.WriteString(pageTitle(p.Number, p.Count))

	kb := domain.Keyboard{}
	for _, t := range tasks[p.Start:p.End] {
		kb = kb.Row(domain.Button{Text: slotTaskLine(t), Callback: "slot_task_open:" + strconv.Itoa(t.ID)})
	}

	var nav []domain.Button
	if p.HasPrev() {
		nav = append(nav, domain.Button{Text: "⬅️", Callback: "slot_tasks_page:" + strconv.Itoa(p.Number-1)})
	}
	if p.HasNext() {
		nav = append(nav, domain.Button{Text: "➡️", Callback: "slot_tasks_page:" + strconv.Itoa(p.Number+1)})
	}
	if len(nav) > 0 {
		kb = kb.Row(nav...)
	}
	kb = kb.
		Row(
			domain.Button{Text: "📜 История поиска", Callback: "tasks_history_search"},
			domain.Button{Text: "📜 История брони", Callback: "tasks_history_autobook"},
		).
		Row(domain.Button{Text: "В главное меню", Callback: "menu_main"})

	_, err = e.showRegion(ctx, sess.UserID, domain.RegionListTasks, domain.Screen{Text: b.String(), Keyboard: kb})
	return err
}

// onSlotTaskOpen shows one task card with its management actions.
func (e *Engine) onSlotTaskOpen(ctx context.Context, sess *domain.Session, payload string) error {
	taskID := atoiOr(payload, 0)

	tasks, err := e.gateway.ListSlotTasks(ctx, sess.UserID)
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
			kb = kb.Row(domain.Button{Text: "⏸ Остановить", Callback: "slot_cancel:" + payload})
		default:
			kb = kb.Row(domain.Button{Text: "▶️ Возобновить", Callback: "slot_restart:" + payload})
		}
		kb = kb.
			Row(domain.Button{Text: "🤖 Автобронирование", Callback: "autobook_from_search:" + payload}).
			Row(domain.Button{Text: "🗑 Удалить", Callback: "slot_delete:" + payload}).
			Row(
				domain.Button{Text: "К списку", Callback: "slot_tasks_page:0"},
				domain.Button{Text: "В главное меню", Callback: "menu_main"},
			)

		_, err := e.showRegion(ctx, sess.UserID, domain.RegionListTasks, domain.Screen{Text: slotTaskCard(t), Keyboard: kb})
		return err
	}

	// Task vanished between list and open.
	return e.showSlotTasks(ctx, sess, 0)
}

func (e *Engine) onSlotCancel(ctx context.Context, sess *domain.Session, payload string) error {
	if err := e.gateway.CancelSlotTask(ctx, sess.UserID, atoiOr(payload, 0)); err != nil {
		return err
	}
	return e.onSlotTaskOpen(ctx, sess, payload)
}

func (e *Engine) onSlotRestart(ctx context.Context, sess *domain.Session, payload string) error {
	if err := e.gateway.RestartSlotTask(ctx, sess.UserID, atoiOr(payload, 0)); err != nil {
		return err
	}
	return e.onSlotTaskOpen(ctx, sess, payload)
}

func (e *Engine) onSlotDelete(ctx context.Context, sess *domain.Session, payload string) error {
	if err := e.gateway.DeleteSlotTask(ctx, sess.UserID, atoiOr(payload, 0)); err != nil {
		return err
	}
	return e.showSlotTasks(ctx, sess, 0)
}

func (e *Engine) onHistorySearch(ctx context.Context, sess *domain.Session, _ string) error {
	return e.showHistory(ctx, sess, "slot_search", 1)
}

func (e *Engine) onHistoryAutobook(ctx context.Context, sess *domain.Session, _ string) error {
	return e.showHistory(ctx, sess, "auto_booking", 1)
}

func (e *Engine) onHistorySearchPage(ctx context.Context, sess *domain.Session, payload string) error {
	return e.showHistory(ctx, sess, "slot_search", atoiOr(payload, 1))
}

func (e *Engine) onHistoryAutobookPage(ctx context.Context, sess *domain.Session, payload string) error {
	return e.showHistory(ctx, sess, "auto_booking", atoiOr(payload, 1))
}

// showHistory renders one page of finished tasks. History pages come from the
// backend already windowed, 1-based.
func (e *Engine) showHistory(ctx context.Context, sess *domain.Session, taskType string, page int) error {
	if page < 1 {
		page = 1
	}

	hp, err := e.gateway.TaskHistory(ctx, sess.UserID, taskType, page, pageSize)
	if err != nil {
		return err
	}
	// The backend may omit optional paging fields; fall back to the requested
	// window so the page math below stays defined.
	if hp.PageSize < 1 {
		hp.PageSize = pageSize
	}
	if hp.Page < 1 {
		hp.Page = page
	}

	title := "История поиска слотов"
	pageNS := "tasks_history_search_page"
	if taskType == "auto_booking" {
		title = "История автобронирований"
		pageNS = "tasks_history_autobook_page"
	}

	var b strings.Builder
	b.WriteString(title + "\n\n")
	if len(hp.Items) == 0 {
		b.WriteString("Пока пусто.")
	}
	for _, it := range hp.Items {
		b.WriteString(historyLine(taskType, it) + "\n")
	}

	pages := (hp.Total + hp.PageSize - 1) / hp.PageSize
	if pages < 1 {
		pages = 1
	}
	fmt.Fprintf(&b, "\nСтраница %d из %d", hp.Page, pages)

	kb := domain.Keyboard{}
	var nav []domain.Button
	if hp.Page > 1 {
		nav = append(nav, domain.Button{Text: "⬅️", Callback: pageNS + ":" + strconv.Itoa(hp.Page-1)})
	}
	if hp.Page < pages {
		nav = append(nav, domain.Button{Text: "➡️", Callback: pageNS + ":" + strconv.Itoa(hp.Page+1)})
	}
	if len(nav) > 0 {
		kb = kb.Row(nav...)
	}
	kb = kb.Row(
		domain.Button{Text: "К задачам", Callback: "slot_tasks_page:0"},
		domain.Button{Text: "В главное меню", Callback: "menu_main"},
	)

	_, err = e.showRegion(ctx, sess.UserID, domain.RegionListTasks, domain.Screen{Text: b.String(), Keyboard: kb})
	return err
}
