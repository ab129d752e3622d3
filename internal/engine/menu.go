package engine

import (
	"context"
	"fmt"

	"github.com/vkarpenko/slotbot/pkg/domain"
)

func mainMenuScreen() domain.Screen {
	return domain.Screen{
		Text: "Главное меню",
		Keyboard: domain.Keyboard{}.
			Row(domain.Button{Text: "🔍 Поиск слота", Callback: "menu_search"}).
			Row(domain.Button{Text: "📋 Мои задачи", Callback: "menu_tasks"}).
			Row(domain.Button{Text: "🤖 Автобронирование", Callback: "menu_autobook"}).
			Row(domain.Button{Text: "📦 Перераспределение остатков", Callback: "menu_moves"}).
			Row(domain.Button{Text: "🔑 Авторизация WB", Callback: "menu_auth"}).
			Row(
				domain.Button{Text: "ℹ️ Статус", Callback: "menu_status"},
				domain.Button{Text: "🚪 Выйти", Callback: "menu_logout"},
			).
			Row(domain.Button{Text: "❓ Помощь", Callback: "menu_help"}),
	}
}

// onMenuMain is the universal escape hatch: any navigation to the main menu
// resets the wizard, so a half-finished flow can never trap the user.
func (e *Engine) onMenuMain(ctx context.Context, sess *domain.Session, _ string) error {
	sess.Reset()

	if err := e.clearAllRegions(ctx, sess.UserID); err != nil {
		return err
	}
	_, err := e.showRegion(ctx, sess.UserID, domain.RegionMain, mainMenuScreen())
	return err
}

func (e *Engine) onMenuHelp(ctx context.Context, sess *domain.Session, _ string) error {
	screen := domain.Screen{
		Text: "Бот помогает ловить слоты поставок WB.\n\n" +
			"🔍 Поиск слота — создать задачу поиска свободного слота.\n" +
			"📋 Мои задачи — список задач и их история.\n" +
			"🤖 Автобронирование — автоматически бронировать найденные слоты.\n" +
			"📦 Перераспределение — перенести остатки между складами.\n" +
			"🔑 Авторизация WB — подключить кабинет поставщика.",
		Keyboard: domain.Keyboard{}.
			Row(domain.Button{Text: "В главное меню", Callback: "menu_main"}),
	}
	_, err := e.showRegion(ctx, sess.UserID, domain.RegionWizardCard, screen)
	return err
}

func (e *Engine) onMenuStatus(ctx context.Context, sess *domain.Session, _ string) error {
	status, err := e.gateway.AuthStatus(ctx, sess.UserID)
	if err != nil {
		return err
	}

	text := "Авторизация WB: ❌ не выполнена.\nНажмите «Авторизация WB», чтобы подключить кабинет."
	if status.Authorized {
		text = "Авторизация WB: ✅ активна."
		if status.Phone != "" {
			text += fmt.Sprintf("\nТелефон: +7%s", status.Phone)
		}
		if status.ExpiresAt != "" {
			text += fmt.Sprintf("\nДействует до: %s", status.ExpiresAt)
		}
	}

	screen := domain.Screen{
		Text: text,
		Keyboard: domain.Keyboard{}.
			Row(domain.Button{Text: "В главное меню", Callback: "menu_main"}),
	}
	_, err = e.showRegion(ctx, sess.UserID, domain.RegionWizardCard, screen)
	return err
}

func (e *Engine) onMenuLogout(ctx context.Context, sess *domain.Session, _ string) error {
	text := "Сессия WB завершена."
	if err := e.gateway.Logout(ctx, sess.UserID); err != nil {
		// No session on the backend is not a failure from the user's side.
		if !domain.IsNotFound(err) {
			return err
		}
		text = "Вы и так не авторизованы в WB."
	}

	sess.Reset()
	screen := domain.Screen{
		Text: text,
		Keyboard: domain.Keyboard{}.
			Row(domain.Button{Text: "В главное меню", Callback: "menu_main"}),
	}
	_, err := e.showRegion(ctx, sess.UserID, domain.RegionWizardCard, screen)
	return err
}
