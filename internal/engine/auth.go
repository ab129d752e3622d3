package engine

import (
	"context"
	"strings"

	"github.com/vkarpenko/slotbot/pkg/domain"
)

// onMenuAuth starts the WB authorization wizard.
func (e *Engine) onMenuAuth(ctx context.Context, sess *domain.Session, _ string) error {
	sess.Begin(domain.WizardAuth, domain.StateAuthWaitPhone)

	screen := domain.Screen{
		Text: "Введите номер телефона, привязанный к кабинету WB.\nНапример: +7 912 345-67-89",
		Keyboard: domain.Keyboard{}.
			Row(domain.Button{Text: "Отмена", Callback: "menu_main"}),
	}
	_, err := e.showRegion(ctx, sess.UserID, domain.RegionWizardCard, screen)
	return err
}

func (e *Engine) onAuthPhone(ctx context.Context, sess *domain.Session, text string) error {
	phone, err := normalizePhone(text)
	if err != nil {
		screen := domain.Screen{
			Text: "Не получилось распознать номер. Введите 10 цифр номера, например: 9123456789",
			Keyboard: domain.Keyboard{}.
				Row(domain.Button{Text: "Отмена", Callback: "menu_main"}),
		}
		return e.editCard(ctx, sess.UserID, screen)
	}

	result, err := e.gateway.AuthStart(ctx, sess.UserID, phone)
	if err != nil {
		return err
	}

	if result.Status == "already_authorized" {
		sess.Reset()
		screen := domain.Screen{
			Text: "Вы уже авторизованы в WB. Можно создавать задачи.",
			Keyboard: domain.Keyboard{}.
				Row(domain.Button{Text: "В главное меню", Callback: "menu_main"}),
		}
		_, err := e.showRegion(ctx, sess.UserID, domain.RegionWizardCard, screen)
		return err
	}

	sess.Set("phone", phone)
	sess.Set("auth_session_id", result.SessionID)
	sess.SetState(domain.StateAuthWaitCode)

	screen := domain.Screen{
		Text: "На телефон +7" + phone + " отправлен код подтверждения.\nВведите код из SMS.",
		Keyboard: domain.Keyboard{}.
			Row(domain.Button{Text: "Отмена", Callback: "menu_main"}),
	}
	return e.editCard(ctx, sess.UserID, screen)
}

func (e *Engine) onAuthCode(ctx context.Context, sess *domain.Session, text string) error {
	code := strings.TrimSpace(text)
	if code == "" || strings.ContainsFunc(code, func(r rune) bool { return r < '0' || r > '9' }) {
		screen := domain.Screen{
			Text: "Код должен состоять только из цифр. Попробуйте ещё раз.",
			Keyboard: domain.Keyboard{}.
				Row(domain.Button{Text: "Отмена", Callback: "menu_main"}),
		}
		return e.editCard(ctx, sess.UserID, screen)
	}

	sessionID := sess.GetString("auth_session_id")
	if err := e.gateway.AuthConfirm(ctx, sess.UserID, sessionID, code); err != nil {
		return err
	}

	sess.Reset()
	screen := domain.Screen{
		Text: "✅ Авторизация прошла успешно. Кабинет WB подключён.",
		Keyboard: domain.Keyboard{}.
			Row(domain.Button{Text: "В главное меню", Callback: "menu_main"}),
	}
	_, err := e.showRegion(ctx, sess.UserID, domain.RegionWizardCard, screen)
	return err
}
