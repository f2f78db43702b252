package moderation

import (
	"fmt"
	"html"
	"strings"

	"github.com/xaenox/brawl-guard/internal/models"
)

// User is a chat member as seen in an inbound event.
type User struct {
	ID    int64
	Name  string
	IsBot bool
}

// Mention renders an HTML link to the user's profile.
func (u User) Mention() string {
	name := strings.TrimSpace(u.Name)
	if name == "" {
		name = fmt.Sprintf("id%d", u.ID)
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, u.ID, html.EscapeString(name))
}

const (
	startText = "Привет! Я бот группы Brawl Stars.\n\n" +
		"Что умею:\n" +
		"• Модерирую оскорбления родителей\n" +
		"• Работаю с ролями (Админ / Мл. Админ)\n" +
		"• Напоминаю про Нокаут 5 на 5\n" +
		"• Собираю игровые никнеймы (/setnick)\n"

	setnickUsageText  = "Напиши так: /setnick ТвойИгровойНик"
	muteUsageText     = "Напиши так: /mute <минут>. Например: /mute 30"
	muteNotNumberText = "Минуты должны быть числом."
	muteJuniorCapText = "Мл. Админ может мутить максимум на 60 минут."
	muteFailedText    = "Не удалось выдать мут (нет прав бота?)."
	banFailedText     = "Не удалось заблокировать (нет прав бота?)."
	addAdminOwnerText = "Только владелец бота может выдавать роль Админа."
	grantOwnerText    = "Владелец бота не может получить другую роль."
	infoUsageText     = "Ответь командой /info на сообщение пользователя."
	tryLaterText      = "Не удалось выполнить команду, попробуй позже."
	nicknameUnsetText = "не указан"
)

func welcomeText(u User) string {
	return fmt.Sprintf("Добро пожаловать, %s!\n\n", u.Mention()) +
		"Правила:\n" +
		"1. Без оскорблений родителей.\n" +
		"2. Без спама.\n" +
		"3. Уважай остальных.\n\n" +
		"Чтобы нормально общаться в чате, укажи свой ник из Brawl Stars:\n" +
		"<b>/setnick ТвойНик</b>\n\n" +
		"Пока ник не указан, все твои сообщения (кроме /setnick) будут удаляться ботом."
}

func nicknamePromptText(u User) string {
	return fmt.Sprintf("%s, сначала укажи свой ник командой /setnick ТвойНик", u.Mention())
}

func firstWarningText(u User) string {
	return fmt.Sprintf("%s, предупреждение за оскорбление родителей.\n"+
		"В следующий раз будет мут на %d минут.", u.Mention(), int(RestrictionWindow.Minutes()))
}

func restrictedText(u User) string {
	return fmt.Sprintf("%s получил мут на %d минут за повторное оскорбление родителей.",
		u.Mention(), int(RestrictionWindow.Minutes()))
}

func nicknameSavedText(nick string) string {
	return fmt.Sprintf("Никнейм сохранён: %s.", nick)
}

func noRightsText(command string) string {
	return fmt.Sprintf("У тебя нет прав использовать /%s.", command)
}

func replyRequiredText(command string) string {
	return fmt.Sprintf("Нужно ответить командой /%s на сообщение пользователя.", command)
}

func mutedText(target User, minutes int, permanent bool) string {
	if permanent {
		return fmt.Sprintf("Пользователь %s получил бессрочный мут.", target.Mention())
	}
	return fmt.Sprintf("Пользователь %s получил мут на %d мин.", target.Mention(), minutes)
}

func bannedText(target User) string {
	return fmt.Sprintf("Пользователь %s заблокирован.", target.Mention())
}

func grantedText(target User, role models.Role) string {
	return fmt.Sprintf("%s теперь %s.", target.Mention(), role.Title())
}

func infoText(target User, user *models.User) string {
	nick := nicknameUnsetText
	if user.HasNickname() {
		nick = user.Nickname
	}
	return fmt.Sprintf("Пользователь: %s\nНик в игре: <b>%s</b>\nРоль: <b>%s</b>\nПредупреждений: <b>%d</b>",
		target.Mention(), html.EscapeString(nick), user.Role.Title(), user.Warnings)
}
