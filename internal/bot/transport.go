package bot

import (
	"context"
	"fmt"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/xaenox/brawl-guard/internal/moderation"
	"golang.org/x/time/rate"
)

var apiLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "guard_telegram_request_seconds",
	Help:    "Latency of Telegram Bot API requests, by method.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "status"})

// telegramTransport implements moderation.Transport on top of the Bot API.
// Every request waits for the shared limiter first.
type telegramTransport struct {
	api     *tgbotapi.BotAPI
	limiter *rate.Limiter
}

func newTelegramTransport(api *tgbotapi.BotAPI, limiter *rate.Limiter) *telegramTransport {
	return &telegramTransport{
		api:     api,
		limiter: limiter,
	}
}

func (t *telegramTransport) request(ctx context.Context, method string, c tgbotapi.Chattable) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	start := time.Now()
	_, err := t.api.Request(c)
	status := "ok"
	if err != nil {
		status = "error"
	}
	apiLatency.WithLabelValues(method, status).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func (t *telegramTransport) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return t.request(ctx, "deleteMessage", tgbotapi.NewDeleteMessage(chatID, messageID))
}

func (t *telegramTransport) SendMessage(ctx context.Context, chatID int64, text string, opts moderation.SendOptions) error {
	return t.request(ctx, "sendMessage", newMessageConfig(chatID, text, opts))
}

func newMessageConfig(chatID int64, text string, opts moderation.SendOptions) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	if opts.HTML {
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
	}
	if opts.ReplyTo != 0 {
		msg.ReplyToMessageID = opts.ReplyTo
		msg.AllowSendingWithoutReply = true
	}
	return msg
}

func (t *telegramTransport) SendPhoto(ctx context.Context, chatID int64, imagePath, caption string) error {
	if _, err := os.Stat(imagePath); err != nil {
		return fmt.Errorf("sendPhoto: %w", err)
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(imagePath))
	photo.Caption = caption
	return t.request(ctx, "sendPhoto", photo)
}

func (t *telegramTransport) RestrictUser(ctx context.Context, chatID, userID int64, perms moderation.Permissions, until time.Time) error {
	return t.request(ctx, "restrictChatMember", newRestrictConfig(chatID, userID, perms, until))
}

func newRestrictConfig(chatID, userID int64, perms moderation.Permissions, until time.Time) tgbotapi.RestrictChatMemberConfig {
	return tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: chatID,
			UserID: userID,
		},
		UntilDate: until.Unix(),
		Permissions: &tgbotapi.ChatPermissions{
			CanSendMessages: perms.CanSendMessages,
		},
	}
}

func (t *telegramTransport) BanUser(ctx context.Context, chatID, userID int64) error {
	return t.request(ctx, "banChatMember", tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: chatID,
			UserID: userID,
		},
	})
}

// GrantTitledRole promotes the member without any rights, which only makes
// a custom title possible, then sets the title.
func (t *telegramTransport) GrantTitledRole(ctx context.Context, chatID, userID int64, title string) error {
	member := tgbotapi.ChatMemberConfig{
		ChatID: chatID,
		UserID: userID,
	}
	if err := t.request(ctx, "promoteChatMember", tgbotapi.PromoteChatMemberConfig{
		ChatMemberConfig: member,
	}); err != nil {
		return err
	}
	return t.request(ctx, "setChatAdministratorCustomTitle", tgbotapi.SetChatAdministratorCustomTitle{
		ChatMemberConfig: member,
		CustomTitle:      title,
	})
}
