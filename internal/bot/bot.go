package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/xaenox/brawl-guard/internal/models"
	"github.com/xaenox/brawl-guard/internal/moderation"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// handlerTimeout bounds the work done for a single event, shutdown included.
const handlerTimeout = 30 * time.Second

var (
	eventCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guard_events_total",
		Help: "Events taken off the dispatcher, by kind.",
	}, []string{"kind"})
	panicCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guard_handler_panics_total",
		Help: "Handler panics recovered by the dispatcher.",
	})
)

type eventKind string

const (
	eventUpdate   eventKind = "update"
	eventAnnounce eventKind = "announce"
)

// event is the unit of work of the dispatcher: either a Telegram update or a
// scheduled announcement.
type event struct {
	id     string
	kind   eventKind
	update tgbotapi.Update
	mode   models.Mode
}

type handlerFunc func(ctx context.Context, ev event, logger *zap.Logger) moderation.Effects

type Bot struct {
	api       *tgbotapi.BotAPI
	moderator *moderation.Moderator
	executor  *moderation.Executor
	handler   handlerFunc
	events    chan event
	inflight  sync.WaitGroup
	logger    *zap.Logger
}

func New(token string, moderator *moderation.Moderator, rateLimit float64, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	limiter := rate.NewLimiter(rate.Limit(rateLimit), 1)
	b := &Bot{
		api:       api,
		moderator: moderator,
		executor:  moderation.NewExecutor(newTelegramTransport(api, limiter), logger),
		events:    make(chan event, 16),
		logger:    logger,
	}
	b.handler = b.handle
	return b, nil
}

func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// Announce queues a mode broadcast onto the dispatcher. It blocks until the
// event is queued or ctx is done.
func (b *Bot) Announce(ctx context.Context, mode models.Mode) {
	ev := event{id: uuid.New().String(), kind: eventAnnounce, mode: mode}
	select {
	case b.events <- ev:
	case <-ctx.Done():
		b.logger.Warn("Announcement dropped",
			zap.String("mode", mode.Name),
			zap.Error(ctx.Err()))
	}
}

// Start receives updates until ctx is cancelled, then waits for running
// handlers to finish.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "my_chat_member"}

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("Bot started", zap.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			if dropped := b.dropQueued(); dropped > 0 {
				b.logger.Warn("Queued events dropped at shutdown", zap.Int("dropped", dropped))
			}
			b.inflight.Wait()
			b.logger.Info("Bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				b.inflight.Wait()
				return fmt.Errorf("update channel closed")
			}
			b.dispatch(ctx, event{id: uuid.New().String(), kind: eventUpdate, update: update})
		case ev := <-b.events:
			b.dispatch(ctx, ev)
		}
	}
}

// dropQueued empties the event queue without handling it and logs every
// event it discards.
func (b *Bot) dropQueued() int {
	dropped := 0
	for {
		select {
		case ev := <-b.events:
			dropped++
			b.logger.Warn("Event dropped",
				zap.String("event_id", ev.id),
				zap.String("kind", string(ev.kind)),
				zap.String("mode", ev.mode.Name))
		default:
			return dropped
		}
	}
}

// dispatch runs the event on its own goroutine. A failing or panicking
// handler never takes the loop down.
func (b *Bot) dispatch(ctx context.Context, ev event) {
	eventCount.WithLabelValues(string(ev.kind)).Inc()
	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				panicCount.Inc()
				b.logger.Error("Handler panic",
					zap.String("event_id", ev.id),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()))
			}
		}()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), handlerTimeout)
		defer cancel()

		logger := b.logger.With(zap.String("event_id", ev.id))
		effects := b.handler(ctx, ev, logger)
		if failed := b.executor.Apply(ctx, effects); failed > 0 {
			logger.Warn("Some actions failed", zap.Int("failed", failed))
		}
	}()
}

func (b *Bot) handle(ctx context.Context, ev event, logger *zap.Logger) moderation.Effects {
	if ev.kind == eventAnnounce {
		logger.Info("Announcing mode", zap.String("mode", ev.mode.Name))
		return b.moderator.Announce(ev.mode)
	}

	update := ev.update
	if update.MyChatMember != nil {
		b.logChatMember(update.MyChatMember, logger)
		return moderation.Effects{}
	}

	message := update.Message
	if message == nil || message.From == nil || message.Chat == nil {
		return moderation.Effects{}
	}

	if len(message.NewChatMembers) > 0 {
		return b.moderator.WelcomeMembers(ctx, message.Chat.ID, toUsers(message.NewChatMembers))
	}

	if message.IsCommand() {
		if !addressedTo(message, b.api.Self.UserName) {
			return moderation.Effects{}
		}
		cmd := toCommand(message)
		effects, err := b.moderator.HandleCommand(ctx, cmd)
		if err != nil {
			logger.Error("Failed to handle command",
				zap.Error(err),
				zap.String("command", cmd.Name),
				zap.Int64("user_id", cmd.From.ID),
				zap.Int64("chat_id", cmd.ChatID))
		}
		return effects
	}

	msg, ok := gatedMessage(message)
	if !ok {
		return moderation.Effects{}
	}
	effects, err := b.moderator.HandleMessage(ctx, msg)
	if err != nil {
		logger.Error("Failed to handle message",
			zap.Error(err),
			zap.Int64("user_id", msg.From.ID),
			zap.Int64("chat_id", msg.ChatID))
	}
	return effects
}

func (b *Bot) logChatMember(m *tgbotapi.ChatMemberUpdated, logger *zap.Logger) {
	logger.Info("Bot membership changed",
		zap.Int64("chat_id", m.Chat.ID),
		zap.String("chat_title", m.Chat.Title),
		zap.Int64("changed_by", m.From.ID),
		zap.String("old_status", m.OldChatMember.Status),
		zap.String("new_status", m.NewChatMember.Status))
}

func toUser(u *tgbotapi.User) moderation.User {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return moderation.User{ID: u.ID, Name: name, IsBot: u.IsBot}
}

func toUsers(users []tgbotapi.User) []moderation.User {
	out := make([]moderation.User, 0, len(users))
	for i := range users {
		out = append(out, toUser(&users[i]))
	}
	return out
}

func toMessage(m *tgbotapi.Message) moderation.Message {
	msg := moderation.Message{
		ChatID: m.Chat.ID,
		ID:     m.MessageID,
		From:   toUser(m.From),
		Text:   m.Text,
	}
	if m.ReplyToMessage != nil && m.ReplyToMessage.From != nil {
		target := toUser(m.ReplyToMessage.From)
		msg.ReplyTo = &target
	}
	return msg
}

// gatedMessage returns the message the moderation pipeline sees. Only text
// messages are moderated: media, captions included, stickers and service
// messages pass untouched.
func gatedMessage(m *tgbotapi.Message) (moderation.Message, bool) {
	if m.Text == "" {
		return moderation.Message{}, false
	}
	return toMessage(m), true
}

// addressedTo reports whether a command is meant for this bot. "/mute" is,
// "/mute@other_bot" is not.
func addressedTo(m *tgbotapi.Message, username string) bool {
	_, at, ok := strings.Cut(m.CommandWithAt(), "@")
	return !ok || strings.EqualFold(at, username)
}

func toCommand(m *tgbotapi.Message) moderation.Command {
	return moderation.Command{
		Message: toMessage(m),
		Name:    strings.ToLower(m.Command()),
		Args:    strings.Fields(m.CommandArguments()),
	}
}
