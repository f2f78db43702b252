package moderation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"go.uber.org/zap"
)

type SendOptions struct {
	HTML    bool
	ReplyTo int
}

// Transport is the chat platform the bot acts on. Every call may fail.
type Transport interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	SendMessage(ctx context.Context, chatID int64, text string, opts SendOptions) error
	// SendPhoto returns an error wrapping fs.ErrNotExist when the image is missing.
	SendPhoto(ctx context.Context, chatID int64, imagePath, caption string) error
	RestrictUser(ctx context.Context, chatID, userID int64, perms Permissions, until time.Time) error
	BanUser(ctx context.Context, chatID, userID int64) error
	// GrantTitledRole shows title next to the member's name; it grants no rights.
	GrantTitledRole(ctx context.Context, chatID, userID int64, title string) error
}

// Executor applies Effects to a Transport. Failures are logged and never
// stop the remaining actions.
type Executor struct {
	transport Transport
	logger    *zap.Logger
}

func NewExecutor(transport Transport, logger *zap.Logger) *Executor {
	return &Executor{
		transport: transport,
		logger:    logger,
	}
}

// Apply runs every action in order and returns how many of them failed.
func (x *Executor) Apply(ctx context.Context, effects Effects) int {
	failed := 0
	for _, a := range effects.Actions {
		failed += x.apply(ctx, a)
	}
	return failed
}

func (x *Executor) apply(ctx context.Context, a Action) int {
	if err := x.do(ctx, a); err != nil {
		actionErrorCount.WithLabelValues(string(a.Kind)).Inc()
		x.logger.Warn("Failed to apply action",
			zap.Error(err),
			zap.String("kind", string(a.Kind)),
			zap.Int64("chat_id", a.ChatID),
			zap.Int64("user_id", a.UserID))
		failed := 1
		for _, next := range a.OnFailure {
			failed += x.apply(ctx, next)
		}
		return failed
	}

	actionCount.WithLabelValues(string(a.Kind)).Inc()
	failed := 0
	for _, next := range a.OnSuccess {
		failed += x.apply(ctx, next)
	}
	return failed
}

func (x *Executor) do(ctx context.Context, a Action) error {
	switch a.Kind {
	case ActionDeleteMessage:
		return x.transport.DeleteMessage(ctx, a.ChatID, a.MessageID)
	case ActionSendMessage:
		return x.transport.SendMessage(ctx, a.ChatID, a.Text, SendOptions{HTML: a.HTML, ReplyTo: a.MessageID})
	case ActionSendPhoto:
		err := x.transport.SendPhoto(ctx, a.ChatID, a.ImagePath, a.Text)
		if errors.Is(err, fs.ErrNotExist) {
			x.logger.Info("Broadcast image missing, sending text only",
				zap.String("image", a.ImagePath),
				zap.Int64("chat_id", a.ChatID))
			return x.transport.SendMessage(ctx, a.ChatID, a.Text, SendOptions{})
		}
		return err
	case ActionRestrict:
		return x.transport.RestrictUser(ctx, a.ChatID, a.UserID, a.Permissions, a.Until)
	case ActionBan:
		return x.transport.BanUser(ctx, a.ChatID, a.UserID)
	case ActionGrantTitle:
		return x.transport.GrantTitledRole(ctx, a.ChatID, a.UserID, a.Text)
	default:
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
}
