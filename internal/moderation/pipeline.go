// Package moderation decides how the bot reacts to group events. Handlers
// return Effects, the list of transport actions to apply, and never talk to
// the chat transport directly; an Executor applies the effects afterwards.
package moderation

import (
	"context"
	"time"

	"github.com/xaenox/brawl-guard/internal/classifier"
	"github.com/xaenox/brawl-guard/internal/directory"
	"github.com/xaenox/brawl-guard/internal/models"
	"go.uber.org/zap"
)

// Message is an inbound chat message.
type Message struct {
	ChatID int64
	ID     int
	From   User
	Text   string
	// ReplyTo is the author of the message this one replies to, if any.
	ReplyTo *User
}

type Settings struct {
	GroupID int64
}

type Option func(*Moderator)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Moderator) {
		m.now = now
	}
}

type Moderator struct {
	settings  Settings
	dir       *directory.Directory
	filter    classifier.Classifier
	escalator *Escalator
	now       func() time.Time
	logger    *zap.Logger
}

func New(settings Settings, dir *directory.Directory, filter classifier.Classifier, logger *zap.Logger, opts ...Option) *Moderator {
	m := &Moderator{
		settings: settings,
		dir:      dir,
		filter:   filter,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.escalator = NewEscalator(dir, m.now)
	return m
}

func (m *Moderator) inGroup(chatID int64) bool {
	return chatID == m.settings.GroupID
}

// observe makes sure every user the bot sees has a record. Failures are logged only.
func (m *Moderator) observe(ctx context.Context, users ...*User) {
	for _, u := range users {
		if u == nil {
			continue
		}
		if err := m.dir.Ensure(ctx, u.ID); err != nil {
			m.logger.Error("Failed to ensure user record",
				zap.Error(err),
				zap.Int64("user_id", u.ID))
		}
	}
}

// HandleMessage runs the nickname gate, then the insult filter, then escalation.
// Messages outside the group produce no effects.
func (m *Moderator) HandleMessage(ctx context.Context, msg Message) (Effects, error) {
	var effects Effects
	if !m.inGroup(msg.ChatID) || msg.From.IsBot {
		return effects, nil
	}
	messagesChecked.Inc()
	m.observe(ctx, &msg.From)

	_, registered, err := m.dir.Nickname(ctx, msg.From.ID)
	if err != nil {
		return effects, err
	}
	if !registered {
		// The filter is not consulted: the message goes away regardless of content.
		gateDeletions.Inc()
		effects.Add(
			DeleteMessage(msg.ChatID, msg.ID),
			SendHTML(msg.ChatID, nicknamePromptText(msg.From)),
		)
		return effects, nil
	}

	if !m.filter.ContainsInsult(ctx, msg.Text) {
		return effects, nil
	}

	offense, err := m.escalator.RecordOffense(ctx, msg.ChatID, msg.From)
	if err != nil {
		return effects, err
	}
	m.logger.Info("Insult detected",
		zap.Int64("user_id", msg.From.ID),
		zap.Int64("chat_id", msg.ChatID),
		zap.Int("warnings", offense.Warnings),
		zap.Stringer("state", offense.State))
	return offense.Effects, nil
}

// WelcomeMembers greets people who joined the group and explains the nickname rule.
func (m *Moderator) WelcomeMembers(ctx context.Context, chatID int64, members []User) Effects {
	var effects Effects
	if !m.inGroup(chatID) {
		return effects
	}
	for i := range members {
		if members[i].IsBot {
			continue
		}
		m.observe(ctx, &members[i])
		effects.Add(SendHTML(chatID, welcomeText(members[i])))
	}
	return effects
}

// Announce builds the scheduled broadcast for a mode. A missing image
// degrades to a text-only message when the effects are applied.
func (m *Moderator) Announce(mode models.Mode) Effects {
	var effects Effects
	effects.Add(SendPhoto(m.settings.GroupID, mode.Image, mode.Caption))
	return effects
}
