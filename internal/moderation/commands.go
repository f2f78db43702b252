package moderation

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xaenox/brawl-guard/internal/models"
	"go.uber.org/zap"
)

const (
	// JuniorMuteCapMinutes is the longest mute a junior admin may hand out.
	JuniorMuteCapMinutes = 60
	// PermanentMuteMinutes replaces non-positive mute durations.
	PermanentMuteMinutes = 365 * 24 * 60
	// maxTitleLength is Telegram's limit for a custom administrator title.
	maxTitleLength = 16
)

// Command is a slash command sent to the bot.
type Command struct {
	Message
	Name string
	Args []string
}

type commandHandler func(ctx context.Context, cmd Command) (Effects, error)

func (m *Moderator) commands() map[string]commandHandler {
	return map[string]commandHandler{
		"start":     m.handleStart,
		"setnick":   m.handleSetNick,
		"mute":      m.handleMute,
		"ban":       m.handleBan,
		"addjunior": m.handleAddJunior,
		"addadmin":  m.handleAddAdmin,
		"info":      m.handleInfo,
	}
}

// HandleCommand dispatches a command. The returned effects are meant to be
// applied even when err is non-nil: they then hold the user-facing apology.
// Unknown commands are ignored.
func (m *Moderator) HandleCommand(ctx context.Context, cmd Command) (Effects, error) {
	handler, ok := m.commands()[cmd.Name]
	if !ok {
		return Effects{}, nil
	}
	commandCount.WithLabelValues(cmd.Name).Inc()
	m.observe(ctx, &cmd.From, cmd.ReplyTo)
	return handler(ctx, cmd)
}

func reply(cmd Command, text string) Effects {
	var e Effects
	e.Add(Reply(cmd.ChatID, cmd.ID, text, false))
	return e
}

func replyHTML(cmd Command, text string) Effects {
	var e Effects
	e.Add(Reply(cmd.ChatID, cmd.ID, text, true))
	return e
}

// authorize resolves the acting user's rights. The second return value is
// the reply to send when the command must stop.
func (m *Moderator) authorize(ctx context.Context, cmd Command, minimum models.Role) (bool, Effects, error) {
	ok, err := m.dir.Authorize(ctx, cmd.From.ID, minimum)
	if err != nil {
		m.logger.Error("Failed to resolve role",
			zap.Error(err),
			zap.Int64("user_id", cmd.From.ID),
			zap.String("command", cmd.Name))
		return false, reply(cmd, tryLaterText), err
	}
	if !ok {
		return false, reply(cmd, noRightsText(cmd.Name)), nil
	}
	return true, Effects{}, nil
}

func (m *Moderator) handleStart(ctx context.Context, cmd Command) (Effects, error) {
	return reply(cmd, startText), nil
}

func (m *Moderator) handleSetNick(ctx context.Context, cmd Command) (Effects, error) {
	nick := models.TruncateNickname(strings.Join(cmd.Args, " "))
	if nick == "" {
		return reply(cmd, setnickUsageText), nil
	}

	if err := m.dir.SetNickname(ctx, cmd.From.ID, nick); err != nil {
		return reply(cmd, tryLaterText), err
	}

	// The title is cosmetic: a failure is only logged by the executor.
	var effects Effects
	effects.Add(
		GrantTitle(m.settings.GroupID, cmd.From.ID, memberTitle(nick)),
		Reply(cmd.ChatID, cmd.ID, nicknameSavedText(nick), false),
	)
	return effects, nil
}

func memberTitle(nick string) string {
	if utf8.RuneCountInString(nick) <= maxTitleLength {
		return nick
	}
	return string([]rune(nick)[:maxTitleLength])
}

func (m *Moderator) handleMute(ctx context.Context, cmd Command) (Effects, error) {
	if !m.inGroup(cmd.ChatID) {
		return Effects{}, nil
	}
	if ok, effects, err := m.authorize(ctx, cmd, models.RoleJunior); !ok {
		return effects, err
	}
	if cmd.ReplyTo == nil {
		return reply(cmd, replyRequiredText(cmd.Name)), nil
	}
	if len(cmd.Args) == 0 {
		return reply(cmd, muteUsageText), nil
	}
	minutes, err := strconv.Atoi(cmd.Args[0])
	if err != nil {
		return reply(cmd, muteNotNumberText), nil
	}

	// Anything past a year is a permanent mute; it also keeps the Duration from overflowing.
	permanent := minutes <= 0 || minutes >= PermanentMuteMinutes
	if permanent {
		minutes = PermanentMuteMinutes
	}

	role, err := m.dir.Role(ctx, cmd.From.ID)
	if err != nil {
		return reply(cmd, tryLaterText), err
	}
	if role == models.RoleJunior && minutes > JuniorMuteCapMinutes {
		return reply(cmd, muteJuniorCapText), nil
	}

	target := *cmd.ReplyTo
	until := m.now().UTC().Add(time.Duration(minutes) * time.Minute)

	var effects Effects
	effects.Add(Restrict(cmd.ChatID, target.ID, until).
		Then(Reply(cmd.ChatID, cmd.ID, mutedText(target, minutes, permanent), true)).
		Else(Reply(cmd.ChatID, cmd.ID, muteFailedText, false)))
	return effects, nil
}

func (m *Moderator) handleBan(ctx context.Context, cmd Command) (Effects, error) {
	if !m.inGroup(cmd.ChatID) {
		return Effects{}, nil
	}
	if ok, effects, err := m.authorize(ctx, cmd, models.RoleAdmin); !ok {
		return effects, err
	}
	if cmd.ReplyTo == nil {
		return reply(cmd, replyRequiredText(cmd.Name)), nil
	}

	target := *cmd.ReplyTo
	var effects Effects
	effects.Add(Ban(cmd.ChatID, target.ID).
		Then(Reply(cmd.ChatID, cmd.ID, bannedText(target), true)).
		Else(Reply(cmd.ChatID, cmd.ID, banFailedText, false)))
	return effects, nil
}

func (m *Moderator) handleAddJunior(ctx context.Context, cmd Command) (Effects, error) {
	if !m.inGroup(cmd.ChatID) {
		return Effects{}, nil
	}
	if ok, effects, err := m.authorize(ctx, cmd, models.RoleAdmin); !ok {
		return effects, err
	}
	return m.grant(ctx, cmd, models.RoleJunior)
}

// handleAddAdmin requires the owner identity itself, not just owner rank.
func (m *Moderator) handleAddAdmin(ctx context.Context, cmd Command) (Effects, error) {
	if !m.inGroup(cmd.ChatID) {
		return Effects{}, nil
	}
	if !m.dir.IsOwner(cmd.From.ID) {
		return reply(cmd, addAdminOwnerText), nil
	}
	return m.grant(ctx, cmd, models.RoleAdmin)
}

func (m *Moderator) grant(ctx context.Context, cmd Command, role models.Role) (Effects, error) {
	if cmd.ReplyTo == nil {
		return reply(cmd, replyRequiredText(cmd.Name)), nil
	}
	target := *cmd.ReplyTo
	if m.dir.IsOwner(target.ID) {
		return reply(cmd, grantOwnerText), nil
	}

	if err := m.dir.SetRole(ctx, target.ID, role); err != nil {
		return reply(cmd, tryLaterText), err
	}
	m.logger.Info("Role granted",
		zap.Int64("user_id", target.ID),
		zap.Int64("granted_by", cmd.From.ID),
		zap.String("role", string(role)))
	return replyHTML(cmd, grantedText(target, role)), nil
}

func (m *Moderator) handleInfo(ctx context.Context, cmd Command) (Effects, error) {
	if cmd.ReplyTo == nil {
		return reply(cmd, infoUsageText), nil
	}
	target := *cmd.ReplyTo
	user, err := m.dir.Lookup(ctx, target.ID)
	if err != nil {
		return reply(cmd, tryLaterText), err
	}
	return replyHTML(cmd, infoText(target, user)), nil
}
