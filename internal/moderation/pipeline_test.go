package moderation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/brawl-guard/internal/models"
	"github.com/xaenox/brawl-guard/internal/storage"
)

const insult = "сынок,шлюха!!"

func groupMessage(id int, from User, text string) Message {
	return Message{ChatID: testGroupID, ID: id, From: from, Text: text}
}

func TestHandleMessageOutsideGroup(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	effects, err := env.mod.HandleMessage(ctx, Message{ChatID: 999, ID: 1, From: User{ID: 7}, Text: insult})
	require.NoError(t, err)
	assert.True(t, effects.Empty())

	_, err = env.store.GetUser(ctx, 7)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestHandleMessageNicknameGate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := User{ID: 8, Name: "Nita"}

	for i, text := range []string{"всем привет", insult, ""} {
		effects, err := env.mod.HandleMessage(ctx, groupMessage(i+1, user, text))
		require.NoError(t, err)
		assert.Equal(t, []ActionKind{ActionDeleteMessage, ActionSendMessage}, effects.Kinds(), text)

		del, _ := effects.Find(ActionDeleteMessage)
		assert.Equal(t, i+1, del.MessageID)
	}

	// the gate short-circuits the filter, and the record now exists
	u, err := env.store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, u.Warnings)
}

func TestHandleMessageGatedClean(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	require.NoError(t, env.dir.SetNickname(ctx, 9, "Poco"))

	effects, err := env.mod.HandleMessage(ctx, groupMessage(1, User{ID: 9}, "кто в нокаут?"))
	require.NoError(t, err)
	assert.True(t, effects.Empty())
	assert.Equal(t, 0, env.warnings(t, 9))
}

func TestHandleMessageIgnoresBots(t *testing.T) {
	env := newTestEnv(t)

	effects, err := env.mod.HandleMessage(context.Background(), groupMessage(1, User{ID: 10, IsBot: true}, insult))
	require.NoError(t, err)
	assert.True(t, effects.Empty())
}

func TestModerationScenario(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	userA := User{ID: 100, Name: "A"}
	userB := User{ID: 200, Name: "B"}

	// A has no nickname: deleted and prompted, no warning
	effects, err := env.mod.HandleMessage(ctx, groupMessage(1, userA, insult))
	require.NoError(t, err)
	env.exec.Apply(ctx, effects)
	assert.Equal(t, []string{"delete", "send"}, env.tr.methods())
	assert.Contains(t, env.tr.last().Text, "/setnick")
	assert.Equal(t, 0, env.warnings(t, userA.ID))

	// B is registered: first insult warns
	require.NoError(t, env.dir.SetNickname(ctx, userB.ID, "Brock"))
	env.tr = newFakeTransport()
	env.exec = NewExecutor(env.tr, env.exec.logger)

	effects, err = env.mod.HandleMessage(ctx, groupMessage(2, userB, insult))
	require.NoError(t, err)
	env.exec.Apply(ctx, effects)
	assert.Equal(t, []string{"send"}, env.tr.methods())
	assert.Contains(t, env.tr.last().Text, "предупреждение")
	assert.Equal(t, 1, env.warnings(t, userB.ID))

	// second insult restricts for 45 minutes and announces it
	effects, err = env.mod.HandleMessage(ctx, groupMessage(3, userB, "сынок шлюха"))
	require.NoError(t, err)
	env.exec.Apply(ctx, effects)
	assert.Equal(t, []string{"send", "restrict", "send"}, env.tr.methods())
	restrict := env.tr.calls[1]
	assert.Equal(t, userB.ID, restrict.UserID)
	assert.Equal(t, testGroupID, restrict.ChatID)
	assert.Equal(t, testNow.UTC().Add(45*time.Minute), restrict.Until)
	assert.Contains(t, env.tr.last().Text, "мут на 45 минут")
	assert.Equal(t, 2, env.warnings(t, userB.ID))
}

func TestRestrictionFailureStillNotifies(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.tr.fail["restrict"] = errors.New("Bad Request: not enough rights")
	user := User{ID: 300, Name: "Edgar"}
	require.NoError(t, env.dir.SetNickname(ctx, user.ID, "Edgar"))

	for i := 1; i <= 2; i++ {
		effects, err := env.mod.HandleMessage(ctx, groupMessage(i, user, insult))
		require.NoError(t, err)
		env.exec.Apply(ctx, effects)
	}

	assert.Equal(t, []string{"send", "restrict", "send"}, env.tr.methods())
	assert.Contains(t, env.tr.last().Text, "мут")
	assert.Equal(t, 2, env.warnings(t, user.ID))
}

func TestWelcomeMembers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	effects := env.mod.WelcomeMembers(ctx, testGroupID, []User{
		{ID: 400, Name: "Leon <3"},
		{ID: 401, Name: "helper_bot", IsBot: true},
	})
	require.Len(t, effects.Actions, 1)
	assert.True(t, effects.Actions[0].HTML)
	assert.Contains(t, effects.Actions[0].Text, `<a href="tg://user?id=400">Leon &lt;3</a>`)

	_, err := env.store.GetUser(ctx, 400)
	assert.NoError(t, err)

	assert.True(t, env.mod.WelcomeMembers(ctx, 12345, []User{{ID: 402}}).Empty())
}

func TestAnnounceFallsBackToText(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	mode := models.Mode{Name: "knockout", Image: "images/knockout.png", Caption: "Нокаут 5 на 5 скоро!"}

	env.exec.Apply(ctx, env.mod.Announce(mode))
	assert.Equal(t, []string{"photo"}, env.tr.methods())
	assert.Equal(t, testGroupID, env.tr.last().ChatID)

	env.tr.fail["photo"] = fmt.Errorf("open images/knockout.png: %w", fs.ErrNotExist)
	env.exec.Apply(ctx, env.mod.Announce(mode))
	assert.Equal(t, []string{"photo", "photo", "send"}, env.tr.methods())
	assert.Equal(t, mode.Caption, env.tr.last().Text)
}
