package moderation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/xaenox/brawl-guard/internal/classifier"
	"github.com/xaenox/brawl-guard/internal/directory"
	"github.com/xaenox/brawl-guard/internal/storage"
	"go.uber.org/zap"
)

const (
	testGroupID int64 = -100500
	testOwnerID int64 = 1
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("MSK", 3*60*60))

type call struct {
	Method    string
	ChatID    int64
	UserID    int64
	MessageID int
	Text      string
	HTML      bool
	Image     string
	Until     time.Time
}

// fakeTransport records every call and fails the methods listed in fail.
type fakeTransport struct {
	mu    sync.Mutex
	calls []call
	fail  map[string]error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{fail: make(map[string]error)}
}

func (f *fakeTransport) record(c call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.fail[c.Method]
}

func (f *fakeTransport) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Method)
	}
	return out
}

func (f *fakeTransport) last() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func (f *fakeTransport) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return f.record(call{Method: "delete", ChatID: chatID, MessageID: messageID})
}

func (f *fakeTransport) SendMessage(ctx context.Context, chatID int64, text string, opts SendOptions) error {
	return f.record(call{Method: "send", ChatID: chatID, Text: text, HTML: opts.HTML, MessageID: opts.ReplyTo})
}

func (f *fakeTransport) SendPhoto(ctx context.Context, chatID int64, imagePath, caption string) error {
	return f.record(call{Method: "photo", ChatID: chatID, Image: imagePath, Text: caption})
}

func (f *fakeTransport) RestrictUser(ctx context.Context, chatID, userID int64, perms Permissions, until time.Time) error {
	return f.record(call{Method: "restrict", ChatID: chatID, UserID: userID, Until: until})
}

func (f *fakeTransport) BanUser(ctx context.Context, chatID, userID int64) error {
	return f.record(call{Method: "ban", ChatID: chatID, UserID: userID})
}

func (f *fakeTransport) GrantTitledRole(ctx context.Context, chatID, userID int64, title string) error {
	return f.record(call{Method: "title", ChatID: chatID, UserID: userID, Text: title})
}

type testEnv struct {
	mod   *Moderator
	store *storage.MemoryStorage
	dir   *directory.Directory
	tr    *fakeTransport
	exec  *Executor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := storage.NewMemoryStorage()
	dir := directory.New(store, testOwnerID)
	filter := classifier.NewPatternClassifier(classifier.DefaultPatternSet())
	tr := newFakeTransport()
	return &testEnv{
		mod:   New(Settings{GroupID: testGroupID}, dir, filter, zap.NewNop(), WithClock(func() time.Time { return testNow })),
		store: store,
		dir:   dir,
		tr:    tr,
		exec:  NewExecutor(tr, zap.NewNop()),
	}
}

func (e *testEnv) warnings(t *testing.T, userID int64) int {
	t.Helper()
	u, err := e.dir.Lookup(context.Background(), userID)
	if err != nil {
		t.Fatalf("lookup %d: %v", userID, err)
	}
	return u.Warnings
}
