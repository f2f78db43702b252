package classifier

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticClassifier bool

func (s staticClassifier) ContainsInsult(ctx context.Context, text string) bool {
	return bool(s)
}

func TestNormalize(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		text string
		out  string
	}{
		{text: "", out: ""},
		{text: "сынок,шлюха!!", out: "сынок шлюха  "},
		{text: "Привет, Мир", out: "привет  мир"},
		{text: "line\nbreak", out: "line\nbreak"},
		{text: "brawl_stars 2024", out: "brawl stars 2024"},
		// decomposed "й" (и + combining breve) is composed, not split
		{text: "тво\u0438\u0306", out: "тво\u0439"},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.out, Normalize(fix.text), fix.text)
	}
}

func TestPatternClassifier(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	c := NewPatternClassifier(DefaultPatternSet())

	fixtures := []struct {
		text   string
		insult bool
	}{
		{text: "", insult: false},
		{text: "   ", insult: false},
		{text: "Всем привет, кто идёт в нокаут?", insult: false},
		{text: "моя мама печёт пироги", insult: false},
		{text: "сынок шлюха", insult: true},
		{text: "сынок,шлюха!!", insult: true},
		{text: "СЫН ШЛЮХИ", insult: true},
		{text: "ты сын.шлюхи", insult: true},
		{text: "дочь шлюхи", insult: true},
		{text: "Твоя мать — шлюха", insult: true},
		{text: "твоя мать\nвообще-то шлюха", insult: true},
		{text: "твою мать, ну ты и шлюхо", insult: true},
		{text: "мать у тебя твоя шлюха", insult: true},
		{text: "у тебя мамка шлюха", insult: true},
		{text: "мамаша шлюха", insult: true},
		{text: "твоей мамки шлюха", insult: true},
		// needs word edges on both sides
		{text: "матьшлюха", insult: false},
		{text: "сын шлюхами", insult: false},
		{text: "пасынок шлюха", insult: false},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.insult, c.ContainsInsult(ctx, fix.text), fix.text)
	}
}

func TestDefaultPatternSet(t *testing.T) {
	set := DefaultPatternSet()
	assert.Equal(t, "parent-insults", set.Name)
	assert.Equal(t, 2, set.Version)
	assert.Equal(t, 12, set.Len())

	src, ok := set.Match(Normalize("сынок шлюха"))
	assert.True(t, ok)
	assert.Contains(t, src, "сын")
}

func TestParsePatternSetErrors(t *testing.T) {
	fixtures := []string{
		"name: broken\nversion: 1\npatterns:\n  - '(unclosed'\n",
		"name: empty\nversion: 1\npatterns: []\n",
		"name: unversioned\npatterns:\n  - 'x'\n",
		"not: [valid",
	}
	for _, data := range fixtures {
		_, err := ParsePatternSet([]byte(data))
		assert.Error(t, err, data)
	}
}

func TestLoadPatternSetFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: custom\nversion: 3\npatterns:\n  - '\\sнуб\\s'\n"), 0o644))

	set, err := LoadPatternSet(path)
	require.NoError(t, err)
	assert.Equal(t, 3, set.Version)

	c := NewPatternClassifier(set)
	assert.True(t, c.ContainsInsult(context.Background(), "ты НУБ!"))
	assert.False(t, c.ContainsInsult(context.Background(), "сынок шлюха"))

	_, err = LoadPatternSet(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestAnyOf(t *testing.T) {
	ctx := context.Background()

	assert.False(t, AnyOf{}.ContainsInsult(ctx, "text"))
	assert.False(t, AnyOf{staticClassifier(false), staticClassifier(false)}.ContainsInsult(ctx, "text"))
	assert.True(t, AnyOf{staticClassifier(false), staticClassifier(true)}.ContainsInsult(ctx, "text"))
}
