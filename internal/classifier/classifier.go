package classifier

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Classifier decides whether a chat message is an insult the bot reacts to.
type Classifier interface {
	ContainsInsult(ctx context.Context, text string) bool
}

var nonTokenChars = regexp.MustCompile(`[^\pL\pN\s]`)

// Normalize lower-cases text and replaces every character that is not a letter,
// digit or whitespace with a space, so "сынок,шлюха!!" reads as "сынок шлюха  ".
// Input is composed to NFC first so decomposed letters cannot split a word.
func Normalize(text string) string {
	return nonTokenChars.ReplaceAllString(strings.ToLower(norm.NFC.String(text)), " ")
}

// PatternClassifier matches normalized text against a PatternSet.
type PatternClassifier struct {
	set *PatternSet
}

func NewPatternClassifier(set *PatternSet) *PatternClassifier {
	return &PatternClassifier{set: set}
}

func (c *PatternClassifier) ContainsInsult(ctx context.Context, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	_, ok := c.set.Match(Normalize(text))
	return ok
}

// AnyOf reports an insult as soon as one of its classifiers does, in order.
type AnyOf []Classifier

func (a AnyOf) ContainsInsult(ctx context.Context, text string) bool {
	for _, c := range a {
		if c.ContainsInsult(ctx, text) {
			return true
		}
	}
	return false
}
