package classifier

import (
	"context"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ModerationClassifier asks the OpenAI moderations endpoint for a second opinion.
// Any API failure counts as "no insult": the pattern set stays the source of truth.
type ModerationClassifier struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func NewModerationClassifier(apiKey, model string, logger *zap.Logger) *ModerationClassifier {
	if model == "" {
		model = openai.ModerationTextLatest
	}
	return &ModerationClassifier{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: 10 * time.Second,
		logger:  logger,
	}
}

func (c *ModerationClassifier) ContainsInsult(ctx context.Context, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Moderations(ctx, openai.ModerationRequest{
		Input: text,
		Model: c.model,
	})
	if err != nil {
		c.logger.Warn("Failed to get moderation response", zap.Error(err))
		return false
	}

	for _, result := range resp.Results {
		if result.Categories.Harassment {
			return true
		}
	}
	return false
}
