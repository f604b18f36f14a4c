// Package oracle wraps the external visual-classification service consulted
// for semantic scene changes. The service is treated as an untrusted,
// occasionally-failing collaborator: callers receive either a typed result
// or an error to degrade on, never a partial parse.
package oracle

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
)

// instruction is the fixed scene-change definition sent with every batch.
const instruction = "Analyze these consecutive frames for scene changes. A scene change occurs when there is:" +
	"\n1. A different location or setting" +
	"\n2. A significant change in camera angle (not minor movements)" +
	"\n3. A completely different action or subject" +
	"\n4. A major lighting change" +
	"\nMinor changes in the same scene should NOT be counted as scene changes." +
	"\nReturn ONLY frame numbers where definite scene changes occur, or 'None' if no changes." +
	"\nFormat: Scene changes: [frame numbers or None]"

// Result is the oracle's verdict for one batch: either an explicit
// no-change marker, or the ascending 1-based positions within the batch at
// which a definite scene change occurs.
type Result struct {
	NoChange  bool
	Positions []int
}

// Client classifies an ordered set of frame images for scene changes.
type Client interface {
	Classify(ctx context.Context, imagePaths []string) (Result, error)
}

// Config holds chat-oracle settings.
type Config struct {
	Model     string
	BaseURL   string
	APIKey    string
	MaxTokens int
}

// ChatClient implements Client on top of the OpenAI chat-completions API,
// sending the batch frames as inline data URLs.
type ChatClient struct {
	logger    zerolog.Logger
	client    openai.Client
	model     string
	maxTokens int
}

// NewChatClient creates the production oracle client. Created once per run
// and injected into the batch analyzer.
func NewChatClient(logger zerolog.Logger, cfg Config) (*ChatClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("oracle API key is not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 100
	}

	return &ChatClient{
		logger:    logger.With().Str("component", "oracle").Logger(),
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
	}, nil
}

// Classify sends one request with the batch's images and the fixed
// instruction, and parses the reply into a Result. At most one attempt is
// made; any transport, API or parse failure is returned to the caller.
func (c *ChatClient) Classify(ctx context.Context, imagePaths []string) (Result, error) {
	if len(imagePaths) == 0 {
		return Result{}, fmt.Errorf("no images to classify")
	}

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(instruction),
	}
	for _, path := range imagePaths {
		url, err := encodeImageURL(path)
		if err != nil {
			return Result{}, fmt.Errorf("encoding %s: %w", path, err)
		}
		parts = append(parts, openai.ImageContentPart(
			openai.ChatCompletionContentPartImageImageURLParam{URL: url},
		))
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(parts),
		},
		MaxTokens: openai.Int(int64(c.maxTokens)),
	})
	if err != nil {
		return Result{}, fmt.Errorf("oracle request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("oracle returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	c.logger.Debug().Str("reply", raw).Msg("oracle reply")

	return ParseReply(raw, len(imagePaths))
}

// encodeImageURL reads an image file and wraps it as a base64 data URL.
func encodeImageURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data), nil
}
