// Package anthropic adapts Anthropic's Messages API to vision.Model.
package anthropic

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dshills/visionprobe/probe/vision"
)

// defaultMaxTokens is the completion budget for one-word yes/no answers.
// Claude refuses MaxTokens below 1; a small budget keeps answers terse.
const defaultMaxTokens = 20

// VisionModel implements vision.Model for Anthropic's Claude API.
//
// Provides access to vision-capable Claude models with:
//   - Images sent as base64 content blocks
//   - Error translation to the common retryable/permanent classes
//   - Automatic retry for transient errors
//   - Context cancellation
//
// Example usage:
//
//	apiKey := os.Getenv("ANTHROPIC_API_KEY")
//	m := anthropic.NewVisionModel(apiKey, "claude-sonnet-4-20250514")
//
//	ans, err := m.AskImage(ctx, vision.ImageQuery{Prompt: prompt, Image: jpegBytes})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(ans.Text)
type VisionModel struct {
	modelName string
	client    anthropicClient
	policy    vision.RetryPolicy
}

// anthropicClient defines the interface for Anthropic API operations.
// This allows for easy mocking in tests.
type anthropicClient interface {
	createVisionMessage(ctx context.Context, q vision.ImageQuery) (vision.Answer, error)
}

// NewVisionModel creates a new Anthropic VisionModel.
//
// Parameters:
//   - apiKey: Anthropic API key (get from https://console.anthropic.com/)
//   - modelName: Model to use. Empty string uses "claude-sonnet-4-20250514".
func NewVisionModel(apiKey, modelName string) *VisionModel {
	if modelName == "" {
		modelName = "claude-sonnet-4-20250514"
	}

	return &VisionModel{
		modelName: modelName,
		client:    &defaultClient{apiKey: apiKey, modelName: modelName},
		policy:    vision.DefaultRetryPolicy(),
	}
}

// SetRetryPolicy replaces the default retry policy. Call before the first
// AskImage; the model is otherwise safe for concurrent use.
func (m *VisionModel) SetRetryPolicy(p vision.RetryPolicy) {
	m.policy = p
}

// AskImage implements the vision.Model interface.
func (m *VisionModel) AskImage(ctx context.Context, q vision.ImageQuery) (vision.Answer, error) {
	if ctx.Err() != nil {
		return vision.Answer{}, ctx.Err()
	}

	return vision.Retry(ctx, m.policy, func() (vision.Answer, error) {
		return m.client.createVisionMessage(ctx, q)
	})
}

// defaultClient wraps the official anthropic-sdk-go client.
type defaultClient struct {
	apiKey    string
	modelName string

	clientOnce *anthropic.Client
}

func (c *defaultClient) sdk() *anthropic.Client {
	if c.clientOnce == nil {
		client := anthropic.NewClient(
			option.WithAPIKey(c.apiKey),
		)
		c.clientOnce = &client
	}
	return c.clientOnce
}

func (c *defaultClient) createVisionMessage(ctx context.Context, q vision.ImageQuery) (vision.Answer, error) {
	if c.apiKey == "" {
		return vision.Answer{}, errors.New("Anthropic API key is required")
	}

	maxTokens := q.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	msg, err := c.sdk().Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.modelName),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(q.ContentType(), q.Base64()),
				anthropic.NewTextBlock(q.Prompt),
			),
		},
	})
	if err != nil {
		return vision.Answer{}, vision.ClassifyError(err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return vision.Answer{
		Text:             text,
		Model:            string(msg.Model),
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
		TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}, nil
}
