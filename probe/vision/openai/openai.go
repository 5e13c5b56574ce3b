// Package openai adapts OpenAI's chat completions API to vision.Model.
package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/dshills/visionprobe/probe/vision"
)

// Default completion budgets for one-word yes/no answers. The GPT-5
// family spends reasoning tokens out of the same budget, so it needs
// more headroom than older models.
const (
	defaultMaxTokens     = 5
	defaultGPT5MaxTokens = 20
)

// VisionModel implements vision.Model for OpenAI's API.
//
// Provides access to OpenAI vision models (GPT-4o, GPT-4.1, GPT-5 family)
// with:
//   - Images sent inline as base64 data URLs
//   - Automatic retry with exponential backoff for transient errors
//   - Rate limit handling that honors server-suggested waits
//   - Context cancellation
//
// Example usage:
//
//	apiKey := os.Getenv("OPENAI_API_KEY")
//	m := openai.NewVisionModel(apiKey, "gpt-4o")
//
//	ans, err := m.AskImage(ctx, vision.ImageQuery{
//	    Prompt: prompt,
//	    Image:  jpegBytes,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(ans.Text)
type VisionModel struct {
	modelName string
	client    openaiClient
	policy    vision.RetryPolicy
}

// openaiClient defines the interface for OpenAI API operations.
// This allows for easy mocking in tests.
type openaiClient interface {
	createVisionCompletion(ctx context.Context, q vision.ImageQuery) (vision.Answer, error)
}

// NewVisionModel creates a new OpenAI VisionModel.
//
// Parameters:
//   - apiKey: OpenAI API key (get from https://platform.openai.com/api-keys)
//   - modelName: Model to use (e.g., "gpt-4o", "gpt-5.1"). Empty string uses "gpt-4o".
//
// The model retries transient failures up to 8 times with exponential
// backoff capped at 30 seconds, honoring "try again in Nms" hints from
// rate-limit responses.
func NewVisionModel(apiKey, modelName string) *VisionModel {
	if modelName == "" {
		modelName = "gpt-4o"
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
//
// Sends the prompt and image to OpenAI's chat completions API and returns
// the raw answer. Transient errors (rate limits, 5xx, network) are retried
// per the retry policy; permanent errors (bad key, quota) fail immediately.
func (m *VisionModel) AskImage(ctx context.Context, q vision.ImageQuery) (vision.Answer, error) {
	if ctx.Err() != nil {
		return vision.Answer{}, ctx.Err()
	}

	return vision.Retry(ctx, m.policy, func() (vision.Answer, error) {
		return m.client.createVisionCompletion(ctx, q)
	})
}

// isGPT5Model reports whether the model is part of the GPT-5 family,
// which takes max_completion_tokens instead of max_tokens.
func isGPT5Model(modelName string) bool {
	return strings.HasPrefix(modelName, "gpt-5")
}

// defaultClient wraps the official openai-go SDK.
type defaultClient struct {
	apiKey    string
	modelName string

	clientOnce *openai.Client
}

func (c *defaultClient) sdk() *openai.Client {
	if c.clientOnce == nil {
		client := openai.NewClient(
			option.WithAPIKey(c.apiKey),
		)
		c.clientOnce = &client
	}
	return c.clientOnce
}

func (c *defaultClient) createVisionCompletion(ctx context.Context, q vision.ImageQuery) (vision.Answer, error) {
	if c.apiKey == "" {
		return vision.Answer{}, errors.New("OpenAI API key is required")
	}

	parts := []openai.ChatCompletionContentPartUnionParam{
		{
			OfText: &openai.ChatCompletionContentPartTextParam{
				Text: q.Prompt,
			},
		},
		{
			OfImageURL: &openai.ChatCompletionContentPartImageParam{
				ImageURL: openai.ChatCompletionContentPartImageImageURLParam{
					URL: q.DataURL(),
				},
			},
		},
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.modelName),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfArrayOfContentParts: parts,
					},
				},
			},
		},
	}

	maxTokens := q.MaxTokens
	if isGPT5Model(c.modelName) {
		if maxTokens == 0 {
			maxTokens = defaultGPT5MaxTokens
		}
		params.MaxCompletionTokens = openai.Int(int64(maxTokens))
	} else {
		if maxTokens == 0 {
			maxTokens = defaultMaxTokens
		}
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	completion, err := c.sdk().Chat.Completions.New(ctx, params)
	if err != nil {
		return vision.Answer{}, vision.ClassifyError(err)
	}

	if len(completion.Choices) == 0 {
		return vision.Answer{}, &vision.Error{
			Code:      "api_error",
			Message:   "no choices in OpenAI response",
			Retryable: true,
		}
	}

	return vision.Answer{
		Text:             completion.Choices[0].Message.Content,
		Model:            completion.Model,
		PromptTokens:     int(completion.Usage.PromptTokens),
		CompletionTokens: int(completion.Usage.CompletionTokens),
		TotalTokens:      int(completion.Usage.TotalTokens),
	}, nil
}
