// Package google adapts Google's Gemini API to vision.Model.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/dshills/visionprobe/probe/vision"
)

// defaultMaxTokens is the completion budget for one-word yes/no answers.
const defaultMaxTokens = 20

// VisionModel implements vision.Model for Google's Gemini API.
//
// Provides access to multimodal Gemini models with:
//   - Images sent as inline data parts
//   - Safety filter blocks surfaced as SafetyFilterError
//   - Automatic retry for transient errors
//   - Context cancellation
//
// Example usage:
//
//	apiKey := os.Getenv("GOOGLE_API_KEY")
//	m := google.NewVisionModel(apiKey, "gemini-2.5-flash")
//
//	ans, err := m.AskImage(ctx, vision.ImageQuery{Prompt: prompt, Image: jpegBytes})
//	if err != nil {
//	    var safetyErr *google.SafetyFilterError
//	    if errors.As(err, &safetyErr) {
//	        log.Printf("content blocked: %s", safetyErr.Category)
//	        return
//	    }
//	    log.Fatal(err)
//	}
//	fmt.Println(ans.Text)
type VisionModel struct {
	modelName string
	client    googleClient
	policy    vision.RetryPolicy
}

// googleClient defines the interface for Gemini API operations.
// This allows for easy mocking in tests.
type googleClient interface {
	generateVisionContent(ctx context.Context, q vision.ImageQuery) (vision.Answer, error)
}

// NewVisionModel creates a new Google VisionModel.
//
// Parameters:
//   - apiKey: Google API key (get from https://makersuite.google.com/app/apikey)
//   - modelName: Model to use. Empty string uses "gemini-2.5-flash".
func NewVisionModel(apiKey, modelName string) *VisionModel {
	if modelName == "" {
		modelName = "gemini-2.5-flash"
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
// Safety filter blocks are returned as *SafetyFilterError and are not
// retried; transient API failures follow the retry policy.
func (m *VisionModel) AskImage(ctx context.Context, q vision.ImageQuery) (vision.Answer, error) {
	if ctx.Err() != nil {
		return vision.Answer{}, ctx.Err()
	}

	return vision.Retry(ctx, m.policy, func() (vision.Answer, error) {
		ans, err := m.client.generateVisionContent(ctx, q)
		if err != nil {
			var safetyErr *SafetyFilterError
			if errors.As(err, &safetyErr) {
				return vision.Answer{}, safetyErr
			}
			return vision.Answer{}, vision.ClassifyError(err)
		}
		return ans, nil
	})
}

// defaultClient wraps the official Google Gemini SDK client.
type defaultClient struct {
	apiKey    string
	modelName string
}

func (c *defaultClient) generateVisionContent(ctx context.Context, q vision.ImageQuery) (vision.Answer, error) {
	if c.apiKey == "" {
		return vision.Answer{}, errors.New("google API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return vision.Answer{}, fmt.Errorf("failed to create Google client: %w", err)
	}
	defer func() {
		_ = client.Close()
	}()

	genModel := client.GenerativeModel(c.modelName)

	maxTokens := q.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	genModel.SetMaxOutputTokens(int32(maxTokens))

	// genai.ImageData takes the bare format ("jpeg"), not the MIME type.
	format := strings.TrimPrefix(q.ContentType(), "image/")

	resp, err := genModel.GenerateContent(ctx,
		genai.Text(q.Prompt),
		genai.ImageData(format, q.Image),
	)
	if err != nil {
		return vision.Answer{}, fmt.Errorf("google API error: %w", err)
	}

	return convertResponse(resp, c.modelName)
}

// convertResponse extracts answer text and usage from a Gemini response.
func convertResponse(resp *genai.GenerateContentResponse, modelName string) (vision.Answer, error) {
	ans := vision.Answer{Model: modelName}

	if resp.UsageMetadata != nil {
		ans.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		ans.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		ans.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
			return vision.Answer{}, &SafetyFilterError{
				Reason: resp.PromptFeedback.BlockReason.String(),
			}
		}
		return ans, nil
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		category := ""
		for _, rating := range candidate.SafetyRatings {
			if rating.Blocked {
				category = rating.Category.String()
				break
			}
		}
		return vision.Answer{}, &SafetyFilterError{
			Reason:   candidate.FinishReason.String(),
			Category: category,
		}
	}

	if candidate.Content == nil {
		return ans, nil
	}

	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			ans.Text += string(text)
		}
	}

	return ans, nil
}

// SafetyFilterError represents a Gemini safety filter block.
//
// Gemini can refuse to answer when the prompt or image trips one of its
// harm categories. These blocks are permanent for a given input, so they
// are never retried.
//
// Use errors.As to check for this error type:
//
//	var safetyErr *google.SafetyFilterError
//	if errors.As(err, &safetyErr) {
//	    log.Printf("blocked: %s (%s)", safetyErr.Reason, safetyErr.Category)
//	}
type SafetyFilterError struct {
	// Reason is the block or finish reason reported by the API.
	Reason string

	// Category is the harm category that triggered the block, when known.
	Category string
}

// Error implements the error interface.
func (e *SafetyFilterError) Error() string {
	if e.Category != "" {
		return fmt.Sprintf("content blocked by safety filter: %s (%s)", e.Reason, e.Category)
	}
	return fmt.Sprintf("content blocked by safety filter: %s", e.Reason)
}
