// Package vision provides vision LLM provider adapters.
package vision

import (
	"context"
	"encoding/base64"
	"fmt"
)

// Model defines the interface for vision-capable LLM providers.
//
// This interface abstracts the differences between providers
// (OpenAI, Anthropic, Google) behind a single image-question API.
//
// Implementations should:
// - Handle provider-specific authentication.
// - Encode the image the way the provider expects (data URL, base64 block, raw bytes).
// - Respect context cancellation and timeouts.
// - Handle retries and rate limiting appropriately.
//
// Example usage:
//
//	m := openai.NewVisionModel(apiKey, "gpt-4o")
//	ans, err := m.AskImage(ctx, vision.ImageQuery{
//	    Prompt: "Does this image contain a dog? Answer yes or no.",
//	    Image:  jpegBytes,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(ans.Text)
type Model interface {
	// AskImage sends a single text prompt plus one image to the provider
	// and returns the model's answer.
	//
	// Parameters:
	// - ctx: Context for cancellation and timeout control.
	// - q: The prompt, image bytes, and generation limits.
	//
	// Returns:
	// - Answer: Raw response text plus token usage.
	// - error: Provider errors, network errors, or context cancellation.
	AskImage(ctx context.Context, q ImageQuery) (Answer, error)
}

// ImageQuery is a single text-plus-image question for a vision model.
type ImageQuery struct {
	// Prompt is the full question text shown alongside the image.
	Prompt string

	// Image holds the raw image bytes (typically JPEG).
	Image []byte

	// MIMEType identifies the image format. Empty defaults to "image/jpeg".
	MIMEType string

	// MaxTokens caps the completion length. Zero lets the adapter pick a
	// default suited to one-word yes/no answers.
	MaxTokens int
}

// ContentType returns the image MIME type, defaulting to JPEG.
func (q ImageQuery) ContentType() string {
	if q.MIMEType == "" {
		return "image/jpeg"
	}
	return q.MIMEType
}

// DataURL renders the image as a base64 data URL, the encoding OpenAI's
// chat completions API expects for inline images.
func (q ImageQuery) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", q.ContentType(), base64.StdEncoding.EncodeToString(q.Image))
}

// Base64 returns the image bytes base64-encoded without the URL framing,
// the form Anthropic's image blocks expect.
func (q ImageQuery) Base64() string {
	return base64.StdEncoding.EncodeToString(q.Image)
}

// Answer is the response from a vision model.
type Answer struct {
	// Text is the raw model output, untrimmed.
	Text string

	// Model is the provider-reported model identifier.
	Model string

	// PromptTokens, CompletionTokens, and TotalTokens report usage when the
	// provider returns it; zero otherwise.
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
