// Package llm turns a prompt into a completion on a configured language model.
// Bedrock model ids are served through a per-family Adapter; gemini-* ids go to
// the Gemini API.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"google.golang.org/genai"
)

// Params are the sampling settings sent with every request.
type Params struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
	TopK        int
	Stop        []string
}

// DefaultParams returns the settings used for meeting summaries.
func DefaultParams() Params {
	return Params{
		MaxTokens:   150,
		Temperature: 0,
		TopP:        1,
		TopK:        250,
		Stop:        []string{"Human:"},
	}
}

// Completer produces a single completion for prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string, p Params) (string, error)
}

// InvokeAPI is the subset of the Bedrock runtime client used here.
type InvokeAPI interface {
	InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockCompleter invokes one Bedrock model through its adapter.
type BedrockCompleter struct {
	api     InvokeAPI
	modelID string
	adapter Adapter
}

// NewBedrockCompleter resolves the adapter for modelID once.
func NewBedrockCompleter(api InvokeAPI, modelID string) (*BedrockCompleter, error) {
	adapter, err := AdapterFor(modelID)
	if err != nil {
		return nil, err
	}
	return &BedrockCompleter{api: api, modelID: modelID, adapter: adapter}, nil
}

// Complete implements Completer.
func (c *BedrockCompleter) Complete(ctx context.Context, prompt string, p Params) (string, error) {
	body, err := c.adapter.BuildRequest(prompt, p)
	if err != nil {
		return "", fmt.Errorf("build %s request: %w", c.modelID, err)
	}
	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("*/*"),
	})
	if err != nil {
		return "", fmt.Errorf("invoke %s: %w", c.modelID, err)
	}
	text, err := c.adapter.ParseResponse(out.Body)
	if err != nil {
		return "", fmt.Errorf("parse %s response: %w", c.modelID, err)
	}
	return text, nil
}

// ContentGenerator is satisfied by genai.Client.Models.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiCompleter calls a Gemini model.
type GeminiCompleter struct {
	models  ContentGenerator
	modelID string
}

// NewGeminiCompleter wraps an existing content generator.
func NewGeminiCompleter(models ContentGenerator, modelID string) *GeminiCompleter {
	return &GeminiCompleter{models: models, modelID: modelID}
}

// NewGeminiCompleterFromKey creates a Gemini API client for apiKey.
func NewGeminiCompleterFromKey(ctx context.Context, apiKey, modelID string) (*GeminiCompleter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return NewGeminiCompleter(client.Models, modelID), nil
}

// Complete implements Completer.
func (c *GeminiCompleter) Complete(ctx context.Context, prompt string, p Params) (string, error) {
	temperature := float32(p.Temperature)
	topP := float32(p.TopP)
	topK := float32(p.TopK)
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(p.MaxTokens),
		Temperature:     &temperature,
		TopP:            &topP,
		TopK:            &topK,
		StopSequences:   p.Stop,
	}
	result, err := c.models.GenerateContent(ctx, c.modelID, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", ErrEmptyCompletion
	}
	var text string
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}
	return nonEmpty(text)
}

// IsGemini reports whether modelID names a Gemini model.
func IsGemini(modelID string) bool {
	return strings.HasPrefix(strings.ToLower(modelID), "gemini-")
}
