package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedModel is returned for model ids no adapter understands.
var ErrUnsupportedModel = errors.New("unsupported model")

// ErrEmptyCompletion is returned when a response carries no text.
var ErrEmptyCompletion = errors.New("empty completion")

const anthropicBedrockVersion = "bedrock-2023-05-31"

// Adapter translates between a prompt and one model family's wire format.
type Adapter interface {
	BuildRequest(prompt string, p Params) ([]byte, error)
	ParseResponse(body []byte) (string, error)
}

// AdapterFor picks the adapter for a Bedrock model id.
func AdapterFor(modelID string) (Adapter, error) {
	id := strings.ToLower(modelID)
	switch {
	case strings.HasPrefix(id, "anthropic.claude-3"):
		return claudeMessages{}, nil
	case strings.HasPrefix(id, "anthropic.claude"):
		return claudeText{}, nil
	case strings.HasPrefix(id, "ai21.j2"):
		return jurassic{}, nil
	case strings.HasPrefix(id, "amazon.titan-text"), strings.HasPrefix(id, "amazon.titan-tg1"):
		return titan{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, modelID)
}

// conversational frames a prompt for the older text completion models.
func conversational(prompt string) string {
	return "\n\nHuman: " + prompt + "\n\nAssistant:"
}

type claudeText struct{}

func (claudeText) BuildRequest(prompt string, p Params) ([]byte, error) {
	return json.Marshal(map[string]any{
		"prompt":               conversational(prompt),
		"max_tokens_to_sample": p.MaxTokens,
		"temperature":          p.Temperature,
		"top_k":                p.TopK,
		"top_p":                p.TopP,
		"stop_sequences":       p.Stop,
	})
}

func (claudeText) ParseResponse(body []byte) (string, error) {
	var resp struct {
		Completion string `json:"completion"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode claude completion: %w", err)
	}
	return nonEmpty(resp.Completion)
}

type claudeMessages struct{}

type messageContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type message struct {
	Role    string           `json:"role"`
	Content []messageContent `json:"content"`
}

func (claudeMessages) BuildRequest(prompt string, p Params) ([]byte, error) {
	return json.Marshal(map[string]any{
		"anthropic_version": anthropicBedrockVersion,
		"max_tokens":        p.MaxTokens,
		"temperature":       p.Temperature,
		"top_k":             p.TopK,
		"top_p":             p.TopP,
		"stop_sequences":    p.Stop,
		"messages": []message{{
			Role:    "user",
			Content: []messageContent{{Type: "text", Text: prompt}},
		}},
	})
}

func (claudeMessages) ParseResponse(body []byte) (string, error) {
	var resp struct {
		Content []messageContent `json:"content"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode claude message: %w", err)
	}
	var b strings.Builder
	for _, c := range resp.Content {
		if c.Type == "" || c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	return nonEmpty(b.String())
}

// Jurassic requests stop on this word instead of Params.Stop.
var jurassicStop = []string{"Please"}

type jurassic struct{}

func (jurassic) BuildRequest(prompt string, p Params) ([]byte, error) {
	return json.Marshal(map[string]any{
		"prompt":        conversational(prompt),
		"maxTokens":     p.MaxTokens,
		"temperature":   p.Temperature,
		"topP":          p.TopP,
		"stopSequences": jurassicStop,
	})
}

func (jurassic) ParseResponse(body []byte) (string, error) {
	var resp struct {
		Completions []struct {
			Data struct {
				Text string `json:"text"`
			} `json:"data"`
		} `json:"completions"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode jurassic completion: %w", err)
	}
	if len(resp.Completions) == 0 {
		return "", ErrEmptyCompletion
	}
	return nonEmpty(resp.Completions[0].Data.Text)
}

type titan struct{}

func (titan) BuildRequest(prompt string, p Params) ([]byte, error) {
	return json.Marshal(map[string]any{
		"inputText": conversational(prompt),
		"textGenerationConfig": map[string]any{
			"maxTokenCount": p.MaxTokens,
			"temperature":   p.Temperature,
			"topP":          p.TopP,
		},
	})
}

func (titan) ParseResponse(body []byte) (string, error) {
	var resp struct {
		Results []struct {
			OutputText string `json:"outputText"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode titan completion: %w", err)
	}
	if len(resp.Results) == 0 {
		return "", ErrEmptyCompletion
	}
	return nonEmpty(resp.Results[0].OutputText)
}

func nonEmpty(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
