// Package llm talks to the lesson generation endpoint and parses what it
// sends back into lesson documents.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Generator produces the raw model text for one lesson request.
type Generator interface {
	Generate(ctx context.Context, req LessonRequest) (string, error)
}

// Options configures NewGenerator.
type Options struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	// Timeout bounds each generation call. Zero means no extra bound.
	Timeout time.Duration
}

// NewGenerator creates the generator for opts.Provider.
func NewGenerator(opts Options) (Generator, error) {
	provider := strings.ToLower(opts.Provider)
	switch provider {
	case "openai", "":
		model := opts.Model
		if model == "" {
			model = openai.GPT4oMini
		}
		cfg := openai.DefaultConfig(opts.APIKey)
		if opts.BaseURL != "" {
			cfg.BaseURL = opts.BaseURL
		}
		return &OpenAIGenerator{client: openai.NewClientWithConfig(cfg), model: model, timeout: opts.Timeout}, nil
	case "huggingface":
		model := opts.Model
		if model == "" {
			model = "mistralai/Mistral-7B-Instruct-v0.3"
		}
		url := opts.BaseURL
		if url == "" {
			url = "https://router.huggingface.co/hf-inference/v1/chat/completions"
		}
		return &HuggingFaceGenerator{apiKey: opts.APIKey, model: model, url: url, timeout: opts.Timeout, client: &http.Client{}}, nil
	case "anthropic":
		model := opts.Model
		if model == "" {
			model = "claude-3-5-haiku-latest"
		}
		url := opts.BaseURL
		if url == "" {
			url = "https://api.anthropic.com/v1/messages"
		}
		return &AnthropicGenerator{apiKey: opts.APIKey, model: model, url: url, timeout: opts.Timeout, client: &http.Client{}}, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", provider)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// ==========================================
// OpenAI
// ==========================================
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req LessonRequest) (string, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(req)},
		},
		Temperature: 0.4,
	})
	if err != nil {
		return "", classify(ctx, "openai", err)
	}
	if len(resp.Choices) == 0 {
		return "", &GenerationError{Kind: KindUpstream, Err: fmt.Errorf("openai empty response")}
	}
	return resp.Choices[0].Message.Content, nil
}

// ==========================================
// HuggingFace (v1/chat/completions)
// ==========================================
type HuggingFaceGenerator struct {
	apiKey  string
	model   string
	url     string
	timeout time.Duration
	client  *http.Client
}

func (g *HuggingFaceGenerator) Generate(ctx context.Context, req LessonRequest) (string, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	reqBody, _ := json.Marshal(map[string]interface{}{
		"model": g.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": BuildPrompt(req)},
		},
		"max_tokens":  4096,
		"temperature": 0.4,
		"stream":      false,
	})

	body, err := postJSON(ctx, g.client, g.url, reqBody, map[string]string{
		"Authorization": "Bearer " + g.apiKey,
	})
	if err != nil {
		return "", classify(ctx, "huggingface", err)
	}

	var chatResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", &GenerationError{Kind: KindUpstream, Err: fmt.Errorf("huggingface json error: %w", err)}
	}
	if len(chatResp.Choices) == 0 {
		return "", &GenerationError{Kind: KindUpstream, Err: fmt.Errorf("huggingface empty response")}
	}
	return chatResp.Choices[0].Message.Content, nil
}

// ==========================================
// Anthropic
// ==========================================
type AnthropicGenerator struct {
	apiKey  string
	model   string
	url     string
	timeout time.Duration
	client  *http.Client
}

func (g *AnthropicGenerator) Generate(ctx context.Context, req LessonRequest) (string, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	reqBody, _ := json.Marshal(map[string]interface{}{
		"model":       g.model,
		"max_tokens":  4096,
		"temperature": 0.4,
		"system":      systemPrompt,
		"messages": []map[string]string{
			{"role": "user", "content": BuildPrompt(req)},
		},
	})

	body, err := postJSON(ctx, g.client, g.url, reqBody, map[string]string{
		"x-api-key":         g.apiKey,
		"anthropic-version": "2023-06-01",
	})
	if err != nil {
		return "", classify(ctx, "anthropic", err)
	}

	var anthResp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &anthResp); err != nil {
		return "", &GenerationError{Kind: KindUpstream, Err: fmt.Errorf("anthropic json decode error: %w", err)}
	}

	// Some models return several text blocks.
	var fullText strings.Builder
	for _, block := range anthResp.Content {
		if block.Type == "" || block.Type == "text" {
			fullText.WriteString(block.Text)
		}
	}
	if fullText.Len() == 0 {
		return "", &GenerationError{Kind: KindUpstream, Err: fmt.Errorf("anthropic: no text content in response")}
	}
	return fullText.String(), nil
}

// statusError carries a non-200 response from a plain HTTP provider.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("api error: %d - %s", e.Status, e.Body)
}

func postJSON(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{Status: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}
