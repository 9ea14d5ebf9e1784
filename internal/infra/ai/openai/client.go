package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	domai "github.com/keepstack/keepstack/internal/domain/ai"
	"github.com/keepstack/keepstack/internal/domain/items"
	"github.com/keepstack/keepstack/internal/infra/ai/prompt"
)

const maxTokens = 2048

type Client struct {
	*openai.Client
	Model string
}

func NewClient(apiKey, model string) *Client {
	return &Client{Client: openai.NewClient(apiKey), Model: model}
}

// Analyze sends one multimodal chat completion per item: the text prompt plus
// every attached image as an inline data URL part. No retries here; retry
// policy belongs to the caller.
func (c *Client) Analyze(ctx context.Context, content string, images []items.Image) (*items.Analysis, error) {
	model := c.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	userMsg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if len(images) == 0 {
		userMsg.Content = prompt.GetUserPrompt(content)
	} else {
		parts := make([]openai.ChatMessagePart, 0, len(images)+1)
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: prompt.GetUserPrompt(content),
		})
		for _, img := range images {
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: fmt.Sprintf("data:%s;base64,%s", img.MimeType, base64.StdEncoding.EncodeToString(img.Data)),
				},
			})
		}
		userMsg.MultiContent = parts
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			userMsg,
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		apiErr := &openai.APIError{}
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return nil, domai.ErrQuotaExceeded
		}
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	return parseAnalysis(resp.Choices[0].Message.Content)
}

// parseAnalysis decodes the model response. The sensitivity marker
// short-circuits everything else; a payload that fails to parse is an error,
// never an empty-but-successful analysis.
func parseAnalysis(raw string) (*items.Analysis, error) {
	var marker struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(raw), &marker); err != nil {
		return nil, fmt.Errorf("malformed analysis payload: %w", err)
	}
	if marker.Error == "sensitive" {
		return nil, domai.ErrSensitiveContent
	}
	if marker.Error != "" {
		return nil, fmt.Errorf("analysis service error: %s", marker.Error)
	}

	var a items.Analysis
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, fmt.Errorf("malformed analysis payload: %w", err)
	}
	if a.Visualization.ChartType == "" {
		a.Visualization.ChartType = "none"
	}
	return &a, nil
}
