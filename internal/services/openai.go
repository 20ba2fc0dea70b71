package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/bobarin/podcast/internal/models"
	openai "github.com/sashabaranov/go-openai"
)

const defaultScriptModel = "gpt-4o"

// OpenAIService writes dialogue scripts with OpenAI chat completions in JSON mode.
type OpenAIService struct {
	client *openai.Client
	model  string
}

// Ensure OpenAIService implements ScriptWriter at compile time.
var _ ScriptWriter = (*OpenAIService)(nil)

func NewOpenAIService(apiKey, model string) *OpenAIService {
	return NewOpenAIServiceWithConfig(openai.DefaultConfig(apiKey), model)
}

// NewOpenAIServiceWithConfig allows a custom base URL or HTTP client.
func NewOpenAIServiceWithConfig(cfg openai.ClientConfig, model string) *OpenAIService {
	if model == "" {
		model = defaultScriptModel
	}
	return &OpenAIService{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// WriteScript sends one chat completion request and parses the reply as a Script.
func (s *OpenAIService) WriteScript(ctx context.Context, prompt ScriptPrompt) (*models.Script, error) {
	const op = "openai.script"

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: prompt.System,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt.User,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, classifyOpenAIError(op, err)
	}

	if len(resp.Choices) == 0 {
		return nil, newCallError(KindParse, op, fmt.Errorf("no response from openai"))
	}

	script, err := parseScriptResponse(op, resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	log.Printf("[OpenAI script] script generated: %d turns, %d words (model=%s)",
		len(script.Conversation), script.WordCount(), s.model)

	return script, nil
}

// classifyOpenAIError maps go-openai errors onto ErrorKind.
func classifyOpenAIError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return newCallError(kindForStatus(apiErr.HTTPStatusCode), op, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return newCallError(kindForStatus(reqErr.HTTPStatusCode), op, err)
	}
	return newCallError(KindTransport, op, err)
}

// parseScriptResponse validates a model reply against the strict script schema.
func parseScriptResponse(op, rawContent string) (*models.Script, error) {
	const maxLogLen = 2000

	script, err := models.ParseScript([]byte(rawContent))
	if err != nil {
		log.Printf("[%s] parse failed: %v", op, err)
		log.Printf("[%s] raw response: %s", op, truncateString(rawContent, maxLogLen))
		return nil, newCallError(KindParse, op, err)
	}
	return script, nil
}

// truncateString truncates a string to maxLen and appends "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
