package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/bobarin/podcast/internal/models"
	"google.golang.org/genai"
)

const defaultGeminiScriptModel = "gemini-2.5-flash"

// GeminiService writes dialogue scripts with the Gemini API in JSON response mode.
type GeminiService struct {
	apiKey  string
	baseURL string
	model   string
}

// Ensure GeminiService implements ScriptWriter at compile time.
var _ ScriptWriter = (*GeminiService)(nil)

func NewGeminiService(apiKey, model string) *GeminiService {
	return NewGeminiServiceWithURL(apiKey, "", model)
}

// NewGeminiServiceWithURL overrides the API endpoint. An empty baseURL uses the SDK default.
func NewGeminiServiceWithURL(apiKey, baseURL, model string) *GeminiService {
	if model == "" {
		model = defaultGeminiScriptModel
	}
	return &GeminiService{apiKey: apiKey, baseURL: baseURL, model: model}
}

// WriteScript sends one GenerateContent request and parses the reply as a Script.
func (s *GeminiService) WriteScript(ctx context.Context, prompt ScriptPrompt) (*models.Script, error) {
	const op = "gemini.script"

	cfg := &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if s.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: s.baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, newCallError(KindTransport, op, fmt.Errorf("failed to create genai client: %w", err))
	}

	resp, err := client.Models.GenerateContent(ctx, s.model, genai.Text(prompt.User), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return nil, classifyGeminiError(op, err)
	}

	text := resp.Text()
	if text == "" {
		return nil, newCallError(KindParse, op, fmt.Errorf("empty response from gemini"))
	}

	script, err := parseScriptResponse(op, text)
	if err != nil {
		return nil, err
	}

	log.Printf("[Gemini script] script generated: %d turns, %d words (model=%s)",
		len(script.Conversation), script.WordCount(), s.model)

	return script, nil
}

func classifyGeminiError(op string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return newCallError(kindForStatus(apiErr.Code), op, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return newCallError(kindForStatus(apiErrPtr.Code), op, err)
	}
	return newCallError(KindTransport, op, err)
}
