package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// ---------------------------------------------------------------------------
// OpenAI audio-output chat completions
// The request asks for text+audio modalities and MP3 output; the reply's
// base64 audio payload is decoded into the line's bytes.
// ---------------------------------------------------------------------------

const (
	defaultSpeechModel = "gpt-4o-mini-audio-preview"
	defaultOpenAIVoice = "ash"
)

// OpenAIAudioService voices lines with an audio-capable chat model.
type OpenAIAudioService struct {
	client openai.Client
	model  string
}

// Ensure OpenAIAudioService implements TTSService at compile time.
var _ TTSService = (*OpenAIAudioService)(nil)

// NewOpenAIAudioService creates the service. baseURL may be empty.
func NewOpenAIAudioService(apiKey, baseURL, model string) *OpenAIAudioService {
	if model == "" {
		model = defaultSpeechModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// one provider call per line; failures fall back at the stage level
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIAudioService{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// GenerateSpeech voices one line with the request's persona instruction.
func (s *OpenAIAudioService) GenerateSpeech(ctx context.Context, in SpeechRequest) (*TTSResponse, error) {
	const op = "openai.speech"

	voice := in.Voice
	if voice == "" {
		voice = defaultOpenAIVoice
	}

	params := openai.ChatCompletionNewParams{
		Model:      shared.ChatModel(s.model),
		Modalities: []string{"text", "audio"},
		Audio: openai.ChatCompletionAudioParam{
			Voice:  openai.ChatCompletionAudioParamVoice(voice),
			Format: openai.ChatCompletionAudioParamFormatMP3,
		},
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(in.Instruction),
			openai.UserMessage(in.Text),
		},
	}

	log.Printf("[OpenAI audio] Generating speech (speaker=%s, voice=%s, model=%s, textLen=%d)",
		in.Speaker, voice, s.model, len(in.Text))

	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, newCallError(kindForStatus(apiErr.StatusCode), op, err)
		}
		return nil, newCallError(KindTransport, op, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Audio.Data == "" {
		return nil, newCallError(KindParse, op, fmt.Errorf("response carried no audio"))
	}

	audioData, err := base64.StdEncoding.DecodeString(resp.Choices[0].Message.Audio.Data)
	if err != nil {
		return nil, newCallError(KindParse, op, fmt.Errorf("failed to decode audio: %w", err))
	}
	if len(audioData) == 0 {
		return nil, newCallError(KindParse, op, fmt.Errorf("decoded audio is empty"))
	}

	return &TTSResponse{
		AudioData:  audioData,
		DurationMs: estimateAudioDuration(in.Text, 1.0),
		Format:     "mp3",
	}, nil
}
