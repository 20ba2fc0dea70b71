package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// ElevenLabs Text-to-Speech Service
// Model: eleven_multilingual_v2 (handles Hindi/English code-switching)
// ---------------------------------------------------------------------------

const (
	elevenLabsBaseURL      = "https://api.elevenlabs.io"
	elevenLabsDefaultModel = "eleven_multilingual_v2"
	elevenLabsDefaultVoice = "pNInz6obpgDQGcFmaJgB"
	elevenLabsOutputFormat = "mp3_44100_128"
)

// ElevenLabsService voices dialogue lines via the ElevenLabs REST API.
type ElevenLabsService struct {
	apiKey  string
	baseURL string
	voiceID string
	modelID string
	client  *http.Client
}

// Ensure ElevenLabsService implements TTSService at compile time.
var _ TTSService = (*ElevenLabsService)(nil)

// NewElevenLabsService creates an ElevenLabs service. voiceID is used for
// requests that carry no voice of their own.
func NewElevenLabsService(apiKey, voiceID string) *ElevenLabsService {
	return NewElevenLabsServiceWithURL(apiKey, elevenLabsBaseURL, voiceID)
}

// NewElevenLabsServiceWithURL points the service at a different API host.
func NewElevenLabsServiceWithURL(apiKey, baseURL, voiceID string) *ElevenLabsService {
	if voiceID == "" {
		voiceID = elevenLabsDefaultVoice
	}
	if baseURL == "" {
		baseURL = elevenLabsBaseURL
	}
	return &ElevenLabsService{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		voiceID: voiceID,
		modelID: elevenLabsDefaultModel,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

type elevenLabsRequest struct {
	Text          string                   `json:"text"`
	ModelID       string                   `json:"model_id"`
	VoiceSettings *elevenLabsVoiceSettings `json:"voice_settings,omitempty"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
	Speed           float64 `json:"speed,omitempty"`
}

// GenerateSpeech voices one line. The instruction has no ElevenLabs
// equivalent; expressiveness comes from the voice settings instead.
func (s *ElevenLabsService) GenerateSpeech(ctx context.Context, in SpeechRequest) (*TTSResponse, error) {
	const op = "elevenlabs.speech"

	voiceID := s.voiceID
	if in.Voice != "" {
		voiceID = in.Voice
	}

	speed := 1.0
	reqBody := elevenLabsRequest{
		Text:    in.Text,
		ModelID: s.modelID,
		VoiceSettings: &elevenLabsVoiceSettings{
			Stability:       0.40, // low stability leaves room for laughs and sighs
			SimilarityBoost: 0.80,
			Style:           0.45,
			UseSpeakerBoost: true,
			Speed:           speed,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, newCallError(KindParse, op, fmt.Errorf("failed to marshal ElevenLabs request: %w", err))
	}

	// POST /v1/text-to-speech/{voice_id}?output_format=mp3_44100_128
	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s", s.baseURL, voiceID, elevenLabsOutputFormat)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, newCallError(KindTransport, op, fmt.Errorf("failed to create ElevenLabs request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", s.apiKey)

	log.Printf("[ElevenLabs] Generating speech (speaker=%s, voiceID=%s, model=%s, textLen=%d)",
		in.Speaker, voiceID, s.modelID, len(in.Text))

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, newCallError(KindTransport, op, fmt.Errorf("ElevenLabs request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, newCallError(kindForStatus(resp.StatusCode), op,
			fmt.Errorf("ElevenLabs returned status %d: %s", resp.StatusCode, truncateString(string(body), 500)))
	}

	// The response body is the audio file.
	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newCallError(KindTransport, op, fmt.Errorf("failed to read ElevenLabs audio response: %w", err))
	}
	if len(audioData) == 0 {
		return nil, newCallError(KindParse, op, fmt.Errorf("ElevenLabs returned empty audio"))
	}

	durationMs := estimateAudioDuration(in.Text, speed)

	log.Printf("[ElevenLabs] Speech generated (%d bytes, estimated %dms)", len(audioData), durationMs)

	return &TTSResponse{
		AudioData:  audioData,
		DurationMs: durationMs,
		Format:     "mp3",
	}, nil
}
