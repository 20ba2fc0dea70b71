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

const (
	CartesiaAPIVersion = "2024-06-10"
	CartesiaDefaultURL = "https://api.cartesia.ai"

	cartesiaModel = "sonic-multilingual"

	// Used when neither the request nor the service carries a voice.
	DefaultVoiceID = "a0e99841-438c-4a64-b679-ae501e7d6091"
)

// CartesiaService voices dialogue lines via the Cartesia /tts/bytes endpoint.
type CartesiaService struct {
	apiKey         string
	apiURL         string
	apiVersion     string
	defaultVoiceID string
	client         *http.Client
}

// Ensure CartesiaService implements TTSService at compile time.
var _ TTSService = (*CartesiaService)(nil)

func NewCartesiaService(apiKey, apiURL, voiceID string) *CartesiaService {
	if apiURL == "" {
		apiURL = CartesiaDefaultURL
	}
	if voiceID == "" {
		voiceID = DefaultVoiceID
	}
	return &CartesiaService{
		apiKey:         apiKey,
		apiURL:         strings.TrimRight(apiURL, "/"),
		apiVersion:     CartesiaAPIVersion,
		defaultVoiceID: voiceID,
		client:         &http.Client{Timeout: 60 * time.Second},
	}
}

type CartesiaRequest struct {
	ModelID      string                    `json:"model_id"`
	Transcript   string                    `json:"transcript"`
	Voice        CartesiaVoiceSpecifier    `json:"voice"`
	Language     *string                   `json:"language,omitempty"`
	OutputFormat CartesiaOutputFormat      `json:"output_format"`
	Config       *CartesiaGenerationConfig `json:"generation_config,omitempty"`
}

type CartesiaVoiceSpecifier struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type CartesiaOutputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding,omitempty"`
	SampleRate int    `json:"sample_rate"`
	BitRate    int    `json:"bit_rate,omitempty"`
}

type CartesiaGenerationConfig struct {
	Speed   *float64 `json:"speed,omitempty"`   // 0.6 to 1.5
	Emotion *string  `json:"emotion,omitempty"` // e.g. "neutral", "happy"
}

// GenerateSpeech voices one line. Cartesia takes no free-text instruction, so
// the emotion is derived from the markers inside the line itself.
func (s *CartesiaService) GenerateSpeech(ctx context.Context, in SpeechRequest) (*TTSResponse, error) {
	const op = "cartesia.speech"

	voiceID := s.defaultVoiceID
	if in.Voice != "" {
		voiceID = in.Voice
	}

	// Hinglish lines are mostly romanized Hindi; Cartesia's "hi" handles both scripts.
	language := "hi"
	emotion := parseEmotionFromLine(in.Text)
	speed := 1.0

	reqBody := CartesiaRequest{
		ModelID:    cartesiaModel,
		Transcript: in.Text,
		Voice: CartesiaVoiceSpecifier{
			Mode: "id",
			ID:   voiceID,
		},
		Language: &language,
		OutputFormat: CartesiaOutputFormat{
			Container:  "mp3",
			SampleRate: 44100,
			BitRate:    192000,
		},
		Config: &CartesiaGenerationConfig{
			Emotion: &emotion,
			Speed:   &speed,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, newCallError(KindParse, op, fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.apiURL+"/tts/bytes", bytes.NewReader(jsonData))
	if err != nil {
		return nil, newCallError(KindTransport, op, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cartesia-Version", s.apiVersion)

	log.Printf("[Cartesia] Generating speech (speaker=%s, voiceID=%s, emotion=%s, textLen=%d)",
		in.Speaker, voiceID, emotion, len(in.Text))

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, newCallError(KindTransport, op, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, newCallError(kindForStatus(resp.StatusCode), op,
			fmt.Errorf("cartesia returned status %d: %s", resp.StatusCode, truncateString(string(body), 500)))
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newCallError(KindTransport, op, fmt.Errorf("failed to read audio: %w", err))
	}
	if len(audioData) == 0 {
		return nil, newCallError(KindParse, op, fmt.Errorf("cartesia returned empty audio"))
	}

	return &TTSResponse{
		AudioData:  audioData,
		DurationMs: estimateAudioDuration(in.Text, speed),
		Format:     "mp3",
	}, nil
}

// parseEmotionFromLine maps the inline emotion markers a script line carries
// to a Cartesia emotion.
func parseEmotionFromLine(text string) string {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "[laughs]"), strings.Contains(lower, "hahaha"), strings.Contains(lower, "haha"):
		return "happy"
	case strings.Contains(lower, "[sighs]"), strings.Contains(lower, "phew"):
		return "sad"
	case strings.Contains(lower, "arre waah"), strings.Contains(lower, "!"):
		return "excited"
	default:
		return "neutral"
	}
}

// estimateAudioDuration estimates duration from word count at a conversational
// ~150 words per minute, scaled by speed.
func estimateAudioDuration(text string, speed float64) int {
	if speed <= 0 {
		speed = 1.0
	}
	words := len(strings.Fields(text))
	minutes := float64(words) / (150.0 * speed)
	return int(minutes * 60 * 1000)
}
