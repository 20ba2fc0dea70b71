package services

import "context"

// ---------------------------------------------------------------------------
// TTSService: common interface for text-to-speech providers
// OpenAI audio, ElevenLabs and Cartesia implement this interface so the
// synthesis stage can voice a line without knowing the underlying provider.
// ---------------------------------------------------------------------------

// SpeechRequest is one dialogue line to be voiced.
type SpeechRequest struct {
	Speaker string
	// Voice is a provider voice identifier. Empty means the provider default.
	Voice string
	Text  string
	// Instruction describes persona, accent and delivery. Providers without a
	// free-text instruction channel may map it to their own settings or ignore it.
	Instruction string
}

// TTSResponse is the common response type from any TTS provider.
type TTSResponse struct {
	AudioData  []byte
	DurationMs int
	Format     string // "mp3", "wav", etc.
}

// TTSService is the interface that any TTS provider must implement.
type TTSService interface {
	// GenerateSpeech converts one line to encoded audio. Exactly one provider
	// round-trip per call.
	GenerateSpeech(ctx context.Context, req SpeechRequest) (*TTSResponse, error)
}
