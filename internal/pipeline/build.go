package pipeline

import (
	"log"

	"github.com/bobarin/podcast/internal/config"
	"github.com/bobarin/podcast/internal/services"
)

// NewFromConfig wires the concrete services selected by cfg.
func NewFromConfig(cfg *config.Config) *Runner {
	wiki := services.NewWikipediaService(cfg.WikipediaURL, cfg.WikipediaUserAgent)
	content := services.NewContentService(wiki, cfg.MaxExcerptChars, cfg.SyntheticExcerpt)

	var writer services.ScriptWriter
	switch cfg.ScriptProvider {
	case config.ScriptProviderGemini:
		writer = services.NewGeminiService(cfg.GeminiKey, cfg.ScriptModel)
	default:
		writer = services.NewOpenAIService(cfg.OpenAIKey, cfg.ScriptModel)
	}
	scripts := services.NewScriptService(writer, cfg.ScriptCredential, cfg.Show, cfg.Targets)

	var tts services.TTSService
	switch cfg.SpeechProvider {
	case config.SpeechProviderElevenLabs:
		tts = services.NewElevenLabsService(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID)
	case config.SpeechProviderCartesia:
		tts = services.NewCartesiaService(cfg.CartesiaKey, cfg.CartesiaURL, cfg.CartesiaVoiceID)
	default:
		tts = services.NewOpenAIAudioService(cfg.OpenAIKey, "", cfg.SpeechModel)
	}
	synth := services.NewSynthesisService(tts, cfg.SpeechCredential, cfg.Show)

	log.Printf("[Pipeline] Script provider: %s (credential %s), speech provider: %s (credential %s)",
		cfg.ScriptProvider, cfg.ScriptCredential, cfg.SpeechProvider, cfg.SpeechCredential)

	return NewRunner(content, scripts, synth, cfg.Show.VoiceMap()).
		WithArtifactNames(cfg.ScriptFile, cfg.AudioFile)
}
