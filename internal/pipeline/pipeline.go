package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bobarin/podcast/internal/models"
	"github.com/bobarin/podcast/internal/services"
)

// ErrNoContent is the one terminal failure: acquisition produced no excerpt,
// so no script or audio is produced.
var ErrNoContent = errors.New("no content found for topic")

// Artifact names written through the sink.
const (
	DefaultScriptName = "script.json"
	DefaultAudioName  = "hinglish_podcast.mp3"
)

// Stage names reported to StageFunc.
const (
	StageFetching  = "fetching"
	StageScripting = "scripting"
	StageVoicing   = "voicing"
)

// StageFunc is told when each stage starts.
type StageFunc func(ctx context.Context, stage string)

// ArtifactSink persists a named artifact and returns where it went.
type ArtifactSink interface {
	Save(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// Stage contracts, satisfied by the services package.
type (
	contentFetcher interface {
		FetchContent(ctx context.Context, topic string) *models.Excerpt
	}
	scriptGenerator interface {
		GenerateScript(ctx context.Context, topic string, excerpt *models.Excerpt) (*models.Script, models.ScriptSource)
	}
	synthesizer interface {
		Synthesize(ctx context.Context, script *models.Script, voices models.VoiceMap) *models.AudioBuffer
	}
)

// Runner executes the three stages strictly in sequence.
type Runner struct {
	content    contentFetcher
	scripts    scriptGenerator
	synth      synthesizer
	voices     models.VoiceMap
	scriptName string
	audioName  string
}

// Ensure the concrete services satisfy the stage contracts.
var (
	_ contentFetcher  = (*services.ContentService)(nil)
	_ scriptGenerator = (*services.ScriptService)(nil)
	_ synthesizer     = (*services.SynthesisService)(nil)
)

func NewRunner(content contentFetcher, scripts scriptGenerator, synth synthesizer, voices models.VoiceMap) *Runner {
	return &Runner{
		content:    content,
		scripts:    scripts,
		synth:      synth,
		voices:     voices,
		scriptName: DefaultScriptName,
		audioName:  DefaultAudioName,
	}
}

// WithArtifactNames overrides the script and audio artifact names.
func (r *Runner) WithArtifactNames(scriptName, audioName string) *Runner {
	if scriptName != "" {
		r.scriptName = scriptName
	}
	if audioName != "" {
		r.audioName = audioName
	}
	return r
}

// Result is everything one run produced.
type Result struct {
	Topic          string
	Excerpt        *models.Excerpt
	Script         *models.Script
	ScriptSource   models.ScriptSource
	Audio          *models.AudioBuffer
	ScriptLocation string
	AudioLocation  string
	Duration       time.Duration
}

// Stats summarizes the run for logs and the episode record.
func (r *Result) Stats() models.JSONB {
	stats := models.JSONB{
		"topic":         r.Topic,
		"script_source": string(r.ScriptSource),
		"duration_ms":   r.Duration.Milliseconds(),
	}
	if r.Excerpt != nil {
		stats["excerpt_source"] = string(r.Excerpt.Source)
		stats["excerpt_chars"] = len([]rune(r.Excerpt.Text))
		if r.Excerpt.Title != "" {
			stats["article_title"] = r.Excerpt.Title
		}
	}
	if r.Script != nil {
		stats["turns"] = len(r.Script.Conversation)
		stats["words"] = r.Script.WordCount()
	}
	if r.Audio != nil {
		stats["audio_bytes"] = len(r.Audio.Data)
		stats["audio_placeholder"] = r.Audio.Placeholder
		stats["turns_voiced"] = r.Audio.TurnsVoiced
	}
	return stats
}

// Run turns a topic into a script artifact and an audio artifact.
// The only error returned from the stages themselves is ErrNoContent; sink
// failures are returned wrapped.
func (r *Runner) Run(ctx context.Context, topic string, sink ArtifactSink, onStage StageFunc) (*Result, error) {
	start := time.Now()
	notify := func(stage string) {
		if onStage != nil {
			onStage(ctx, stage)
		}
	}

	result := &Result{Topic: topic}

	// Stage 1: content acquisition
	notify(StageFetching)
	log.Printf("[Pipeline] Fetching content for %q", topic)
	result.Excerpt = r.content.FetchContent(ctx, topic)
	if result.Excerpt == nil {
		log.Printf("[Pipeline] No content for %q, aborting", topic)
		return nil, ErrNoContent
	}

	// Stage 2: script generation
	notify(StageScripting)
	result.Script, result.ScriptSource = r.scripts.GenerateScript(ctx, topic, result.Excerpt)
	log.Printf("[Pipeline] Script ready (%s, %d turns)", result.ScriptSource, len(result.Script.Conversation))

	scriptJSON, err := models.MarshalScript(result.Script)
	if err != nil {
		return nil, fmt.Errorf("failed to encode script: %w", err)
	}
	result.ScriptLocation, err = sink.Save(ctx, r.scriptName, scriptJSON, "application/json")
	if err != nil {
		return nil, fmt.Errorf("failed to save script: %w", err)
	}
	log.Printf("[Pipeline] Script saved to %s", result.ScriptLocation)

	// Stage 3: audio synthesis
	notify(StageVoicing)
	result.Audio = r.synth.Synthesize(ctx, result.Script, r.voices)

	result.AudioLocation, err = sink.Save(ctx, r.audioName, result.Audio.Data, audioContentType(result.Audio.Format))
	if err != nil {
		return nil, fmt.Errorf("failed to save audio: %w", err)
	}

	result.Duration = time.Since(start)
	log.Printf("[Pipeline] Audio saved to %s (%d bytes, placeholder=%v) in %v",
		result.AudioLocation, len(result.Audio.Data), result.Audio.Placeholder, result.Duration.Round(time.Millisecond))

	return result, nil
}

func audioContentType(format string) string {
	switch format {
	case "wav":
		return "audio/wav"
	case "pcm":
		return "audio/pcm"
	default:
		return "audio/mpeg"
	}
}
