package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bobarin/podcast/internal/models"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ScriptProviderOpenAI = "openai"
	ScriptProviderGemini = "gemini"

	SpeechProviderOpenAI     = "openai"
	SpeechProviderElevenLabs = "elevenlabs"
	SpeechProviderCartesia   = "cartesia"
)

type Config struct {
	// Server
	APIPort            string
	WorkerEnabled      bool
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Supabase
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string

	// Script generation
	ScriptProvider string // "openai" or "gemini"
	ScriptModel    string // empty = provider default
	OpenAIKey      string
	GeminiKey      string

	// Speech synthesis
	SpeechProvider    string // "openai", "elevenlabs" or "cartesia"
	SpeechModel       string // empty = provider default
	ElevenLabsKey     string
	ElevenLabsVoiceID string
	CartesiaKey       string
	CartesiaURL       string
	CartesiaVoiceID   string

	// Knowledge base
	WikipediaURL       string
	WikipediaUserAgent string
	MaxExcerptChars    int
	SyntheticExcerpt   bool // when false, an unknown topic aborts the run

	// Script shape requested from the model
	Targets models.ScriptTargets

	// Cast and voices
	ShowConfigPath string
	Show           models.Show

	// Decided once here and threaded into the stages.
	ScriptCredential models.Credential
	SpeechCredential models.Credential

	// CLI output
	OutputDir  string
	ScriptFile string
	AudioFile  string

	// Worker
	MaxConcurrentJobs int
}

// Load reads configuration from the environment (and .env when present).
// Missing provider keys are not an error: the affected stage runs its fallback.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:               getEnv("API_PORT", "8080"),
		WorkerEnabled:         getEnvBool("WORKER_ENABLED", true),
		BackendAPIKey:         getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins:    getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379"),
		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "podcast-episodes"),
		ScriptProvider:        strings.ToLower(getEnv("SCRIPT_PROVIDER", ScriptProviderOpenAI)),
		ScriptModel:           getEnv("SCRIPT_MODEL", ""),
		OpenAIKey:             getEnv("OPENAI_API_KEY", ""),
		GeminiKey:             getEnv("GEMINI_API_KEY", ""),
		SpeechProvider:        strings.ToLower(getEnv("SPEECH_PROVIDER", SpeechProviderOpenAI)),
		SpeechModel:           getEnv("SPEECH_MODEL", ""),
		ElevenLabsKey:         getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID:     getEnv("ELEVENLABS_VOICE_ID", ""),
		CartesiaKey:           getEnv("CARTESIA_API_KEY", ""),
		CartesiaURL:           getEnv("CARTESIA_API_URL", "https://api.cartesia.ai"),
		CartesiaVoiceID:       getEnv("CARTESIA_VOICE_ID", ""),
		WikipediaURL:          getEnv("WIKIPEDIA_URL", "https://en.wikipedia.org"),
		WikipediaUserAgent:    getEnv("WIKIPEDIA_USER_AGENT", "HinglishPodcastBot/1.0 (contact@example.com)"),
		MaxExcerptChars:       getEnvInt("MAX_EXCERPT_CHARS", 4000),
		SyntheticExcerpt:      getEnvBool("SYNTHETIC_EXCERPT_ENABLED", true),
		Targets: models.ScriptTargets{
			MinTurns: getEnvInt("TARGET_MIN_TURNS", 8),
			MaxTurns: getEnvInt("TARGET_MAX_TURNS", 10),
			MinWords: getEnvInt("TARGET_MIN_WORDS", 150),
			MaxWords: getEnvInt("TARGET_MAX_WORDS", 180),
		},
		ShowConfigPath:    getEnv("SHOW_CONFIG_PATH", ""),
		OutputDir:         getEnv("OUTPUT_DIR", "."),
		ScriptFile:        getEnv("SCRIPT_FILE", "script.json"),
		AudioFile:         getEnv("AUDIO_FILE", "hinglish_podcast.mp3"),
		MaxConcurrentJobs: getEnvInt("MAX_CONCURRENT_JOBS", 5),
	}

	if err := cfg.Resolve(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Resolve validates provider choices, loads the show file and derives the
// credential flags. Load calls it; callers that change providers afterwards
// (CLI flags) call it again.
func (c *Config) Resolve() error {
	switch c.ScriptProvider {
	case ScriptProviderOpenAI, ScriptProviderGemini:
	default:
		return fmt.Errorf("unknown SCRIPT_PROVIDER %q (want openai or gemini)", c.ScriptProvider)
	}

	switch c.SpeechProvider {
	case SpeechProviderOpenAI, SpeechProviderElevenLabs, SpeechProviderCartesia:
	default:
		return fmt.Errorf("unknown SPEECH_PROVIDER %q (want openai, elevenlabs or cartesia)", c.SpeechProvider)
	}

	if c.MaxExcerptChars <= 0 {
		return fmt.Errorf("MAX_EXCERPT_CHARS must be positive, got %d", c.MaxExcerptChars)
	}
	if c.Targets.MinTurns > c.Targets.MaxTurns || c.Targets.MinWords > c.Targets.MaxWords {
		return fmt.Errorf("invalid script targets: turns %d-%d, words %d-%d",
			c.Targets.MinTurns, c.Targets.MaxTurns, c.Targets.MinWords, c.Targets.MaxWords)
	}

	show, err := c.loadShow()
	if err != nil {
		return err
	}
	c.Show = show

	c.ScriptCredential = credential(c.scriptKey())
	c.SpeechCredential = credential(c.speechKey())

	return nil
}

// ValidateServer checks the settings only the API server and worker need.
func (c *Config) ValidateServer() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.SupabaseURL == "" || c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required")
	}
	return nil
}

func (c *Config) scriptKey() string {
	if c.ScriptProvider == ScriptProviderGemini {
		return c.GeminiKey
	}
	return c.OpenAIKey
}

func (c *Config) speechKey() string {
	switch c.SpeechProvider {
	case SpeechProviderElevenLabs:
		return c.ElevenLabsKey
	case SpeechProviderCartesia:
		return c.CartesiaKey
	default:
		return c.OpenAIKey
	}
}

func credential(key string) models.Credential {
	if strings.TrimSpace(key) == "" {
		return models.CredentialAbsent
	}
	return models.CredentialPresent
}

// showFile is the YAML layout of SHOW_CONFIG_PATH.
type showFile struct {
	Name          string `yaml:"name"`
	Language      string `yaml:"language"`
	Accent        string `yaml:"accent"`
	FallbackVoice string `yaml:"fallback_voice"`
	Hosts         []struct {
		Name  string `yaml:"name"`
		Role  string `yaml:"role"`
		Voice string `yaml:"voice"`
	} `yaml:"hosts"`
}

func (c *Config) loadShow() (models.Show, error) {
	if c.ShowConfigPath == "" {
		show := models.DefaultShow()
		if c.SpeechProvider != SpeechProviderOpenAI {
			// The built-in voices are OpenAI ids; other providers use their configured default.
			for i := range show.Hosts {
				show.Hosts[i].Voice = ""
			}
			show.FallbackVoice = ""
		}
		return show, nil
	}

	data, err := os.ReadFile(c.ShowConfigPath)
	if err != nil {
		return models.Show{}, fmt.Errorf("failed to read show config %s: %w", c.ShowConfigPath, err)
	}

	return ParseShow(data)
}

// ParseShow decodes a YAML show definition. At least two hosts are required.
func ParseShow(data []byte) (models.Show, error) {
	var f showFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return models.Show{}, fmt.Errorf("failed to parse show config: %w", err)
	}

	if len(f.Hosts) < 2 {
		return models.Show{}, fmt.Errorf("show config needs at least two hosts, got %d", len(f.Hosts))
	}

	show := models.Show{
		Name:          f.Name,
		Language:      f.Language,
		Accent:        f.Accent,
		FallbackVoice: f.FallbackVoice,
	}
	for i, h := range f.Hosts {
		if strings.TrimSpace(h.Name) == "" {
			return models.Show{}, fmt.Errorf("show config host %d has no name", i+1)
		}
		show.Hosts = append(show.Hosts, models.Host{
			Name:  models.SpeakerName(h.Name),
			Role:  h.Role,
			Voice: h.Voice,
		})
	}

	return show, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
