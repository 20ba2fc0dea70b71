package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bobarin/podcast/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"OPENAI_API_KEY", "SCRIPT_PROVIDER", "SPEECH_PROVIDER", "SHOW_CONFIG_PATH", "MAX_EXCERPT_CHARS"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.MaxExcerptChars != 4000 {
		t.Errorf("expected 4000, got %d", cfg.MaxExcerptChars)
	}
	if cfg.Targets != models.DefaultScriptTargets() {
		t.Errorf("unexpected targets %+v", cfg.Targets)
	}
	if cfg.ScriptCredential != models.CredentialAbsent || cfg.SpeechCredential != models.CredentialAbsent {
		t.Error("expected absent credentials without OPENAI_API_KEY")
	}
	if cfg.Show.Primary().Name != "Kabir" || cfg.Show.Primary().Voice != "ballad" {
		t.Errorf("unexpected default show %+v", cfg.Show)
	}
}

func TestLoadCredentialsFollowProvider(t *testing.T) {
	t.Setenv("SHOW_CONFIG_PATH", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("SCRIPT_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("SPEECH_PROVIDER", "elevenlabs")
	t.Setenv("ELEVENLABS_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ScriptCredential != models.CredentialPresent {
		t.Error("expected script credential present")
	}
	if cfg.SpeechCredential != models.CredentialAbsent {
		t.Error("expected speech credential absent")
	}
	// OpenAI voice ids must not leak to other providers.
	if v := cfg.Show.VoiceMap().Resolve("Kabir"); v != "" {
		t.Errorf("expected provider default voice, got %q", v)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("SCRIPT_PROVIDER", "claude-3")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestLoadShowFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "show.yaml")
	yamlData := `name: Cricket Adda
language: Hinglish
accent: Indian
fallback_voice: ash
hosts:
  - name: Rohan
    role: Host
    voice: verse
  - name: Meera
    role: Guest
    voice: shimmer
`
	if err := os.WriteFile(path, []byte(yamlData), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SHOW_CONFIG_PATH", path)
	t.Setenv("SCRIPT_PROVIDER", "")
	t.Setenv("SPEECH_PROVIDER", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Show.Name != "Cricket Adda" || cfg.Show.Guest().Name != "Meera" {
		t.Errorf("unexpected show %+v", cfg.Show)
	}
	voices := cfg.Show.VoiceMap()
	if voices.Resolve("Meera") != "shimmer" || voices.Resolve("Stranger") != "ash" {
		t.Errorf("unexpected voice map %+v", voices)
	}
}

func TestParseShowNeedsTwoHosts(t *testing.T) {
	_, err := ParseShow([]byte("name: Solo\nhosts:\n  - name: Kabir\n"))
	if err == nil {
		t.Fatal("expected error for single-host show")
	}
}

func TestValidateServer(t *testing.T) {
	cfg := &Config{}
	if err := cfg.ValidateServer(); err == nil {
		t.Error("expected error without DATABASE_URL")
	}
	cfg.DatabaseURL = "postgres://localhost/podcast"
	cfg.SupabaseURL = "https://example.supabase.co"
	cfg.SupabaseServiceKey = "key"
	if err := cfg.ValidateServer(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
