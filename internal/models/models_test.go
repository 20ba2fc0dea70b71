package models

import (
	"encoding/json"
	"testing"
)

func TestJSONBMarshal(t *testing.T) {
	j := JSONB{
		"excerpt_source": "search",
		"turns":          9,
	}

	data, err := j.Value()
	if err != nil {
		t.Fatalf("failed to marshal JSONB: %v", err)
	}

	if data == nil {
		t.Fatal("expected non-nil data")
	}

	// Verify it's valid JSON
	var result map[string]interface{}
	if err := json.Unmarshal(data.([]byte), &result); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}

	if result["excerpt_source"] != "search" {
		t.Errorf("expected excerpt_source=search, got %v", result["excerpt_source"])
	}
}

func TestJSONBScan(t *testing.T) {
	jsonData := []byte(`{"script_source": "fallback", "words": 62}`)

	var j JSONB
	if err := j.Scan(jsonData); err != nil {
		t.Fatalf("failed to scan: %v", err)
	}

	if j["script_source"] != "fallback" {
		t.Errorf("expected script_source=fallback, got %v", j["script_source"])
	}

	if j["words"].(float64) != 62 {
		t.Errorf("expected words=62, got %v", j["words"])
	}
}

func TestEpisodeStatusValid(t *testing.T) {
	statuses := []EpisodeStatus{
		EpisodeStatusQueued,
		EpisodeStatusFetching,
		EpisodeStatusScripting,
		EpisodeStatusVoicing,
		EpisodeStatusCompleted,
		EpisodeStatusFailed,
	}

	for _, status := range statuses {
		if !status.Valid() {
			t.Errorf("status %q should be valid", status)
		}
	}

	if EpisodeStatus("rendering").Valid() {
		t.Error("unknown status reported as valid")
	}
}

func TestScriptRoundTrip(t *testing.T) {
	original := &Script{Conversation: []DialogueTurn{
		{Speaker: "Kabir", Text: "Arre welcome back folks! [laughs]"},
		{Speaker: "Ananya", Text: "Achcha, toh aaj ka topic kya hai?"},
		{Speaker: "Kabir", Text: "Umm... cricket, obviously."},
	}}

	data, err := MarshalScript(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	reloaded, err := ParseScript(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(reloaded.Conversation) != len(original.Conversation) {
		t.Fatalf("expected %d turns, got %d", len(original.Conversation), len(reloaded.Conversation))
	}
	for i := range original.Conversation {
		if reloaded.Conversation[i] != original.Conversation[i] {
			t.Errorf("turn %d: expected %+v, got %+v", i, original.Conversation[i], reloaded.Conversation[i])
		}
	}
}

func TestParseScriptRejectsOtherShapes(t *testing.T) {
	cases := map[string]string{
		"bare list":        `[{"speaker":"Kabir","text":"hi"}]`,
		"other field":      `{"dialogue":[{"speaker":"Kabir","text":"hi"}]}`,
		"empty list":       `{"conversation":[]}`,
		"missing text":     `{"conversation":[{"speaker":"Kabir"}]}`,
		"blank speaker":    `{"conversation":[{"speaker":"  ","text":"hi"}]}`,
		"not json":         `Sure! Here is your script:`,
		"wrong turn shape": `{"conversation":["Kabir: hi"]}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseScript([]byte(body)); err == nil {
				t.Errorf("expected error for %s", body)
			}
		})
	}
}

func TestScriptWordCount(t *testing.T) {
	s := &Script{Conversation: []DialogueTurn{
		{Speaker: "Kabir", Text: "Namaste doston!"},
		{Speaker: "Ananya", Text: "  Arre   waah yaar "},
	}}
	if got := s.WordCount(); got != 5 {
		t.Errorf("expected 5 words, got %d", got)
	}
}

func TestVoiceMapResolve(t *testing.T) {
	vm := DefaultShow().VoiceMap()

	if got := vm.Resolve("Kabir"); got != "ballad" {
		t.Errorf("Kabir: expected ballad, got %s", got)
	}
	if got := vm.Resolve("Ananya"); got != "coral" {
		t.Errorf("Ananya: expected coral, got %s", got)
	}
	if got := vm.Resolve("Narrator"); got != "ash" {
		t.Errorf("unmapped speaker: expected fallback ash, got %s", got)
	}
}
