package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SpeakerName identifies one voice in a dialogue (e.g. "Kabir").
type SpeakerName string

// DialogueTurn is one line of the conversation.
type DialogueTurn struct {
	Speaker SpeakerName `json:"speaker"`
	Text    string      `json:"text"`
}

// Script is the ordered conversation. Turn order is playback order.
type Script struct {
	Conversation []DialogueTurn `json:"conversation"`
}

// WordCount returns the total number of whitespace-separated words across all turns.
func (s *Script) WordCount() int {
	n := 0
	for _, t := range s.Conversation {
		n += len(strings.Fields(t.Text))
	}
	return n
}

// Validate checks the structural contract every stage relies on:
// at least one turn, and no turn with an empty speaker or text.
func (s *Script) Validate() error {
	if s == nil || len(s.Conversation) == 0 {
		return fmt.Errorf("script has no turns")
	}
	for i, t := range s.Conversation {
		var missing []string
		if strings.TrimSpace(string(t.Speaker)) == "" {
			missing = append(missing, "speaker")
		}
		if strings.TrimSpace(t.Text) == "" {
			missing = append(missing, "text")
		}
		if len(missing) > 0 {
			return fmt.Errorf("turn %d missing required fields: %v", i, missing)
		}
	}
	return nil
}

// MarshalScript renders a script in its persisted form (indented JSON).
func MarshalScript(s *Script) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal script: %w", err)
	}
	return data, nil
}

// ParseScript decodes the persisted form. The "conversation" field is required
// and must hold a valid, non-empty turn list.
func ParseScript(data []byte) (*Script, error) {
	var raw struct {
		Conversation *[]DialogueTurn `json:"conversation"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode script: %w", err)
	}
	if raw.Conversation == nil {
		return nil, fmt.Errorf("script is missing the conversation field")
	}

	script := &Script{Conversation: *raw.Conversation}
	if err := script.Validate(); err != nil {
		return nil, err
	}
	return script, nil
}

// ScriptTargets is the length band requested from the model. It is a
// request-time instruction only.
type ScriptTargets struct {
	MinTurns int
	MaxTurns int
	MinWords int
	MaxWords int
}

// DefaultScriptTargets keeps generated audio under roughly two minutes.
func DefaultScriptTargets() ScriptTargets {
	return ScriptTargets{MinTurns: 8, MaxTurns: 10, MinWords: 150, MaxWords: 180}
}

// ScriptSource records where a script came from.
type ScriptSource string

const (
	ScriptSourceModel    ScriptSource = "model"
	ScriptSourceFallback ScriptSource = "fallback"
)

// ExcerptSource records which retrieval path produced an excerpt.
type ExcerptSource string

const (
	ExcerptSourceSummary   ExcerptSource = "summary"
	ExcerptSourceSearch    ExcerptSource = "search"
	ExcerptSourceSynthetic ExcerptSource = "synthetic"
)

// Excerpt is the bounded factual text handed to script generation.
type Excerpt struct {
	Text   string        `json:"text"`
	Source ExcerptSource `json:"source"`
	Title  string        `json:"title,omitempty"` // resolved article title, empty for synthetic
}

// AudioBuffer is the concatenated dialogue audio.
type AudioBuffer struct {
	Data        []byte
	Format      string // "mp3", "wav", etc.
	Placeholder bool   // true when Data is the fixed placeholder pattern
	TurnsVoiced int
}

// Credential says whether a usable API key was configured for a provider.
// It is decided once when configuration is loaded.
type Credential int

const (
	CredentialAbsent Credential = iota
	CredentialPresent
)

func (c Credential) String() string {
	if c == CredentialPresent {
		return "present"
	}
	return "absent"
}

// VoiceMap assigns a synthesis voice to each speaker.
type VoiceMap struct {
	Voices   map[SpeakerName]string
	Fallback string
}

// Resolve returns the speaker's voice, or the fallback voice for unmapped speakers.
func (m VoiceMap) Resolve(speaker SpeakerName) string {
	if v, ok := m.Voices[speaker]; ok && v != "" {
		return v
	}
	return m.Fallback
}

// Host is one member of the show's cast.
type Host struct {
	Name  SpeakerName
	Role  string // "Host", "Guest"
	Voice string
}

// Show describes the cast and delivery style of the podcast.
type Show struct {
	Name          string
	Language      string // e.g. "Hinglish"
	Accent        string // e.g. "Indian"
	Hosts         []Host
	FallbackVoice string
}

// Primary returns the first host, who opens every episode.
func (s Show) Primary() Host {
	if len(s.Hosts) == 0 {
		return Host{Name: "Host", Role: "Host"}
	}
	return s.Hosts[0]
}

// Guest returns the second host, or the primary host for a single-host show.
func (s Show) Guest() Host {
	if len(s.Hosts) < 2 {
		return s.Primary()
	}
	return s.Hosts[1]
}

// VoiceMap derives the speaker-to-voice assignment from the cast.
func (s Show) VoiceMap() VoiceMap {
	voices := make(map[SpeakerName]string, len(s.Hosts))
	for _, h := range s.Hosts {
		voices[h.Name] = h.Voice
	}
	return VoiceMap{Voices: voices, Fallback: s.FallbackVoice}
}

// DefaultShow is the two-host Hinglish cast used when no show file is configured.
// Voice ids are OpenAI audio voices.
func DefaultShow() Show {
	return Show{
		Name:     "Chai Pe Charcha",
		Language: "Hinglish",
		Accent:   "Indian",
		Hosts: []Host{
			{Name: "Kabir", Role: "Host", Voice: "ballad"},  // warm, deep
			{Name: "Ananya", Role: "Guest", Voice: "coral"}, // energetic
		},
		FallbackVoice: "ash",
	}
}
