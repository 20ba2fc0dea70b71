package services

import (
	"fmt"
	"strings"

	"github.com/bobarin/podcast/internal/models"
)

// ScriptPrompt is the system + user message pair sent to a script writer.
type ScriptPrompt struct {
	System string
	User   string
}

// BuildScriptPrompt renders the persona/style instruction and the user message
// for one episode.
func BuildScriptPrompt(show models.Show, targets models.ScriptTargets, topic, context string) ScriptPrompt {
	return ScriptPrompt{
		System: buildScriptSystemPrompt(show, targets),
		User:   buildScriptUserPrompt(topic, context),
	}
}

func buildScriptSystemPrompt(show models.Show, targets models.ScriptTargets) string {
	host := show.Primary()
	guest := show.Guest()

	language := show.Language
	if language == "" {
		language = "Hinglish"
	}

	return fmt.Sprintf(`You are an expert scriptwriter for a viral Indian podcast.
Create a natural, high-energy conversation between two friends, %s (%s) and %s (%s).

Target Audience: Young Indians who speak mixed Hindi and English (%s).
Style: Conversational, informal, witty. NOT robotic.

Rules:
1. Language: Use natural %s.
2. Vocabulary: Use fillers like "Matlab", "Achcha", "Sahi mein?", "Bhai", "Umm...", "Hahaha".
3. Emotion: MANDATORY: Include markers like "[laughs]", "[sighs]", "umm...", "phew".
4. STRICT DURATION: The total length MUST be between %d to %d dialogue turns total (approx %d-%d words). This is crucial to keep the audio under 2 minutes.
5. Content: Based on the provided context, but make it sound like a chat, not a lecture.
6. Speakers: Only "%s" and "%s" may speak. %s opens the episode.

Format: Return ONLY valid JSON in this exact structure:
{
    "conversation": [
        {"speaker": "%s", "text": "Arre welcome back folks! [laughs]..."},
        {"speaker": "%s", "text": "..."}
    ]
}`,
		host.Name, host.Role, guest.Name, guest.Role,
		language, language,
		targets.MinTurns, targets.MaxTurns, targets.MinWords, targets.MaxWords,
		host.Name, guest.Name, host.Name,
		host.Name, guest.Name)
}

func buildScriptUserPrompt(topic, context string) string {
	return fmt.Sprintf("Topic: %s\n\nContext Info:\n%s", topic, strings.TrimSpace(context))
}

// buildVoiceInstruction is the per-line system instruction for speech synthesis.
func buildVoiceInstruction(show models.Show, speaker models.SpeakerName) string {
	language := show.Language
	if language == "" {
		language = "Hinglish"
	}
	accent := show.Accent
	if accent == "" {
		accent = "Indian"
	}
	return fmt.Sprintf("You are %s, an %s person speaking %s. Use a natural, expressive %s accent. "+
		"Include natural breathing and slight pauses where appropriate. Do not sound robotic. "+
		"Say exactly the line you are given, nothing more.",
		speaker, accent, language, accent)
}
