package services

import (
	"context"
	"fmt"
	"log"

	"github.com/bobarin/podcast/internal/models"
)

// ScriptWriter produces a dialogue script from a rendered prompt.
type ScriptWriter interface {
	WriteScript(ctx context.Context, prompt ScriptPrompt) (*models.Script, error)
}

// ScriptService runs the script generation stage. It always returns a
// well-formed script: any writer failure degrades to FallbackScript.
type ScriptService struct {
	writer     ScriptWriter
	credential models.Credential
	show       models.Show
	targets    models.ScriptTargets
}

func NewScriptService(writer ScriptWriter, credential models.Credential, show models.Show, targets models.ScriptTargets) *ScriptService {
	return &ScriptService{
		writer:     writer,
		credential: credential,
		show:       show,
		targets:    targets,
	}
}

// GenerateScript asks the writer for a script grounded in excerpt.
func (s *ScriptService) GenerateScript(ctx context.Context, topic string, excerpt *models.Excerpt) (*models.Script, models.ScriptSource) {
	if s.credential != models.CredentialPresent || s.writer == nil {
		log.Printf("[Script] No script credential configured, using fallback script for %q", topic)
		return FallbackScript(topic, s.show), models.ScriptSourceFallback
	}

	excerptText := ""
	if excerpt != nil {
		excerptText = excerpt.Text
	}

	prompt := BuildScriptPrompt(s.show, s.targets, topic, excerptText)
	script, err := s.writer.WriteScript(ctx, prompt)
	if err != nil {
		log.Printf("[Script] Generation failed (%s), using fallback script: %v", KindOf(err), err)
		return FallbackScript(topic, s.show), models.ScriptSourceFallback
	}

	// The band is an instruction to the model, not a contract.
	turns, words := len(script.Conversation), script.WordCount()
	if turns < s.targets.MinTurns || turns > s.targets.MaxTurns ||
		words < s.targets.MinWords || words > s.targets.MaxWords {
		log.Printf("[Script] Script outside requested band: %d turns, %d words (want %d-%d turns, %d-%d words)",
			turns, words, s.targets.MinTurns, s.targets.MaxTurns, s.targets.MinWords, s.targets.MaxWords)
	}

	return script, models.ScriptSourceModel
}

// FallbackScript is the fixed five-turn demo dialogue with topic substituted.
// The primary host opens; speakers alternate.
func FallbackScript(topic string, show models.Show) *models.Script {
	host := show.Primary().Name
	guest := show.Guest().Name

	return &models.Script{
		Conversation: []models.DialogueTurn{
			{Speaker: host, Text: fmt.Sprintf("Namaste doston! Aaj hum baat karenge %s ke baare mein.", topic)},
			{Speaker: guest, Text: fmt.Sprintf("Arre waah! %s? Yeh toh hot topic hai yaar!", topic)},
			{Speaker: host, Text: "Bilkul! Suna hai maamla garam hai. Log iske baare mein bahut baat kar rahe hain."},
			{Speaker: guest, Text: "Haha, sahi kaha. Iska magic hi alag hai boss."},
			{Speaker: host, Text: "Chalo let's dive deep via this demo script!"},
		},
	}
}
