package services

import (
	"bytes"
	"context"
	"log"
	"strings"

	"github.com/bobarin/podcast/internal/models"
)

// placeholderFrame is an MPEG audio frame header; repeated it makes a tiny
// stand-in artifact when no speech could be produced.
var placeholderFrame = []byte{0xFF, 0xF3, 0x44, 0xC4}

const placeholderRepeat = 100

// PlaceholderAudio returns a fresh copy of the fixed placeholder byte pattern.
func PlaceholderAudio() []byte {
	return bytes.Repeat(placeholderFrame, placeholderRepeat)
}

// SynthesisService voices a script line by line and concatenates the result.
type SynthesisService struct {
	tts        TTSService
	credential models.Credential
	show       models.Show
}

func NewSynthesisService(tts TTSService, credential models.Credential, show models.Show) *SynthesisService {
	return &SynthesisService{tts: tts, credential: credential, show: show}
}

// Synthesize issues one request per non-empty turn, strictly in script order.
// The loop is one unit: the first failure discards everything voiced so far
// and the buffer becomes the placeholder.
func (s *SynthesisService) Synthesize(ctx context.Context, script *models.Script, voices models.VoiceMap) *models.AudioBuffer {
	if s.credential != models.CredentialPresent || s.tts == nil {
		log.Printf("[Synthesis] No speech credential configured, writing placeholder audio")
		return placeholderBuffer()
	}
	if script == nil {
		return placeholderBuffer()
	}

	var buf bytes.Buffer
	voiced := 0
	format := "mp3"

	for i, turn := range script.Conversation {
		if strings.TrimSpace(turn.Text) == "" {
			continue
		}

		voice := voices.Resolve(turn.Speaker)
		resp, err := s.tts.GenerateSpeech(ctx, SpeechRequest{
			Speaker:     string(turn.Speaker),
			Voice:       voice,
			Text:        turn.Text,
			Instruction: buildVoiceInstruction(s.show, turn.Speaker),
		})
		if err != nil {
			log.Printf("[Synthesis] Turn %d (%s) failed (%s), abandoning %d voiced turns for placeholder: %v",
				i+1, turn.Speaker, KindOf(err), voiced, err)
			return placeholderBuffer()
		}

		buf.Write(resp.AudioData)
		if resp.Format != "" {
			format = resp.Format
		}
		voiced++
		log.Printf("[Synthesis] Turn %d/%d voiced (%s, voice=%s, %d bytes)",
			i+1, len(script.Conversation), turn.Speaker, voice, len(resp.AudioData))
	}

	if voiced == 0 || buf.Len() == 0 {
		log.Printf("[Synthesis] Nothing voiced, writing placeholder audio")
		return placeholderBuffer()
	}

	return &models.AudioBuffer{
		Data:        buf.Bytes(),
		Format:      format,
		TurnsVoiced: voiced,
	}
}

func placeholderBuffer() *models.AudioBuffer {
	return &models.AudioBuffer{
		Data:        PlaceholderAudio(),
		Format:      "mp3",
		Placeholder: true,
	}
}
