package queue

import (
	"testing"

	"github.com/google/uuid"
)

func TestDecodeJob(t *testing.T) {
	episodeID := uuid.New()
	data := []byte(`{"id":"` + uuid.New().String() + `","type":"generate_episode","episode_id":"` + episodeID.String() + `","topic":"Mumbai Indians"}`)

	job, err := decodeJob(data)
	if err != nil {
		t.Fatalf("decodeJob: %v", err)
	}
	if job.EpisodeID != episodeID || job.Topic != "Mumbai Indians" || job.Type != JobTypeGenerateEpisode {
		t.Errorf("unexpected job %+v", job)
	}
}

func TestDecodeJobRejectsMissingEpisode(t *testing.T) {
	if _, err := decodeJob([]byte(`{"type":"generate_episode"}`)); err == nil {
		t.Error("expected error for job without episode id")
	}
	if _, err := decodeJob([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed payload")
	}
}
