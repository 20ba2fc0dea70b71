package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bobarin/podcast/internal/models"
)

// DefaultMaxExcerptChars bounds every excerpt handed to script generation.
const DefaultMaxExcerptChars = 4000

// Article is one page of knowledge-base text.
type Article struct {
	Title string
	Text  string
}

// KnowledgeBase is the retrieval backend used by ContentService.
type KnowledgeBase interface {
	// Summary looks up an exact title.
	Summary(ctx context.Context, title string) (*Article, error)
	// Search returns candidate titles for a free-text query, best first.
	Search(ctx context.Context, query string) ([]string, error)
	// Extract returns the introductory text of a title.
	Extract(ctx context.Context, title string) (*Article, error)
}

// ContentService resolves a topic to a bounded factual excerpt.
// It never returns an error: each failed retrieval path falls through to the next.
type ContentService struct {
	kb        KnowledgeBase
	maxChars  int
	synthetic bool // when false, a total miss yields no excerpt at all
}

// NewContentService builds the acquisition stage. maxChars <= 0 uses DefaultMaxExcerptChars.
func NewContentService(kb KnowledgeBase, maxChars int, syntheticFallback bool) *ContentService {
	if maxChars <= 0 {
		maxChars = DefaultMaxExcerptChars
	}
	return &ContentService{kb: kb, maxChars: maxChars, synthetic: syntheticFallback}
}

// FetchContent walks the fallback chain: exact-title summary, then search and
// extract of the first hit, then a synthetic excerpt built from the topic.
// It returns nil only for a blank topic or when the synthetic excerpt is disabled.
func (s *ContentService) FetchContent(ctx context.Context, topic string) *models.Excerpt {
	if strings.TrimSpace(topic) == "" {
		log.Printf("[Content] Empty topic, nothing to fetch")
		return nil
	}

	// Step 1: direct summary by title
	article, err := s.kb.Summary(ctx, topic)
	if err == nil {
		log.Printf("[Content] Summary found for %q (%d chars)", topic, len(article.Text))
		return s.excerpt(article, models.ExcerptSourceSummary)
	}
	log.Printf("[Content] Summary lookup failed (%s): %v", KindOf(err), err)

	// Step 2: search, then fetch the first result's intro
	article, err = s.searchAndExtract(ctx, topic)
	if err == nil {
		log.Printf("[Content] Search fallback resolved %q to %q (%d chars)", topic, article.Title, len(article.Text))
		return s.excerpt(article, models.ExcerptSourceSearch)
	}
	log.Printf("[Content] Search fallback failed (%s): %v", KindOf(err), err)

	// Step 3: deterministic synthetic excerpt
	if !s.synthetic {
		log.Printf("[Content] No excerpt available for %q", topic)
		return nil
	}
	log.Printf("[Content] Using synthetic excerpt for %q", topic)
	return &models.Excerpt{
		Text:   truncateRunes(SyntheticExcerpt(topic), s.maxChars),
		Source: models.ExcerptSourceSynthetic,
	}
}

func (s *ContentService) searchAndExtract(ctx context.Context, topic string) (*Article, error) {
	titles, err := s.kb.Search(ctx, topic)
	if err != nil {
		return nil, err
	}
	if len(titles) == 0 {
		return nil, newCallError(KindRetrievalMiss, "content.search", fmt.Errorf("no results for %q", topic))
	}
	return s.kb.Extract(ctx, titles[0])
}

func (s *ContentService) excerpt(a *Article, source models.ExcerptSource) *models.Excerpt {
	return &models.Excerpt{
		Text:   truncateRunes(a.Text, s.maxChars),
		Source: source,
		Title:  a.Title,
	}
}

// SyntheticExcerpt is the offline stand-in for a knowledge-base summary.
func SyntheticExcerpt(topic string) string {
	return fmt.Sprintf("%s is a popular and widely discussed subject with a passionate following. "+
		"People love debating its history, its biggest moments and what makes %s special.", topic, topic)
}

// truncateRunes cuts s to at most n characters without splitting a multi-byte rune.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if n >= len(r) {
		return s
	}
	return string(r[:n])
}
