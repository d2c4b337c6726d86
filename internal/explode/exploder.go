// Package explode splits listicle articles into standalone candidate items.
package explode

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"NewsletterCurator/internal/domain"
	"NewsletterCurator/internal/ports"
)

// defaultMaxTextChars bounds the listicle body sent for extraction. Wider
// than the judgment cap because the items worth extracting are spread
// through the whole article.
const defaultMaxTextChars = 6000

// explodableTypes lists the listicle item types worth splitting into
// individual vault entries. Roundups of anything else stay whole.
var explodableTypes = map[string]struct{}{
	"python_library":   {},
	"duckdb_extension": {},
	"ai_tool":          {},
	"coding_tool":      {},
	"vibe_coding_tool": {},
	"platform_infra":   {},
}

const extractionSystemPrompt = `You are a tool extractor for a technical consultant. The article below is a roundup listing several tools or libraries. Extract each concrete tool as a separate entry.

For each tool, score it 0-10 against the consultant's interests: AI agents, Python libraries, DuckDB, RAG, local LLMs, machine learning, AI coding tools, PostgreSQL, statistics. Skip entries that are only mentioned in passing without any description.

Return ONLY valid JSON (no markdown fences, no extra text):
{
    "items": [
        {
            "suggested_name": "<tool name>",
            "description": "<1-2 sentence neutral description>",
            "suggested_category": "<e.g. 'LLM Framework', 'Vector Database'>",
            "tags": ["<2-5 relevant tags>"],
            "score": <integer 0-10>,
            "reasoning": "<1 sentence explaining the score>"
        }
    ]
}`

// Exploder performs the second LLM call for eligible listicles and turns
// the extracted entries into candidates that re-enter the normal flow.
type Exploder struct {
	extractor    ports.ListExtractor
	maxTextChars int
	logger       *slog.Logger
}

// NewExploder wires the extraction backend. A nil extractor yields an
// exploder that declares nothing eligible.
func NewExploder(extractor ports.ListExtractor, logger *slog.Logger) *Exploder {
	return &Exploder{
		extractor:    extractor,
		maxTextChars: defaultMaxTextChars,
		logger:       logger,
	}
}

// Eligible reports whether a routed listicle should be split. Rejected
// items and roundups of non-explodable types stay whole.
func (e *Exploder) Eligible(result domain.ScoreResult, verdict domain.RouteVerdict) bool {
	if e == nil || e.extractor == nil {
		return false
	}
	if !result.Listicle || verdict == domain.RouteReject {
		return false
	}
	_, ok := explodableTypes[result.ListicleItemType]
	return ok
}

// Explode runs the extraction call for one listicle. The caller keeps the
// parent item when extraction fails or yields nothing.
func (e *Exploder) Explode(ctx context.Context, item domain.CandidateItem) ([]ports.SubItem, error) {
	text := item.RawText
	if runes := []rune(text); len(runes) > e.maxTextChars {
		text = string(runes[:e.maxTextChars])
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("listicle %s has no text to extract from", item.Identity())
	}

	subs, err := e.extractor.ExtractItems(ctx, ports.JudgeRequest{
		SystemPrompt: extractionSystemPrompt,
		UserPrompt: fmt.Sprintf("Title: %s\nURL: %s\n\nArticle text (truncated):\n%s\n",
			item.Title, item.URL, text),
	})
	if err != nil {
		return nil, fmt.Errorf("extract listicle items: %w", err)
	}

	if e.logger != nil {
		e.logger.Debug("listicle exploded", "item", item.Identity(), "sub_items", len(subs))
	}
	return subs, nil
}

// SubCandidate materializes one extracted entry as a standalone candidate
// plus its score, inheriting provenance from the parent article.
func SubCandidate(parent domain.CandidateItem, parentScore domain.ScoreResult, sub ports.SubItem, n int) (domain.CandidateItem, domain.ScoreResult) {
	item := domain.CandidateItem{
		ID:        fmt.Sprintf("%s/sub-%d", parent.ID, n),
		Title:     sub.SuggestedName,
		LinkText:  sub.SuggestedName,
		URL:       parent.URL,
		RawText:   sub.Description,
		Author:    parent.Author,
		Source:    parent.Source,
		FetchedAt: parent.FetchedAt,
	}

	result := domain.ScoreResult{
		Score:             sub.Score,
		Rationale:         sub.Reasoning,
		ItemType:          parentScore.ListicleItemType,
		Description:       sub.Description,
		SuggestedName:     sub.SuggestedName,
		SuggestedCategory: sub.SuggestedCategory,
		Tags:              sub.Tags,
	}

	return item, result
}
