package explode

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsletterCurator/internal/domain"
	"NewsletterCurator/internal/ports"
)

type fakeExtractor struct {
	items []ports.SubItem
	err   error
	last  ports.JudgeRequest
}

func (f *fakeExtractor) ExtractItems(_ context.Context, req ports.JudgeRequest) ([]ports.SubItem, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func TestEligibleRequiresExplodableListicleType(t *testing.T) {
	t.Parallel()

	e := NewExploder(&fakeExtractor{}, nil)

	cases := []struct {
		name     string
		result   domain.ScoreResult
		verdict  domain.RouteVerdict
		eligible bool
	}{
		{"python library roundup", domain.ScoreResult{Listicle: true, ListicleItemType: "python_library"}, domain.RouteAutoPropose, true},
		{"coding tool roundup", domain.ScoreResult{Listicle: true, ListicleItemType: "coding_tool"}, domain.RouteProposeWithReview, true},
		{"concept roundup stays whole", domain.ScoreResult{Listicle: true, ListicleItemType: "concept_pattern"}, domain.RouteAutoPropose, false},
		{"not a listicle", domain.ScoreResult{ListicleItemType: "python_library"}, domain.RouteAutoPropose, false},
		{"rejected listicle", domain.ScoreResult{Listicle: true, ListicleItemType: "python_library"}, domain.RouteReject, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.eligible, e.Eligible(tc.result, tc.verdict))
		})
	}
}

func TestEligibleFalseWithoutExtractor(t *testing.T) {
	t.Parallel()

	e := NewExploder(nil, nil)
	result := domain.ScoreResult{Listicle: true, ListicleItemType: "ai_tool"}
	assert.False(t, e.Eligible(result, domain.RouteAutoPropose))
}

func TestExplodeSendsTruncatedBodyOnRuneBoundary(t *testing.T) {
	t.Parallel()

	extractor := &fakeExtractor{}
	e := NewExploder(extractor, nil)

	item := domain.CandidateItem{
		ID:      "digest.html#1",
		Title:   "12 tools worth a look",
		URL:     "https://example.org/tools",
		RawText: strings.Repeat("é", defaultMaxTextChars+100),
	}

	_, err := e.Explode(context.Background(), item)
	require.NoError(t, err)

	assert.Contains(t, extractor.last.UserPrompt, "12 tools worth a look")
	assert.True(t, utf8.ValidString(extractor.last.UserPrompt))
	assert.Less(t, utf8.RuneCountInString(extractor.last.UserPrompt), defaultMaxTextChars+200)
}

func TestExplodeFailsWhenListicleHasNoText(t *testing.T) {
	t.Parallel()

	e := NewExploder(&fakeExtractor{}, nil)
	_, err := e.Explode(context.Background(), domain.CandidateItem{ID: "digest.html#2", RawText: "   "})
	require.Error(t, err)
}

func TestExplodeWrapsExtractorErrors(t *testing.T) {
	t.Parallel()

	e := NewExploder(&fakeExtractor{err: fmt.Errorf("model overloaded")}, nil)
	_, err := e.Explode(context.Background(), domain.CandidateItem{ID: "digest.html#4", RawText: "ten tools listed here"})
	require.ErrorContains(t, err, "model overloaded")
}

func TestSubCandidateInheritsParentProvenance(t *testing.T) {
	t.Parallel()

	fetched := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	parent := domain.CandidateItem{
		ID:        "digest.html#5",
		Title:     "10 libraries you should know",
		URL:       "https://example.org/roundup",
		Author:    "Jane Roe",
		Source:    "weekly-ai",
		FetchedAt: fetched,
	}
	parentScore := domain.ScoreResult{Listicle: true, ListicleItemType: "python_library"}
	sub := ports.SubItem{
		SuggestedName:     "Polars",
		Description:       "Fast dataframe library",
		SuggestedCategory: "Dataframes",
		Tags:              []string{"python", "dataframes"},
		Score:             7,
		Reasoning:         "matches the Python libraries interest",
	}

	item, result := SubCandidate(parent, parentScore, sub, 2)

	assert.Equal(t, "digest.html#5/sub-2", item.ID)
	assert.Equal(t, "Polars", item.Title)
	assert.Equal(t, "Polars", item.LinkText)
	assert.Equal(t, parent.URL, item.URL)
	assert.Equal(t, "Fast dataframe library", item.RawText)
	assert.Equal(t, "Jane Roe", item.Author)
	assert.Equal(t, "weekly-ai", item.Source)
	assert.Equal(t, fetched, item.FetchedAt)

	assert.Equal(t, 7, result.Score)
	assert.Equal(t, "python_library", result.ItemType)
	assert.Equal(t, "Polars", result.SuggestedName)
	assert.Equal(t, "Dataframes", result.SuggestedCategory)
	assert.False(t, result.Listicle)
}
