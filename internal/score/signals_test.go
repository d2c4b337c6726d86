package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsletterCurator/internal/config"
	"NewsletterCurator/internal/domain"
	"NewsletterCurator/internal/normalize"
)

func testScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		Weights: config.Weights{
			InterestMatch:        3,
			HasArtifact:          2,
			SimilarToAccepted:    2,
			NewVersion:           2,
			TrustedSource:        1,
			Actionable:           1,
			OutOfScope:           -3,
			ExactDuplicateNoInfo: -3,
			NoArtifact:           -2,
			SimilarToRejected:    -2,
			MarketingHeavy:       -2,
			Listicle:             -1,
		},
		InterestKeywords: []string{"duckdb", "python", "rag"},
		RejectKeywords:   []string{"real estate", "react"},
		TrustedSources:   []string{"duckdb.org", "github.com"},
		ScoreFloor:       -10,
		ScoreCeil:        10,
	}
}

var testMatching = config.MatchingConfig{SimilarThreshold: 0.80, StrongThreshold: 0.92, RelationThreshold: 0.60}

func evaluate(t *testing.T, rp *RulePass, item domain.CandidateItem, dup domain.DuplicateResult) (int, map[string]int) {
	t.Helper()
	key, err := normalize.Normalize(item)
	require.NoError(t, err)
	total, signals := rp.Evaluate(item, key, dup)
	byName := map[string]int{}
	for _, s := range signals {
		byName[s.Name] = s.Points
	}
	return total, byName
}

func TestRulePassInterestAndArtifact(t *testing.T) {
	t.Parallel()

	rp := NewRulePass(testScoringConfig(), testMatching, nil)
	item := domain.CandidateItem{
		Title:   "DuckDB v2.0 released",
		URL:     "https://duckdb.org/news/v2",
		RawText: "the new release of duckdb",
	}

	total, signals := evaluate(t, rp, item, domain.DuplicateResult{Verdict: domain.VerdictNew})

	assert.Equal(t, 3, signals[SignalInterestMatch])
	assert.Equal(t, 2, signals[SignalHasArtifact])
	assert.Equal(t, 1, signals[SignalTrustedSource])
	assert.NotContains(t, signals, SignalNoArtifact)
	assert.GreaterOrEqual(t, total, 5)
}

func TestRulePassOutOfScopeAndMarketing(t *testing.T) {
	t.Parallel()

	rp := NewRulePass(testScoringConfig(), testMatching, nil)
	item := domain.CandidateItem{
		Title:   "AI for real estate agents",
		URL:     "https://example.com/promo",
		RawText: "Sign up now for a free trial! Limited time offer.",
	}

	total, signals := evaluate(t, rp, item, domain.DuplicateResult{Verdict: domain.VerdictNew})

	assert.Equal(t, -3, signals[SignalOutOfScope])
	assert.Equal(t, -2, signals[SignalMarketingHeavy])
	assert.Equal(t, -2, signals[SignalNoArtifact])
	assert.Negative(t, total)
}

func TestRulePassDuplicateSignals(t *testing.T) {
	t.Parallel()

	rp := NewRulePass(testScoringConfig(), testMatching, nil)
	item := domain.CandidateItem{Title: "DuckDB v2.0", URL: "https://duckdb.org/news/v2", RawText: "x"}

	_, signals := evaluate(t, rp, item, domain.DuplicateResult{Verdict: domain.VerdictExactDuplicate})
	assert.Equal(t, -3, signals[SignalExactDuplicateNoInfo])

	_, signals = evaluate(t, rp, item, domain.DuplicateResult{
		Verdict: domain.VerdictUpdateCandidate,
		NewInfo: []string{"version-increase"},
	})
	assert.Equal(t, 2, signals[SignalNewVersion])
}

func TestRulePassListicle(t *testing.T) {
	t.Parallel()

	rp := NewRulePass(testScoringConfig(), testMatching, nil)
	item := domain.CandidateItem{
		Title:   "Top 10 Python libraries for 2026",
		URL:     "https://example.com/top10",
		RawText: "a roundup",
	}

	_, signals := evaluate(t, rp, item, domain.DuplicateResult{Verdict: domain.VerdictNew})
	assert.Equal(t, -1, signals[SignalListicle])
}

func TestRulePassFeedbackSimilarity(t *testing.T) {
	t.Parallel()

	feedback := []domain.FeedbackRecord{
		{ItemName: "Marimo notebooks", UserDecision: "accepted"},
		{ItemName: "HR chatbot suite", UserDecision: "rejected"},
	}
	rp := NewRulePass(testScoringConfig(), testMatching, feedback)

	item := domain.CandidateItem{Title: "Marimo Notebooks", URL: "https://github.com/marimo-team/marimo", RawText: "python notebooks"}
	_, signals := evaluate(t, rp, item, domain.DuplicateResult{Verdict: domain.VerdictNew})
	assert.Equal(t, 2, signals[SignalSimilarToAccepted])

	item = domain.CandidateItem{Title: "HR Chatbot Suite", URL: "https://example.com/hr", RawText: "chatbots"}
	_, signals = evaluate(t, rp, item, domain.DuplicateResult{Verdict: domain.VerdictNew})
	assert.Equal(t, -2, signals[SignalSimilarToRejected])
}

func TestRulePassDeterministic(t *testing.T) {
	t.Parallel()

	rp := NewRulePass(testScoringConfig(), testMatching, nil)
	item := domain.CandidateItem{Title: "RAG with DuckDB", URL: "https://github.com/acme/ragduck", RawText: "tutorial with code example"}
	dup := domain.DuplicateResult{Verdict: domain.VerdictNew}

	firstTotal, firstSignals := evaluate(t, rp, item, dup)
	for i := 0; i < 3; i++ {
		total, signals := evaluate(t, rp, item, dup)
		assert.Equal(t, firstTotal, total)
		assert.Equal(t, firstSignals, signals)
	}
}
