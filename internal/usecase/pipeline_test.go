package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsletterCurator/internal/config"
	"NewsletterCurator/internal/domain"
	"NewsletterCurator/internal/ports"
)

type fakeSource struct {
	items []domain.CandidateItem
	err   error
}

func (f *fakeSource) FetchBatch(context.Context, time.Time) ([]domain.CandidateItem, error) {
	return f.items, f.err
}

type fakeVault struct {
	entries []domain.VaultEntry
	err     error
	calls   int
}

func (f *fakeVault) Snapshot(context.Context) ([]domain.VaultEntry, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

type fakeJudge struct {
	resp ports.JudgeResponse
	err  error
}

func (f *fakeJudge) Judge(context.Context, ports.JudgeRequest) (ports.JudgeResponse, error) {
	if f.err != nil {
		return ports.JudgeResponse{}, f.err
	}
	return f.resp, nil
}

type fakeExtractor struct {
	items []ports.SubItem
	err   error
	calls int
}

func (f *fakeExtractor) ExtractItems(context.Context, ports.JudgeRequest) ([]ports.SubItem, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

type fakeStore struct {
	feedback  []domain.FeedbackRecord
	saved     []domain.Proposal
	runs      int
	finished  []domain.RunStats
	beginErr  error
	saveCalls []string
}

func (f *fakeStore) BeginRun(context.Context, time.Time) (string, error) {
	if f.beginErr != nil {
		return "", f.beginErr
	}
	f.runs++
	return fmt.Sprintf("run-%d", f.runs), nil
}

func (f *fakeStore) SaveProposal(_ context.Context, runID string, proposal domain.Proposal) error {
	f.saved = append(f.saved, proposal)
	f.saveCalls = append(f.saveCalls, runID)
	return nil
}

func (f *fakeStore) FinishRun(_ context.Context, stats domain.RunStats) error {
	f.finished = append(f.finished, stats)
	return nil
}

func (f *fakeStore) RecentFeedback(context.Context, int) ([]domain.FeedbackRecord, error) {
	return f.feedback, nil
}

type fakeNotifier struct {
	summaries []string
}

func (f *fakeNotifier) PublishSummary(_ context.Context, summary string) error {
	f.summaries = append(f.summaries, summary)
	return nil
}

func testConfig() config.Config {
	cfg := config.Load()
	cfg.LLM.CallTimeout = config.Duration(time.Second)
	cfg.LLM.RatePerSecond = 1000
	return cfg
}

func newTestPipeline(source *fakeSource, vault *fakeVault, judge ports.Judge, store *fakeStore, notifier *fakeNotifier) *Pipeline {
	deps := PipelineDeps{
		Source: source,
		Vault:  vault,
		Judge:  judge,
		Store:  store,
		Config: testConfig(),
	}
	if notifier != nil {
		deps.Notifier = notifier
	}
	return NewPipeline(deps)
}

func duckdbRelease() domain.CandidateItem {
	return domain.CandidateItem{
		ID:        "digest.html#0",
		Title:     "DuckDB v2.0 released",
		LinkText:  "DuckDB v2.0 released",
		URL:       "https://duckdb.org/news/v2",
		RawText:   "DuckDB v2.0 released with a new storage engine",
		Source:    "weekly-ai",
		FetchedAt: time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestProcessBatchNewItemIsAutoProposed(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	notifier := &fakeNotifier{}
	judge := &fakeJudge{resp: ports.JudgeResponse{Score: 0, ItemType: "platform_infra", Reasoning: "core tooling"}}

	p := newTestPipeline(
		&fakeSource{items: []domain.CandidateItem{duckdbRelease()}},
		&fakeVault{},
		judge, store, notifier,
	)

	stats, err := p.ProcessBatch(context.Background(), time.Now())
	require.NoError(t, err)

	require.Len(t, store.saved, 1)
	decision := store.saved[0].Decision

	assert.Equal(t, domain.VerdictNew, decision.Duplicate.Verdict)
	assert.GreaterOrEqual(t, decision.Score.Score, 5)
	assert.Equal(t, domain.RouteAutoPropose, decision.Verdict)
	assert.Equal(t, "Platforms & Infrastructure", decision.Destination)

	assert.Equal(t, 1, stats.ItemsScored)
	assert.Equal(t, 1, stats.ByVerdict[domain.RouteAutoPropose])
	require.Len(t, store.finished, 1)
	assert.Equal(t, domain.RunCompleted, store.finished[0].Status)
	require.Len(t, notifier.summaries, 1)
	assert.Contains(t, notifier.summaries[0], "DuckDB v2.0 released")
}

func TestProcessBatchClosesRunAsFailedWhenFetchFails(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	source := &fakeSource{err: fmt.Errorf("newsletter dir unreadable")}

	p := newTestPipeline(source, &fakeVault{}, &fakeJudge{}, store, nil)

	_, err := p.ProcessBatch(context.Background(), time.Now())
	require.Error(t, err)

	require.Len(t, store.finished, 1)
	assert.Equal(t, domain.RunFailed, store.finished[0].Status)
	assert.Equal(t, "run-1", store.finished[0].RunID)
	assert.False(t, store.finished[0].FinishedAt.IsZero())
}

func TestProcessBatchExactDuplicateIsRejectedRegardlessOfScore(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	judge := &fakeJudge{resp: ports.JudgeResponse{Score: 9, ItemType: "platform_infra"}}
	vault := &fakeVault{entries: []domain.VaultEntry{
		{ID: "vault-1", Collection: "Platforms & Infrastructure", Name: "DuckDB v2.0 released", URL: "https://duckdb.org/news/v2"},
	}}

	p := newTestPipeline(
		&fakeSource{items: []domain.CandidateItem{duckdbRelease()}},
		vault, judge, store, nil,
	)

	_, err := p.ProcessBatch(context.Background(), time.Now())
	require.NoError(t, err)

	require.Len(t, store.saved, 1)
	decision := store.saved[0].Decision
	assert.Equal(t, domain.VerdictExactDuplicate, decision.Duplicate.Verdict)
	assert.Equal(t, domain.RouteReject, decision.Verdict)
	assert.Equal(t, "already in vault", decision.Reason)
}

func TestProcessBatchVersionBumpBecomesUpdateProposal(t *testing.T) {
	t.Parallel()

	item := duckdbRelease()
	item.Title = "DuckDB v3.1 released"
	item.LinkText = item.Title
	item.RawText = "DuckDB v3.1 released with even faster joins"

	store := &fakeStore{}
	judge := &fakeJudge{resp: ports.JudgeResponse{Score: 0, ItemType: "platform_infra"}}
	vault := &fakeVault{entries: []domain.VaultEntry{
		{ID: "vault-1", Collection: "Platforms & Infrastructure", Name: "DuckDB v2.0", URL: "https://duckdb.org/news/v2"},
	}}

	p := newTestPipeline(&fakeSource{items: []domain.CandidateItem{item}}, vault, judge, store, nil)

	_, err := p.ProcessBatch(context.Background(), time.Now())
	require.NoError(t, err)

	require.Len(t, store.saved, 1)
	decision := store.saved[0].Decision
	assert.Equal(t, domain.VerdictUpdateCandidate, decision.Duplicate.Verdict)
	assert.Equal(t, "vault-1", decision.UpdateOf)
	assert.NotEqual(t, domain.RouteReject, decision.Verdict)
}

func TestProcessBatchDegradesToDeterministicScoringOnJudgeFailure(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	judge := &fakeJudge{err: fmt.Errorf("context deadline exceeded")}

	p := newTestPipeline(
		&fakeSource{items: []domain.CandidateItem{duckdbRelease()}},
		&fakeVault{},
		judge, store, nil,
	)

	_, err := p.ProcessBatch(context.Background(), time.Now())
	require.NoError(t, err)

	require.Len(t, store.saved, 1)
	result := store.saved[0].Decision.Score
	assert.True(t, result.LLMParseFailed)
	assert.True(t, result.ManualReview)
	assert.NotEmpty(t, store.saved[0].Decision.Verdict)
}

func TestProcessBatchFailsFastWhenVaultUnavailable(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	vault := &fakeVault{err: fmt.Errorf("notion 503")}

	p := newTestPipeline(&fakeSource{items: []domain.CandidateItem{duckdbRelease()}}, vault, &fakeJudge{}, store, nil)

	_, err := p.ProcessBatch(context.Background(), time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrVaultUnavailable)
	assert.Zero(t, store.runs)
	assert.Empty(t, store.saved)
}

func TestProcessBatchPersistsInInputOrder(t *testing.T) {
	t.Parallel()

	var items []domain.CandidateItem
	for i := 0; i < 6; i++ {
		item := duckdbRelease()
		item.ID = fmt.Sprintf("digest.html#%d", i)
		item.Title = fmt.Sprintf("Tool number %d announced", i)
		item.LinkText = item.Title
		item.URL = fmt.Sprintf("https://example.org/tools/%d", i)
		items = append(items, item)
	}

	store := &fakeStore{}
	judge := &fakeJudge{resp: ports.JudgeResponse{Score: 2, ItemType: "article"}}

	p := newTestPipeline(&fakeSource{items: items}, &fakeVault{}, judge, store, nil)

	_, err := p.ProcessBatch(context.Background(), time.Now())
	require.NoError(t, err)

	require.Len(t, store.saved, len(items))
	for i, proposal := range store.saved {
		assert.Equal(t, fmt.Sprintf("digest.html#%d", i), proposal.Decision.Candidate.ID)
		assert.Equal(t, "run-1", store.saveCalls[i])
	}
}

func libraryRoundup() domain.CandidateItem {
	return domain.CandidateItem{
		ID:        "digest.html#3",
		Title:     "10 best libraries for Python data work",
		LinkText:  "10 best libraries for Python data work",
		URL:       "https://example.org/roundups/python-libs",
		RawText:   "A tour of ten Python libraries: polars for dataframes, duckdb for SQL, and more",
		Source:    "weekly-ai",
		FetchedAt: time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC),
	}
}

func listicleJudge() *fakeJudge {
	return &fakeJudge{resp: ports.JudgeResponse{
		Score:            5,
		ItemType:         "article",
		SuggestedName:    "Python library roundup",
		IsListicle:       true,
		ListicleItemType: "python_library",
	}}
}

func TestProcessBatchExplodesListicleIntoSubItems(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	extractor := &fakeExtractor{items: []ports.SubItem{
		{SuggestedName: "Polars", Description: "Fast dataframe library", SuggestedCategory: "Dataframes", Score: 7, Reasoning: "core interest"},
		{SuggestedName: "DuckDB", Description: "In-process SQL engine", SuggestedCategory: "Databases", Score: 6, Reasoning: "core interest"},
	}}

	p := NewPipeline(PipelineDeps{
		Source:    &fakeSource{items: []domain.CandidateItem{libraryRoundup()}},
		Vault:     &fakeVault{},
		Judge:     listicleJudge(),
		Extractor: extractor,
		Store:     store,
		Config:    testConfig(),
	})

	_, err := p.ProcessBatch(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, extractor.calls)
	require.Len(t, store.saved, 2)

	first := store.saved[0].Decision
	assert.Equal(t, "digest.html#3/sub-0", first.Candidate.ID)
	assert.Equal(t, "Polars", first.Candidate.Title)
	assert.Equal(t, "https://example.org/roundups/python-libs", first.Candidate.URL)
	assert.Equal(t, "Python Libraries", first.Destination)
	assert.Equal(t, domain.RouteAutoPropose, first.Verdict)
	assert.Equal(t, "Python library roundup", first.FieldValues["Source Article"])

	second := store.saved[1].Decision
	assert.Equal(t, "digest.html#3/sub-1", second.Candidate.ID)
	assert.Equal(t, "DuckDB", second.Candidate.Title)
}

func TestProcessBatchKeepsListicleWhenExtractionFails(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	extractor := &fakeExtractor{err: fmt.Errorf("model overloaded")}

	p := NewPipeline(PipelineDeps{
		Source:    &fakeSource{items: []domain.CandidateItem{libraryRoundup()}},
		Vault:     &fakeVault{},
		Judge:     listicleJudge(),
		Extractor: extractor,
		Store:     store,
		Config:    testConfig(),
	})

	_, err := p.ProcessBatch(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, extractor.calls)
	require.Len(t, store.saved, 1)
	assert.Equal(t, "digest.html#3", store.saved[0].Decision.Candidate.ID)
	assert.True(t, store.saved[0].Decision.Score.Listicle)
}

func TestProcessBatchReportsInvalidCandidates(t *testing.T) {
	t.Parallel()

	invalid := domain.CandidateItem{ID: "digest.html#9", RawText: "no title, no url"}

	store := &fakeStore{}
	judge := &fakeJudge{resp: ports.JudgeResponse{Score: 0, ItemType: "article"}}

	p := newTestPipeline(
		&fakeSource{items: []domain.CandidateItem{invalid, duckdbRelease()}},
		&fakeVault{},
		judge, store, nil,
	)

	stats, err := p.ProcessBatch(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.ItemsExtracted)
	assert.Equal(t, 1, stats.ItemsInvalid)
	assert.Equal(t, 1, stats.ItemsScored)
	require.Len(t, store.saved, 1)
	assert.Equal(t, "digest.html#0", store.saved[0].Decision.Candidate.ID)
}
