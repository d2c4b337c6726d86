// Package usecase orchestrates the curation workflow over the driven ports.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"NewsletterCurator/internal/config"
	"NewsletterCurator/internal/dedup"
	"NewsletterCurator/internal/domain"
	"NewsletterCurator/internal/explode"
	"NewsletterCurator/internal/feedback"
	"NewsletterCurator/internal/normalize"
	"NewsletterCurator/internal/ports"
	"NewsletterCurator/internal/route"
	"NewsletterCurator/internal/score"
	"NewsletterCurator/internal/vaultindex"
)

// feedbackFetchLimit bounds how much review history one run pulls in before
// the override classification trims it down to the example budget.
const feedbackFetchLimit = 50

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source    ports.CandidateSource
	Vault     ports.VaultSource
	Judge     ports.Judge
	Extractor ports.ListExtractor
	Store     ports.DecisionStore
	Notifier  ports.Notifier
	Config    config.Config
	Logger    *slog.Logger
}

// Pipeline implements the newsletter curation workflow: extract, normalize,
// dedupe against the vault, score, route, and persist proposals.
type Pipeline struct {
	source   ports.CandidateSource
	vault    ports.VaultSource
	judge    ports.Judge
	exploder *explode.Exploder
	store    ports.DecisionStore
	notifier ports.Notifier
	cfg      config.Config
	logger   *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		source:   deps.Source,
		vault:    deps.Vault,
		judge:    deps.Judge,
		exploder: explode.NewExploder(deps.Extractor, deps.Logger),
		store:    deps.Store,
		notifier: deps.Notifier,
		cfg:      deps.Config,
		logger:   deps.Logger,
	}
}

// ProcessBatch runs one full curation cycle triggered at the given time.
// The vault snapshot loads first: without a duplicate check the run aborts
// rather than risk re-proposing stored items.
func (p *Pipeline) ProcessBatch(ctx context.Context, trigger time.Time) (domain.RunStats, error) {
	stats := domain.RunStats{
		StartedAt:     trigger,
		ByVerdict:     map[domain.RouteVerdict]int{},
		ByDestination: map[string]int{},
	}

	if p.source == nil || p.vault == nil {
		return stats, fmt.Errorf("pipeline missing source or vault")
	}

	entries, err := p.vault.Snapshot(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrVaultUnavailable) {
			err = domain.VaultUnavailableError(err)
		}
		return stats, err
	}

	index := vaultindex.New()
	index.Load(entries)
	p.debug("vault snapshot loaded", "entries", index.Len())

	records := p.loadFeedback(ctx)
	overrides := feedback.Overrides(records, feedbackFetchLimit)
	examples := feedback.FormatExamples(overrides, p.cfg.Scoring.MaxExamples)

	runID, err := p.beginRun(ctx, trigger)
	if err != nil {
		return stats, fmt.Errorf("begin run: %w", err)
	}
	stats.RunID = runID

	since := trigger.Add(-p.cfg.Scheduler.Interval.Std())
	items, err := p.source.FetchBatch(ctx, since)
	if err != nil {
		return stats, p.failRun(ctx, &stats, fmt.Errorf("fetch batch: %w", err))
	}
	stats.ItemsExtracted = len(items)

	valid, keys := p.normalizeAll(items, &stats)

	resolver := dedup.NewResolver(index, p.cfg.Matching)
	dups := resolver.ResolveBatch(valid, keys)

	rules := score.NewRulePass(p.cfg.Scoring, p.cfg.Matching, records)
	scorer := score.NewScorer(p.judge, rules, p.cfg.LLM, p.cfg.Scoring, examples, p.logger)
	router := route.NewRouter(index, p.cfg.Matching)

	proposals, err := p.scoreAndRoute(ctx, scorer, router, valid, keys, dups)
	if err != nil {
		return stats, p.failRun(ctx, &stats, err)
	}
	stats.ItemsScored = len(proposals)

	proposals = p.explodeListicles(ctx, resolver, router, proposals)

	// Persisted in input order so digest review reads like the newsletter.
	for _, proposal := range proposals {
		if err := p.saveProposal(ctx, runID, proposal); err != nil {
			return stats, p.failRun(ctx, &stats, err)
		}
		stats.ByVerdict[proposal.Decision.Verdict]++
		if proposal.Decision.Destination != "" {
			stats.ByDestination[proposal.Decision.Destination]++
		}
	}

	stats.Status = domain.RunCompleted
	stats.FinishedAt = time.Now()
	if p.store != nil {
		if err := p.store.FinishRun(ctx, stats); err != nil {
			return stats, fmt.Errorf("finish run: %w", err)
		}
	}

	p.publishSummary(ctx, stats, proposals)

	return stats, nil
}

func (p *Pipeline) normalizeAll(items []domain.CandidateItem, stats *domain.RunStats) ([]domain.CandidateItem, []domain.NormalizedKey) {
	valid := make([]domain.CandidateItem, 0, len(items))
	keys := make([]domain.NormalizedKey, 0, len(items))

	for _, item := range items {
		key, err := normalize.Normalize(item)
		if err != nil {
			stats.ItemsInvalid++
			p.warn("candidate excluded", "item", item.Identity(), "error", err)
			continue
		}
		valid = append(valid, item)
		keys = append(keys, key)
	}

	return valid, keys
}

// scoreAndRoute evaluates candidates concurrently but returns proposals in
// input order.
func (p *Pipeline) scoreAndRoute(
	ctx context.Context,
	scorer *score.Scorer,
	router *route.Router,
	items []domain.CandidateItem,
	keys []domain.NormalizedKey,
	dups []domain.DuplicateResult,
) ([]domain.Proposal, error) {
	proposals := make([]domain.Proposal, len(items))

	workers := p.cfg.Pipeline.Workers
	if workers <= 0 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			result := scorer.Score(gctx, items[i], keys[i], dups[i])
			decision := router.Route(items[i], keys[i], dups[i], result)
			proposals[i] = router.Propose(decision, time.Now())
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("score batch: %w", err)
	}

	return proposals, nil
}

// explodeListicles replaces eligible listicle proposals with one proposal
// per extracted tool. Sub-items re-enter normalize, dedup, and routing like
// any other candidate. When extraction fails the parent proposal stays so a
// bad second call never loses the item.
func (p *Pipeline) explodeListicles(ctx context.Context, resolver *dedup.Resolver, router *route.Router, proposals []domain.Proposal) []domain.Proposal {
	out := make([]domain.Proposal, 0, len(proposals))

	for _, proposal := range proposals {
		decision := proposal.Decision
		if !p.exploder.Eligible(decision.Score, decision.Verdict) {
			out = append(out, proposal)
			continue
		}

		subs, err := p.exploder.Explode(ctx, decision.Candidate)
		if err != nil || len(subs) == 0 {
			if err != nil {
				p.warn("listicle kept whole, extraction failed", "item", decision.Candidate.Identity(), "error", err)
			}
			out = append(out, proposal)
			continue
		}

		parentName := decision.Score.SuggestedName
		for n, sub := range subs {
			item, result := explode.SubCandidate(decision.Candidate, decision.Score, sub, n)
			key, err := normalize.Normalize(item)
			if err != nil {
				p.warn("sub-item excluded", "item", item.Identity(), "error", err)
				continue
			}
			// Sub-items share the parent URL, so the duplicate check goes by
			// tool name alone.
			dup := resolver.Resolve(item, domain.NormalizedKey{CanonicalTitle: key.CanonicalTitle})
			routed := router.Route(item, key, dup, result)
			if routed.FieldValues != nil && parentName != "" {
				routed.FieldValues["Source Article"] = parentName
			}
			out = append(out, router.Propose(routed, time.Now()))
		}
	}

	return out
}

func (p *Pipeline) loadFeedback(ctx context.Context) []domain.FeedbackRecord {
	if p.store == nil {
		return nil
	}

	records, err := p.store.RecentFeedback(ctx, feedbackFetchLimit)
	if err != nil {
		p.warn("feedback unavailable, scoring without examples", "error", err)
		return nil
	}
	return records
}

// failRun closes the open run record with a failed status so the digest
// store does not accumulate dangling runs. Best effort; the original cause
// is what callers return.
func (p *Pipeline) failRun(ctx context.Context, stats *domain.RunStats, cause error) error {
	stats.Status = domain.RunFailed
	stats.FinishedAt = time.Now()
	if p.store != nil && stats.RunID != "" {
		if err := p.store.FinishRun(ctx, *stats); err != nil {
			p.warn("failed run not closed", "run_id", stats.RunID, "error", err)
		}
	}
	return cause
}

func (p *Pipeline) beginRun(ctx context.Context, trigger time.Time) (string, error) {
	if p.store == nil {
		return "", nil
	}
	return p.store.BeginRun(ctx, trigger)
}

func (p *Pipeline) saveProposal(ctx context.Context, runID string, proposal domain.Proposal) error {
	if p.store == nil {
		return nil
	}
	if err := p.store.SaveProposal(ctx, runID, proposal); err != nil {
		return fmt.Errorf("persist proposal %s: %w", proposal.Decision.Candidate.Identity(), err)
	}
	return nil
}

func (p *Pipeline) publishSummary(ctx context.Context, stats domain.RunStats, proposals []domain.Proposal) {
	if p.notifier == nil {
		return
	}

	if err := p.notifier.PublishSummary(ctx, buildSummary(stats, proposals)); err != nil {
		p.warn("summary not delivered", "error", err)
	}
}

func buildSummary(stats domain.RunStats, proposals []domain.Proposal) string {
	summary := fmt.Sprintf("*Curation run %s*\nExtracted: %d | Invalid: %d | Scored: %d\n",
		stats.RunID, stats.ItemsExtracted, stats.ItemsInvalid, stats.ItemsScored)

	for _, verdict := range []domain.RouteVerdict{
		domain.RouteAutoPropose, domain.RouteProposeWithReview, domain.RouteMaybe, domain.RouteReject,
	} {
		if count := stats.ByVerdict[verdict]; count > 0 {
			summary += fmt.Sprintf("%s: %d\n", verdict, count)
		}
	}

	for _, proposal := range proposals {
		decision := proposal.Decision
		if decision.Verdict == domain.RouteReject {
			continue
		}
		summary += fmt.Sprintf("- [%+d] %s -> %s\n",
			decision.Score.Score, decision.Candidate.Title, decision.Destination)
	}

	if len(stats.ByDestination) > 0 {
		destinations := make([]string, 0, len(stats.ByDestination))
		for destination := range stats.ByDestination {
			destinations = append(destinations, destination)
		}
		sort.Strings(destinations)
		for _, destination := range destinations {
			summary += fmt.Sprintf("%s: %d\n", destination, stats.ByDestination[destination])
		}
	}

	return summary
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
