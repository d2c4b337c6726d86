package score

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"NewsletterCurator/internal/config"
	"NewsletterCurator/internal/domain"
	"NewsletterCurator/internal/ports"
)

// defaultRetryDelay is the fixed backoff before the single retry of a
// failed judgment call.
const defaultRetryDelay = 2 * time.Second

// Scorer produces a ScoreResult by combining the deterministic rule pass
// with one external LLM judgment call. Safe for concurrent use; all state
// is read-only after construction.
type Scorer struct {
	judge      ports.Judge
	rules      *RulePass
	cfg        config.LLMConfig
	scoring    config.ScoringConfig
	limiter    *rate.Limiter
	examples   string
	logger     *slog.Logger
	retryDelay time.Duration
}

// NewScorer wires the judge backend, the rule pass, and the fixed config.
// feedbackExamples is the preformatted few-shot block for the system prompt.
func NewScorer(judge ports.Judge, rules *RulePass, llm config.LLMConfig, scoring config.ScoringConfig, feedbackExamples string, logger *slog.Logger) *Scorer {
	perSecond := llm.RatePerSecond
	if perSecond <= 0 {
		perSecond = 1
	}
	return &Scorer{
		judge:      judge,
		rules:      rules,
		cfg:        llm,
		scoring:    scoring,
		limiter:    rate.NewLimiter(rate.Limit(perSecond), 1),
		examples:   feedbackExamples,
		logger:     logger,
		retryDelay: defaultRetryDelay,
	}
}

// Score evaluates one candidate. LLM failures are recovered locally: one
// retry with backoff, then deterministic-only fallback. Never fatal to the
// batch.
func (s *Scorer) Score(ctx context.Context, item domain.CandidateItem, key domain.NormalizedKey, dup domain.DuplicateResult) domain.ScoreResult {
	detScore, signals := s.rules.Evaluate(item, key, dup)

	result := domain.ScoreResult{
		Score:         s.clamp(detScore),
		Signals:       signals,
		SuggestedName: suggestedName(item),
		ItemType:      "article",
	}

	if s.judge == nil {
		result.LLMParseFailed = true
		result.ManualReview = true
		return result
	}

	resp, err := s.judgeWithRetry(ctx, ports.JudgeRequest{
		SystemPrompt: SystemPrompt(s.examples),
		UserPrompt:   UserPrompt(item, s.cfg.MaxTextChars),
	})
	if err != nil {
		// Deterministic-only fallback. Transport failures additionally get
		// flagged for manual review; parse failures just carry the flag.
		result.LLMParseFailed = true
		if !errors.Is(err, ports.ErrBadJudgeResponse) {
			result.ManualReview = true
		}
		s.warn("llm judgment failed, deterministic fallback", "item", item.Identity(), "error", err)
		return result
	}

	result.Score = s.clamp(detScore + resp.Score)
	result.Rationale = resp.Reasoning
	result.Description = resp.Description
	result.SuggestedCategory = resp.SuggestedCategory
	result.Tags = resp.Tags
	if resp.ItemType != "" {
		result.ItemType = resp.ItemType
	}
	if resp.SuggestedName != "" {
		result.SuggestedName = resp.SuggestedName
	}
	for _, name := range resp.Signals {
		result.Signals = append(result.Signals, domain.Signal{Name: name})
	}
	if resp.IsListicle {
		result.Listicle = true
		result.ListicleItemType = resp.ListicleItemType
		result.Signals = append(result.Signals, domain.Signal{Name: SignalListicle, Points: s.scoring.Weights.Listicle})
		result.Score = s.clamp(result.Score + s.scoring.Weights.Listicle)
	}

	return result
}

// judgeWithRetry performs the call under the rate limiter and per-call
// timeout, retrying exactly once after a short backoff.
func (s *Scorer) judgeWithRetry(ctx context.Context, req ports.JudgeRequest) (ports.JudgeResponse, error) {
	var lastErr error

	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ports.JudgeResponse{}, ctx.Err()
			case <-time.After(s.retryDelay):
			}
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return ports.JudgeResponse{}, err
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if s.cfg.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, s.cfg.CallTimeout.Std())
		}
		resp, err := s.judge.Judge(callCtx, req)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}

	return ports.JudgeResponse{}, lastErr
}

func (s *Scorer) clamp(score int) int {
	floor, ceil := s.scoring.ScoreFloor, s.scoring.ScoreCeil
	if floor == 0 && ceil == 0 {
		floor, ceil = -10, 10
	}
	if score < floor {
		return floor
	}
	if score > ceil {
		return ceil
	}
	return score
}

func (s *Scorer) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

func suggestedName(item domain.CandidateItem) string {
	if item.Title != "" {
		return item.Title
	}
	if item.LinkText != "" {
		return item.LinkText
	}
	return item.URL
}
