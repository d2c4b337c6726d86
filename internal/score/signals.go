// Package score combines a deterministic rule pass with one LLM judgment
// call per candidate.
package score

import (
	"regexp"
	"strings"

	"NewsletterCurator/internal/config"
	"NewsletterCurator/internal/domain"
	"NewsletterCurator/internal/normalize"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// Deterministic signal names. These appear verbatim in decision records,
// so reviewers can audit which rule fired.
const (
	SignalInterestMatch        = "interest-match"
	SignalHasArtifact          = "has-artifact"
	SignalSimilarToAccepted    = "similar-to-accepted"
	SignalNewVersion           = "new-version"
	SignalTrustedSource        = "trusted-source"
	SignalActionable           = "actionable"
	SignalOutOfScope           = "out-of-scope"
	SignalExactDuplicateNoInfo = "exact-duplicate-no-info"
	SignalNoArtifact           = "no-artifact"
	SignalSimilarToRejected    = "similar-to-rejected"
	SignalMarketingHeavy       = "marketing-heavy"
	SignalListicle             = "listicle"
)

var (
	artifactExpr = regexp.MustCompile(`(?i)\b(github\.com|gitlab\.com|pypi\.org|pkg\.go\.dev|crates\.io|huggingface\.co)/\S+`)
	listicleExpr = regexp.MustCompile(`(?i)\b(top|best)\s+\d+\b|\b\d+\s+(best|essential|must[- ]have)?\s*(tools|libraries|packages|extensions|tips)\b`)
)

var marketingPhrases = []string{
	"limited time", "sign up now", "book a demo", "free trial",
	"pricing plans", "webinar", "don't miss out", "exclusive offer",
}

var actionablePhrases = []string{
	"how to", "tutorial", "step by step", "guide", "walkthrough",
	"pip install", "go get", "docker run", "example code", "code example",
}

// RulePass evaluates the fixed boolean signals against candidate text.
// The feedback lists are loaded once per run and treated as immutable.
type RulePass struct {
	cfg      config.ScoringConfig
	matching config.MatchingConfig
	accepted []string // canonical names of previously accepted items
	rejected []string // canonical names of previously rejected items
	metric   *metrics.Levenshtein
}

// NewRulePass builds the deterministic pass from config plus the feedback
// history used for the similar-to-accepted/rejected signals.
func NewRulePass(cfg config.ScoringConfig, matching config.MatchingConfig, feedback []domain.FeedbackRecord) *RulePass {
	rp := &RulePass{cfg: cfg, matching: matching, metric: metrics.NewLevenshtein()}
	for _, record := range feedback {
		name := normalize.CanonicalTitle(record.ItemName)
		if name == "" {
			continue
		}
		switch record.UserDecision {
		case "accepted":
			rp.accepted = append(rp.accepted, name)
		case "rejected":
			rp.rejected = append(rp.rejected, name)
		}
	}
	return rp
}

// Evaluate sums the fixed weights of every signal that fires. The result
// is a pure function of its inputs.
func (rp *RulePass) Evaluate(item domain.CandidateItem, key domain.NormalizedKey, dup domain.DuplicateResult) (int, []domain.Signal) {
	w := rp.cfg.Weights
	text := strings.ToLower(item.Title + " " + item.LinkText + " " + item.RawText)
	haystack := text + " " + strings.ToLower(item.URL)

	var signals []domain.Signal
	add := func(name string, points int) {
		signals = append(signals, domain.Signal{Name: name, Points: points})
	}

	if containsAny(text, rp.cfg.InterestKeywords) {
		add(SignalInterestMatch, w.InterestMatch)
	}
	if containsAny(text, rp.cfg.RejectKeywords) {
		add(SignalOutOfScope, w.OutOfScope)
	}

	// A link into a known project/repo host counts as a linkable artifact
	// even when the body text has no explicit repo link.
	trusted := rp.trustedSource(item)
	if artifactExpr.MatchString(haystack) || trusted {
		add(SignalHasArtifact, w.HasArtifact)
	} else {
		add(SignalNoArtifact, w.NoArtifact)
	}

	if trusted {
		add(SignalTrustedSource, w.TrustedSource)
	}
	if containsAny(text, actionablePhrases) {
		add(SignalActionable, w.Actionable)
	}
	if containsAny(text, marketingPhrases) {
		add(SignalMarketingHeavy, w.MarketingHeavy)
	}
	if listicleExpr.MatchString(item.Title) || listicleExpr.MatchString(item.LinkText) {
		add(SignalListicle, w.Listicle)
	}

	switch dup.Verdict {
	case domain.VerdictExactDuplicate:
		add(SignalExactDuplicateNoInfo, w.ExactDuplicateNoInfo)
	case domain.VerdictUpdateCandidate:
		for _, info := range dup.NewInfo {
			if info == "version-increase" {
				add(SignalNewVersion, w.NewVersion)
				break
			}
		}
	}

	if rp.similarTo(key.CanonicalTitle, rp.accepted) {
		add(SignalSimilarToAccepted, w.SimilarToAccepted)
	}
	if rp.similarTo(key.CanonicalTitle, rp.rejected) {
		add(SignalSimilarToRejected, w.SimilarToRejected)
	}

	total := 0
	for _, s := range signals {
		total += s.Points
	}
	return total, signals
}

func (rp *RulePass) trustedSource(item domain.CandidateItem) bool {
	host := normalize.CanonicalURL(item.URL)
	if host == "" {
		return false
	}
	for _, source := range rp.cfg.TrustedSources {
		if strings.HasPrefix(host, strings.ToLower(source)) {
			return true
		}
	}
	return false
}

func (rp *RulePass) similarTo(canonicalTitle string, names []string) bool {
	if canonicalTitle == "" {
		return false
	}
	for _, name := range names {
		if strutil.Similarity(canonicalTitle, name, rp.metric) >= rp.matching.SimilarThreshold {
			return true
		}
	}
	return false
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if needle != "" && strings.Contains(text, strings.ToLower(needle)) {
			return true
		}
	}
	return false
}
