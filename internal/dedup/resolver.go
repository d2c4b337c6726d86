// Package dedup classifies candidates against the vault index.
package dedup

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"NewsletterCurator/internal/config"
	"NewsletterCurator/internal/domain"
	"NewsletterCurator/internal/vaultindex"
)

var versionExpr = regexp.MustCompile(`\bv?(\d+)\.(\d+)(?:\.\d+)?\b`)

// capabilityPhrases are the cheap text heuristics that promote an exact
// duplicate to an update candidate. No LLM involvement here.
var capabilityPhrases = []string{
	"major update",
	"new api",
	"new release",
	"now supports",
	"breaking change",
	"general availability",
	"new version",
}

// Resolver classifies normalized candidates as new, exact duplicates, or
// update candidates. Stateless apart from the read-only index, so resolving
// the same candidate against the same index is idempotent.
type Resolver struct {
	index      *vaultindex.Index
	thresholds config.MatchingConfig
}

// NewResolver wires the vault index and the fixed matching thresholds.
func NewResolver(index *vaultindex.Index, thresholds config.MatchingConfig) *Resolver {
	return &Resolver{index: index, thresholds: thresholds}
}

// Resolve classifies one candidate: exact URL match first, then a
// strong fuzzy match treated the same way, otherwise new.
func (r *Resolver) Resolve(item domain.CandidateItem, key domain.NormalizedKey) domain.DuplicateResult {
	if entry, ok := r.index.FindExact(key); ok {
		return r.classifyMatch(item, entry, 1.0)
	}

	matches := r.index.FindSimilar(key, r.thresholds.SimilarThreshold)
	if len(matches) > 0 && matches[0].Similarity >= r.thresholds.StrongThreshold {
		return r.classifyMatch(item, matches[0].Entry, matches[0].Similarity)
	}

	return domain.DuplicateResult{Verdict: domain.VerdictNew}
}

// ResolveBatch performs batch-internal dedup before vault comparison:
// candidates sharing a canonical URL collapse onto the earliest-seen one,
// which stays canonical; the rest become exact duplicates of it. Results
// are returned in input order, keyed by slice position.
func (r *Resolver) ResolveBatch(items []domain.CandidateItem, keys []domain.NormalizedKey) []domain.DuplicateResult {
	results := make([]domain.DuplicateResult, len(items))
	firstSeen := map[string]int{}

	order := make([]int, len(items))
	for i := range items {
		order[i] = i
	}
	// Earliest FetchedAt wins the canonical slot; ties keep input order.
	sort.SliceStable(order, func(a, b int) bool {
		return items[order[a]].FetchedAt.Before(items[order[b]].FetchedAt)
	})

	for _, i := range order {
		url := keys[i].CanonicalURL
		if url == "" {
			results[i] = r.Resolve(items[i], keys[i])
			continue
		}
		if first, dup := firstSeen[url]; dup {
			canonical := items[first]
			results[i] = domain.DuplicateResult{
				Verdict:    domain.VerdictExactDuplicate,
				MatchedID:  canonical.Identity(),
				InBatch:    true,
				Similarity: 1.0,
			}
			continue
		}
		firstSeen[url] = i
		results[i] = r.Resolve(items[i], keys[i])
	}

	return results
}

func (r *Resolver) classifyMatch(item domain.CandidateItem, entry domain.VaultEntry, similarity float64) domain.DuplicateResult {
	matched := entry
	result := domain.DuplicateResult{
		MatchedID:  entry.ID,
		Matched:    &matched,
		Similarity: similarity,
	}

	signals := newInfoSignals(item, entry)
	if len(signals) == 0 {
		result.Verdict = domain.VerdictExactDuplicate
		return result
	}

	result.Verdict = domain.VerdictUpdateCandidate
	result.NewInfo = signals
	return result
}

// newInfoSignals compares the candidate text against the stored entry and
// reports what looks like genuinely new information.
func newInfoSignals(item domain.CandidateItem, entry domain.VaultEntry) []string {
	var signals []string

	text := strings.ToLower(item.Title + " " + item.RawText)
	stored := strings.ToLower(entry.Name + " " + strings.Join(entry.Aliases, " "))

	if candidate, ok := highestVersion(text); ok {
		if existing, ok := highestVersion(stored); !ok || versionGreater(candidate, existing) {
			signals = append(signals, "version-increase")
		}
	}

	for _, phrase := range capabilityPhrases {
		if strings.Contains(text, phrase) && !strings.Contains(stored, phrase) {
			signals = append(signals, "capability:"+strings.ReplaceAll(phrase, " ", "-"))
		}
	}

	return signals
}

type version struct {
	major, minor int
}

func highestVersion(text string) (version, bool) {
	best := version{}
	found := false
	for _, m := range versionExpr.FindAllStringSubmatch(text, -1) {
		major, _ := strconv.Atoi(m[1])
		minor, _ := strconv.Atoi(m[2])
		v := version{major: major, minor: minor}
		if !found || versionGreater(v, best) {
			best = v
			found = true
		}
	}
	return best, found
}

func versionGreater(a, b version) bool {
	if a.major != b.major {
		return a.major > b.major
	}
	return a.minor > b.minor
}
