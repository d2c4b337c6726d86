// Package vaultindex provides exact and fuzzy lookup over a vault snapshot.
package vaultindex

import (
	"sort"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"NewsletterCurator/internal/domain"
	"NewsletterCurator/internal/normalize"
)

// Match pairs a vault entry with its similarity to the queried key.
type Match struct {
	Entry      domain.VaultEntry
	Similarity float64
}

// Index is a pure read structure over one snapshot. Built once per run,
// never mutated afterwards, so concurrent reads need no locking.
type Index struct {
	entries []indexedEntry
	byURL   map[string]int
	byToken map[string][]int
	metric  *metrics.Levenshtein
}

type indexedEntry struct {
	entry domain.VaultEntry
	// names holds the canonical name plus canonical aliases.
	names []string
}

// New returns an empty index; call Load before querying.
func New() *Index {
	return &Index{
		byURL:   map[string]int{},
		byToken: map[string][]int{},
		metric:  metrics.NewLevenshtein(),
	}
}

// Load builds the exact URL map and the token index from the snapshot.
// Later entries with a duplicate canonical URL do not displace earlier ones.
func (ix *Index) Load(entries []domain.VaultEntry) {
	ix.entries = make([]indexedEntry, 0, len(entries))
	ix.byURL = make(map[string]int, len(entries))
	ix.byToken = map[string][]int{}

	for _, entry := range entries {
		names := make([]string, 0, 1+len(entry.Aliases))
		if canonical := normalize.CanonicalTitle(entry.Name); canonical != "" {
			names = append(names, canonical)
		}
		for _, alias := range entry.Aliases {
			if canonical := normalize.CanonicalTitle(alias); canonical != "" {
				names = append(names, canonical)
			}
		}
		if len(names) == 0 && entry.URL == "" {
			continue
		}

		idx := len(ix.entries)
		ix.entries = append(ix.entries, indexedEntry{entry: entry, names: names})

		if canonical := normalize.CanonicalURL(entry.URL); canonical != "" {
			if _, taken := ix.byURL[canonical]; !taken {
				ix.byURL[canonical] = idx
			}
		}

		seen := map[string]struct{}{}
		for _, name := range names {
			for _, token := range normalize.Tokens(name) {
				if _, ok := seen[token]; ok {
					continue
				}
				seen[token] = struct{}{}
				ix.byToken[token] = append(ix.byToken[token], idx)
			}
		}
	}
}

// Len reports the number of indexed entries.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// FindExact looks up an entry by canonical URL.
func (ix *Index) FindExact(key domain.NormalizedKey) (domain.VaultEntry, bool) {
	if key.CanonicalURL == "" {
		return domain.VaultEntry{}, false
	}
	idx, ok := ix.byURL[key.CanonicalURL]
	if !ok {
		return domain.VaultEntry{}, false
	}
	return ix.entries[idx].entry, true
}

// FindSimilar returns entries whose name (or alias) similarity to the
// canonical title clears threshold, best first. Empty when nothing clears.
func (ix *Index) FindSimilar(key domain.NormalizedKey, threshold float64) []Match {
	tokens := normalize.Tokens(key.CanonicalTitle)
	if len(tokens) == 0 {
		return nil
	}

	candidates := map[int]struct{}{}
	for _, token := range tokens {
		for _, idx := range ix.byToken[token] {
			candidates[idx] = struct{}{}
		}
	}

	query := tokenSort(key.CanonicalTitle)
	matches := make([]Match, 0, len(candidates))
	for idx := range candidates {
		best := 0.0
		for _, name := range ix.entries[idx].names {
			if sim := strutil.Similarity(query, tokenSort(name), ix.metric); sim > best {
				best = sim
			}
		}
		if best >= threshold {
			matches = append(matches, Match{Entry: ix.entries[idx].entry, Similarity: best})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Entry.Name < matches[j].Entry.Name
	})

	return matches
}

// tokenSort makes the similarity order-insensitive, mirroring a
// token-sort ratio over canonical titles.
func tokenSort(canonical string) string {
	tokens := normalize.Tokens(canonical)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
