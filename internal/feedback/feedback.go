// Package feedback turns review history into few-shot scoring examples.
package feedback

import (
	"fmt"
	"sort"
	"strings"

	"NewsletterCurator/internal/domain"
)

// Override classifies one user disagreement with the scorer.
type Override struct {
	Record domain.FeedbackRecord
	// Type is "promoted" (user accepted a reject/maybe) or "demoted"
	// (user rejected a strong/likely fit).
	Type string
}

// Overrides extracts disagreements from feedback records, most recent
// first, bounded by limit. Records where the user agreed are skipped.
func Overrides(records []domain.FeedbackRecord, limit int) []Override {
	sorted := make([]domain.FeedbackRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DecidedAt.After(sorted[j].DecidedAt)
	})

	var overrides []Override
	for _, record := range sorted {
		overrideType := classify(record)
		if overrideType == "" {
			continue
		}
		overrides = append(overrides, Override{Record: record, Type: overrideType})
		if limit > 0 && len(overrides) >= limit {
			break
		}
	}
	return overrides
}

// FormatExamples renders overrides as a prompt block for the scorer's
// system prompt. Empty when there is nothing to learn from.
func FormatExamples(overrides []Override, maxExamples int) string {
	if maxExamples > 0 && len(overrides) > maxExamples {
		overrides = overrides[:maxExamples]
	}
	if len(overrides) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Recent feedback (learn from these corrections)\n\n")
	b.WriteString("The user reviewed previous suggestions and made these corrections. Adjust your scoring to align with them:\n\n")

	for i, override := range overrides {
		record := override.Record
		name := record.ItemName
		if name == "" {
			name = record.URL
		}
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, name, orUnknown(record.ItemType))
		if record.URL != "" {
			fmt.Fprintf(&b, "   URL: %s\n", record.URL)
		}
		switch override.Type {
		case "promoted":
			fmt.Fprintf(&b, "   You scored this %s (score: %d), but the user ACCEPTED it. Score similar items higher.\n", record.SystemVerdict, record.Score)
		case "demoted":
			fmt.Fprintf(&b, "   You scored this %s (score: %d), but the user REJECTED it. Score similar items lower.\n", record.SystemVerdict, record.Score)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func classify(record domain.FeedbackRecord) string {
	positive := record.SystemVerdict == domain.RouteAutoPropose || record.SystemVerdict == domain.RouteProposeWithReview
	negative := record.SystemVerdict == domain.RouteReject || record.SystemVerdict == domain.RouteMaybe

	switch {
	case record.UserDecision == "accepted" && negative:
		return "promoted"
	case record.UserDecision == "rejected" && positive:
		return "demoted"
	default:
		return ""
	}
}

func orUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
