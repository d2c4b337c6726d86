// Package route maps scored, deduplicated candidates to destination
// collections and advisory relation proposals.
package route

import (
	"strings"
	"time"

	"NewsletterCurator/internal/config"
	"NewsletterCurator/internal/domain"
	"NewsletterCurator/internal/vaultindex"
)

// catchAllCollection receives everything no classifier rule claims.
const catchAllCollection = "Articles & Reads"

// rule is one row of the type classifier decision table.
type rule struct {
	itemType    string
	destination string
}

// routingTable is evaluated top-to-bottom, first match wins. Notes &
// Insights is deliberately absent: that collection is manual-only.
var routingTable = []rule{
	{"python_library", "Python Libraries"},
	{"duckdb_extension", "DuckDB Extensions"},
	{"ai_tool", "TAAFT"},
	{"agent_workflow", "Overview"},
	{"model_release", "Model information"},
	{"platform_infra", "Platforms & Infrastructure"},
	{"concept_pattern", "Topics & Concepts"},
	{"book_paper", "Books & Papers"},
	{"coding_tool", "AI Agents & Coding Tools"},
	{"vibe_coding_tool", "Vibe Coding Tools"},
	{"ai_architecture", "AI Architecture Topics"},
	{"infra_reference", "Infrastructure Knowledge Base"},
	{"article", catchAllCollection},
}

// summaryMaxLen caps the Summary field fed into destination templates.
const summaryMaxLen = 200

// Router maps (DuplicateVerdict, ScoreResult) to a RoutingDecision. It
// holds only read-only state and performs no side-effecting writes: every
// output is a proposal requiring explicit user confirmation.
type Router struct {
	index      *vaultindex.Index
	thresholds config.MatchingConfig
}

// NewRouter wires the vault index used for relation proposals.
func NewRouter(index *vaultindex.Index, thresholds config.MatchingConfig) *Router {
	return &Router{index: index, thresholds: thresholds}
}

// Route produces the final decision record for one candidate.
func (r *Router) Route(item domain.CandidateItem, key domain.NormalizedKey, dup domain.DuplicateResult, score domain.ScoreResult) domain.RoutingDecision {
	decision := domain.RoutingDecision{
		Candidate: item,
		Key:       key,
		Duplicate: dup,
		Score:     score,
	}

	// Exact duplicates are rejected before any score is consulted.
	if dup.Verdict == domain.VerdictExactDuplicate {
		decision.Verdict = domain.RouteReject
		if dup.InBatch {
			decision.Reason = "duplicate within batch"
		} else {
			decision.Reason = "already in vault"
		}
		return decision
	}

	decision.Verdict = verdictFromScore(score.Score)
	decision.Destination = destinationFor(score.ItemType)
	decision.FieldValues = fieldValues(decision.Destination, item, key, score)
	decision.ProposedRelations = r.proposeRelations(key, dup)

	if dup.Verdict == domain.VerdictUpdateCandidate {
		decision.UpdateOf = dup.MatchedID
		decision.Reason = "update to existing entry " + dup.MatchedID
	}
	if score.ManualReview {
		decision.Reason = joinReason(decision.Reason, "manual review: scoring degraded")
	}

	return decision
}

// verdictFromScore applies the fixed thresholds: >=5 auto-propose, 3-4
// propose-with-review, 1-2 maybe, <=0 reject.
func verdictFromScore(score int) domain.RouteVerdict {
	switch {
	case score >= 5:
		return domain.RouteAutoPropose
	case score >= 3:
		return domain.RouteProposeWithReview
	case score >= 1:
		return domain.RouteMaybe
	default:
		return domain.RouteReject
	}
}

func destinationFor(itemType string) string {
	for _, row := range routingTable {
		if row.itemType == itemType {
			return row.destination
		}
	}
	return catchAllCollection
}

// fieldValues populates the destination's fixed template. Unknown
// destinations fall through to the generic template so nothing is dropped.
func fieldValues(destination string, item domain.CandidateItem, key domain.NormalizedKey, score domain.ScoreResult) map[string]string {
	fields := map[string]string{
		"Name": score.SuggestedName,
		"URL":  item.URL,
	}
	if fields["Name"] == "" {
		fields["Name"] = item.Title
	}
	if summary := truncate(score.Rationale, summaryMaxLen); summary != "" {
		fields["Summary"] = summary
	}
	if score.Description != "" {
		fields["Description"] = score.Description
	}
	if score.SuggestedCategory != "" {
		fields["Category"] = score.SuggestedCategory
	}
	if len(score.Tags) > 0 {
		fields["Tags"] = strings.Join(score.Tags, ", ")
	}

	switch destination {
	case "Python Libraries":
		fields["Learning Priority"] = learningPriority(score.Score)
	case "Articles & Reads":
		if item.Source != "" {
			fields["Source"] = item.Source
		}
	case "Books & Papers":
		if item.Author != "" {
			fields["Author"] = item.Author
		}
	}

	return fields
}

// proposeRelations scans the index for plausibly related entries at the
// lower relation threshold. Advisory only; the matched duplicate itself is
// excluded because it is already referenced by the verdict.
func (r *Router) proposeRelations(key domain.NormalizedKey, dup domain.DuplicateResult) []domain.RelationProposal {
	if r.index == nil {
		return nil
	}

	matches := r.index.FindSimilar(key, r.thresholds.RelationThreshold)
	proposals := make([]domain.RelationProposal, 0, len(matches))
	for _, match := range matches {
		if match.Entry.ID == dup.MatchedID {
			continue
		}
		proposals = append(proposals, domain.RelationProposal{
			TargetCollection: match.Entry.Collection,
			TargetName:       match.Entry.Name,
			TargetID:         match.Entry.ID,
			Similarity:       match.Similarity,
		})
	}
	if len(proposals) == 0 {
		return nil
	}
	return proposals
}

// Propose wraps a decision as a confirmation-pending proposal. This is the
// only path out of the router; there is no write path here.
func (r *Router) Propose(decision domain.RoutingDecision, at time.Time) domain.Proposal {
	return domain.Proposal{Decision: decision, CreatedAt: at}
}

func learningPriority(score int) string {
	switch {
	case score >= 5:
		return "High"
	case score >= 3:
		return "Medium"
	default:
		return "Low"
	}
}

// truncate caps by rune count so a multi-byte character is never split.
func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}

func joinReason(existing, extra string) string {
	if existing == "" {
		return extra
	}
	return existing + "; " + extra
}
