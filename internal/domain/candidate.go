package domain

import "time"

// CandidateItem is one newsletter-derived item awaiting classification.
// Immutable once normalized; identity is the source URL plus link text.
type CandidateItem struct {
	ID        string
	Title     string
	LinkText  string
	URL       string
	RawText   string
	Author    string
	Source    string
	FetchedAt time.Time
}

// Identity returns a human-locatable handle for error reports.
func (c CandidateItem) Identity() string {
	if c.ID != "" {
		return c.ID
	}
	if c.URL != "" {
		return c.URL
	}
	return c.Title
}

// NormalizedKey is the canonical comparison form derived from a candidate.
// The same logical resource always yields the same CanonicalURL regardless
// of tracking parameters or protocol.
type NormalizedKey struct {
	CanonicalURL   string
	CanonicalTitle string
}

// VaultEntry is a read-only snapshot row from one knowledge-base collection.
type VaultEntry struct {
	ID          string
	Collection  string
	Name        string
	URL         string
	Aliases     []string
	LastUpdated time.Time
}

// DuplicateVerdict classifies a candidate against the vault.
type DuplicateVerdict string

const (
	VerdictNew             DuplicateVerdict = "new"
	VerdictExactDuplicate  DuplicateVerdict = "exact_duplicate"
	VerdictUpdateCandidate DuplicateVerdict = "update_candidate"
)

// DuplicateResult carries the verdict plus the matched entry when not new.
type DuplicateResult struct {
	Verdict   DuplicateVerdict
	MatchedID string
	Matched   *VaultEntry
	// InBatch marks duplicates of another candidate in the same batch, as
	// opposed to an entry already stored in the vault. MatchedID then holds
	// the canonical candidate's identity, not a vault page ID.
	InBatch    bool
	Similarity float64
	// NewInfo lists the detected new-information signals that promoted an
	// exact match to an update candidate.
	NewInfo []string
}

// Signal is one labeled scoring signal with its fixed point weight.
type Signal struct {
	Name   string
	Points int
}

// ScoreResult is the combined outcome of the rule pass and the LLM pass.
type ScoreResult struct {
	Score             int
	Rationale         string
	Signals           []Signal
	ItemType          string
	Description       string
	SuggestedName     string
	SuggestedCategory string
	Tags              []string
	// Listicle marks roundup articles; ListicleItemType names what they
	// enumerate so an explodable listicle can be split into sub-items.
	Listicle         bool
	ListicleItemType string
	// LLMParseFailed marks items scored with the deterministic pass only
	// because the LLM response could not be parsed or the call failed.
	LLMParseFailed bool
	// ManualReview marks items whose scoring degraded badly enough that a
	// human should look before trusting the verdict.
	ManualReview bool
}

// FeedbackRecord is one reviewed digest item: what the system said vs what
// the user decided. Read-only input to the scorer's example selection.
type FeedbackRecord struct {
	ItemName      string
	ItemType      string
	URL           string
	Score         int
	SystemVerdict RouteVerdict
	UserDecision  string
	DecidedAt     time.Time
}
