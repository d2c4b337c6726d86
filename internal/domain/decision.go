package domain

import "time"

// RouteVerdict is the action recommendation attached to a routed item.
type RouteVerdict string

const (
	RouteAutoPropose       RouteVerdict = "auto_propose"
	RouteProposeWithReview RouteVerdict = "propose_with_review"
	RouteMaybe             RouteVerdict = "maybe"
	RouteReject            RouteVerdict = "reject"
)

// RelationProposal suggests linking the candidate to an existing vault
// entry. Always advisory; the core never creates relations itself.
type RelationProposal struct {
	TargetCollection string
	TargetName       string
	TargetID         string
	Similarity       float64
}

// RoutingDecision is the pipeline's final output for one candidate.
// It is a proposal record only: everything in it requires explicit user
// confirmation before a downstream collaborator may act on it.
type RoutingDecision struct {
	Candidate         CandidateItem
	Key               NormalizedKey
	Duplicate         DuplicateResult
	Score             ScoreResult
	Verdict           RouteVerdict
	Destination       string
	FieldValues       map[string]string
	ProposedRelations []RelationProposal
	Reason            string
	// UpdateOf holds the vault page ID when the decision proposes updating
	// an existing entry instead of creating a new one.
	UpdateOf string
}

// Proposal wraps a RoutingDecision pending user confirmation. The router
// and pipeline only ever produce Proposal values.
type Proposal struct {
	Decision  RoutingDecision
	CreatedAt time.Time
}

// Write is an approved instruction for the downstream vault writer. There
// is no constructor other than Proposal.Approve, so no code path inside
// the core can escalate a proposal into a write without a user decision.
type Write struct {
	decision   RoutingDecision
	approvedBy string
	approvedAt time.Time
}

// Approve converts a proposal into an executable write on behalf of the
// named reviewer.
func (p Proposal) Approve(reviewer string, at time.Time) Write {
	return Write{decision: p.Decision, approvedBy: reviewer, approvedAt: at}
}

// Decision exposes the underlying routing decision of an approved write.
func (w Write) Decision() RoutingDecision { return w.decision }

// ApprovedBy reports who confirmed the write.
func (w Write) ApprovedBy() string { return w.approvedBy }

// ApprovedAt reports when the write was confirmed.
func (w Write) ApprovedAt() time.Time { return w.approvedAt }

// Run terminal states recorded in the digest store.
const (
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// RunStats summarizes one pipeline run for the digest store and notifier.
type RunStats struct {
	RunID          string
	Status         string
	StartedAt      time.Time
	FinishedAt     time.Time
	ItemsExtracted int
	ItemsInvalid   int
	ItemsScored    int
	ByVerdict      map[RouteVerdict]int
	ByDestination  map[string]int
}
