package ports

import (
	"context"
	"errors"
	"time"

	"NewsletterCurator/internal/domain"
)

// ErrBadJudgeResponse marks model output that could not be parsed into the
// expected structure, as opposed to transport-level call failures.
var ErrBadJudgeResponse = errors.New("unparseable judge response")

// CandidateSource supplies extracted newsletter items for one cycle.
type CandidateSource interface {
	FetchBatch(ctx context.Context, since time.Time) ([]domain.CandidateItem, error)
}

// VaultSource materializes the knowledge-base snapshot at run start.
type VaultSource interface {
	Snapshot(ctx context.Context) ([]domain.VaultEntry, error)
}

// JudgeRequest carries everything one LLM judgment call needs.
type JudgeRequest struct {
	SystemPrompt string
	UserPrompt   string
}

// JudgeResponse is the structured verdict parsed from the model output.
type JudgeResponse struct {
	Score             int      `json:"score"`
	Reasoning         string   `json:"reasoning"`
	Signals           []string `json:"signals"`
	ItemType          string   `json:"item_type"`
	Description       string   `json:"description"`
	SuggestedName     string   `json:"suggested_name"`
	SuggestedCategory string   `json:"suggested_category"`
	Tags              []string `json:"tags"`
	IsListicle        bool     `json:"is_listicle"`
	// ListicleItemType names what kind of items the listicle enumerates,
	// e.g. "python_library" for "10 libraries you should know".
	ListicleItemType string `json:"listicle_item_type"`
}

// Judge performs the single external LLM judgment call per candidate.
type Judge interface {
	Judge(ctx context.Context, req JudgeRequest) (JudgeResponse, error)
}

// SubItem is one concrete tool or library extracted from a listicle.
type SubItem struct {
	SuggestedName     string   `json:"suggested_name"`
	Description       string   `json:"description"`
	SuggestedCategory string   `json:"suggested_category"`
	Tags              []string `json:"tags"`
	Score             int      `json:"score"`
	Reasoning         string   `json:"reasoning"`
}

// ListExtractor performs the second LLM call that breaks an explodable
// listicle into standalone sub-items.
type ListExtractor interface {
	ExtractItems(ctx context.Context, req JudgeRequest) ([]SubItem, error)
}

// DecisionStore persists runs, proposals, and review feedback.
type DecisionStore interface {
	BeginRun(ctx context.Context, startedAt time.Time) (string, error)
	SaveProposal(ctx context.Context, runID string, proposal domain.Proposal) error
	FinishRun(ctx context.Context, stats domain.RunStats) error
	RecentFeedback(ctx context.Context, limit int) ([]domain.FeedbackRecord, error)
}

// Notifier publishes the run summary to the user's channel.
type Notifier interface {
	PublishSummary(ctx context.Context, summary string) error
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
