package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsletterCurator/internal/config"
	"NewsletterCurator/internal/domain"
	"NewsletterCurator/internal/extract"
	"NewsletterCurator/internal/ports"
)

// StrategySource implements ports.CandidateSource via registered extractor
// strategies, one per configured newsletter source.
type StrategySource struct {
	registry *extract.Registry
	sources  []config.SourceConfig
	logger   *slog.Logger
}

var _ ports.CandidateSource = (*StrategySource)(nil)

// NewStrategySource wires the extractor registry with config-defined sources.
func NewStrategySource(reg *extract.Registry, sources []config.SourceConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sources:  sources,
		logger:   log,
	}
}

// FetchBatch iterates over configured sources and executes their extractors.
func (s *StrategySource) FetchBatch(ctx context.Context, since time.Time) ([]domain.CandidateItem, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("extractor registry is not configured")
	}

	s.debug("fetch batch", "sources", len(s.sources), "since", since.Format(time.RFC3339))

	var aggregated []domain.CandidateItem
	for _, source := range s.sources {
		strategy, err := s.registry.Resolve(source.Extractor)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", source.Name, err)
		}

		req := extract.Request{
			Since:      since,
			SourceName: source.Name,
			Dir:        source.Dir,
			Options:    source.Options,
		}

		results, err := strategy.Extract(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("extract source %s: %w", source.Name, err)
		}

		for i := range results {
			if results[i].Source == "" {
				results[i].Source = source.Name
			}
		}
		s.debug("source produced candidates", "source", source.Name, "count", len(results))
		aggregated = append(aggregated, results...)
	}

	s.debug("strategy source done", "total_candidates", len(aggregated))
	return aggregated, nil
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
