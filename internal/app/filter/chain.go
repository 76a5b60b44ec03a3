package filter

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunebox/internal/domain/track"
	"github.com/osa030/tunebox/internal/infra/config"
)

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain(filters ...Filter) *Chain {
	return &Chain{
		filters: filters,
	}
}

// NewChainFromConfig builds a chain of the enabled filters, in name order.
func NewChainFromConfig(cfg *config.Config) (*Chain, error) {
	names := make([]string, 0, len(cfg.Filters))
	for name := range cfg.Filters {
		names = append(names, name)
	}
	sort.Strings(names)

	c := NewChain()
	for _, name := range names {
		if !cfg.IsFilterEnabled(name) {
			continue
		}
		factory, ok := registry[name]
		if !ok {
			return nil, errors.Newf("unknown filter: %s", name)
		}
		f := factory()
		if err := f.ValidateConfig(cfg.Filters[name].Settings); err != nil {
			return nil, errors.Wrapf(err, "filter %s", name)
		}
		zlog.Info().Msgf("filter enabled: %s", name)
		c.Add(f)
	}
	return c, nil
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the track. A nil chain accepts everything.
func (c *Chain) Execute(ctx context.Context, t track.Track) Result {
	if c == nil {
		return Accept()
	}
	for _, f := range c.filters {
		result := f.Check(ctx, t)
		if !result.Accepted {
			zlog.Debug().Msgf("filter %s rejected track %s: %s", f.Name(), t.ID, result.Code)
			return result
		}
	}
	return Accept()
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}
