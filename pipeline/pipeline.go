package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/gasparian/smallcodes-go/common"
	"github.com/gasparian/smallcodes-go/smallcode"
	"github.com/gasparian/smallcodes-go/store"
)

// Config holds pipeline settings
type Config struct {
	Dispatcher smallcode.Config
	// SkipIndexed drops identifiers the sink already holds,
	// works only with sinks implementing store.IndexedChecker
	SkipIndexed bool
}

// Stats describes a finished run
type Stats struct {
	Identifiers int
	Skipped     int
	Coded       int
	Elapsed     time.Duration
}

// Pipeline loads identifiers, elements and the transform,
// computes small codes and hands them to the index sink
type Pipeline struct {
	config   Config
	ids      store.IdentifierSource
	elements store.ElementStore
	loader   store.TransformLoader
	sink     store.IndexSink
	logger   *common.Logger
}

// New creates pipeline over the given collaborators
func New(
	config Config,
	ids store.IdentifierSource,
	elements store.ElementStore,
	loader store.TransformLoader,
	sink store.IndexSink,
	logger *common.Logger,
) *Pipeline {
	if logger == nil {
		logger = common.NopLogger()
	}
	return &Pipeline{
		config:   config,
		ids:      ids,
		elements: elements,
		loader:   loader,
		sink:     sink,
		logger:   logger,
	}
}

// Run executes all steps one after another, the first failing step aborts the run
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	stats := Stats{}

	p.logger.Info.Println("Loading descriptor UUIDs")
	ids, err := p.ids.Load()
	if err != nil {
		return stats, fmt.Errorf("loading identifiers: %w", err)
	}
	stats.Identifiers = len(ids)

	if p.config.SkipIndexed {
		ids = p.skipIndexed(ids)
		stats.Skipped = stats.Identifiers - len(ids)
	}
	if len(ids) == 0 {
		p.logger.Info.Println("Nothing to index")
		stats.Elapsed = time.Since(start)
		return stats, nil
	}

	p.logger.Info.Println("Loading ITQ components")
	transform, err := p.loader.Load()
	if err != nil {
		return stats, fmt.Errorf("loading transform: %w", err)
	}

	p.logger.Info.Printf("Making small-codes for %d descriptors", len(ids))
	dconfig := p.config.Dispatcher
	dconfig.ExpectedTotal = len(ids)
	pairs, err := smallcode.New(dconfig, p.logger).Run(ctx, transform, p.elements.FetchAll(ids))
	if err != nil {
		return stats, fmt.Errorf("making small-codes: %w", err)
	}
	stats.Coded = len(pairs)

	p.logger.Info.Println("Adding small codes")
	if err := p.sink.AddMany(pairs); err != nil {
		return stats, fmt.Errorf("adding small codes: %w", err)
	}
	stats.Elapsed = time.Since(start)
	p.logger.Info.Printf("Indexed %d descriptors in %v", stats.Coded, stats.Elapsed)
	return stats, nil
}

func (p *Pipeline) skipIndexed(ids []string) []string {
	checker, ok := p.sink.(store.IndexedChecker)
	if !ok {
		p.logger.Warn.Println("Index sink can't report indexed descriptors, nothing skipped")
		return ids
	}
	filtered := make([]string, 0, len(ids))
	for _, id := range ids {
		if !checker.Contains(id) {
			filtered = append(filtered, id)
		}
	}
	return filtered
}
