// Package fetch pages collection and item listings from a Source into the
// library store, suppressing results from superseded runs.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
	"github.com/shelfkeeper/shelfkeeper/internal/logger"
)

const (
	defaultPageSize = 100
	defaultFreshFor = 5 * time.Minute
	defaultRPS      = 10.0
	defaultBurst    = 5
)

// errSuperseded stops a sweep whose run is no longer current.
var errSuperseded = errors.New("fetch: run superseded")

// PageRequest selects one page of a listing.
type PageRequest struct {
	Cursor    string
	Limit     int
	Sort      string
	Direction string
}

// Page is one page of a listing.
type Page[T any] struct {
	Items      []T
	NextCursor string
	HasMore    bool
	Total      int
}

// Source serves the paginated listings the orchestrator sweeps.
type Source interface {
	ListCollections(ctx context.Context, req PageRequest) (Page[domain.CollectionWithItems], error)
	ListUnassignedItems(ctx context.Context, req PageRequest) (Page[domain.Item], error)
}

// Sink receives listings. Pages are merged as they arrive; the full listing
// replaces resident data only once a sweep has read every page.
// *library.Store implements it.
type Sink interface {
	MergeCollections(page []domain.CollectionWithItems)
	ReplaceCollections(list []domain.CollectionWithItems)
	MergeUnassignedItems(page []domain.Item)
	ReplaceUnassignedItems(list []domain.Item)
}

// Config tunes paging, pacing and freshness.
type Config struct {
	PageSize int
	// FreshFor is how long a completed load satisfies unforced refreshes.
	FreshFor time.Duration
	// RequestsPerSecond paces outbound page requests; zero or less disables pacing.
	RequestsPerSecond float64
	Burst             int
	// Sort and Direction are passed through to the collection listing.
	Sort      string
	Direction string
}

// DefaultConfig returns the configuration used by the CLI.
func DefaultConfig() Config {
	return Config{
		PageSize:          defaultPageSize,
		FreshFor:          defaultFreshFor,
		RequestsPerSecond: defaultRPS,
		Burst:             defaultBurst,
		Sort:              "title",
		Direction:         "asc",
	}
}

// Result describes a finished Refresh call.
type Result struct {
	RunID uint64
	// Skipped is set when resident data was fresh and nothing was fetched.
	Skipped bool
	// Superseded is set when a newer run started before this one finished.
	Superseded  bool
	Collections int
	Unassigned  int
	Pages       int
}

// Orchestrator sweeps both listings into a Sink. Every Refresh starts a new
// run; a page is committed only while its run is the latest, checked under
// the same lock as the commit.
type Orchestrator struct {
	source  Source
	sink    Sink
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger
	now     func() time.Time

	runID atomic.Uint64

	// commitMu serializes run-id checks with commits and freshness stamps.
	commitMu   sync.Mutex
	lastLoaded time.Time
}

// New creates an orchestrator. A nil logger discards output.
func New(source Source, sink Sink, cfg Config, log *slog.Logger) *Orchestrator {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Orchestrator{
		source:  source,
		sink:    sink,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		logger:  logger.OrDiscard(log),
		now:     time.Now,
	}
}

// RunID returns the identifier of the latest run. It is zero before the first fetch.
func (o *Orchestrator) RunID() uint64 {
	return o.runID.Load()
}

// LastLoaded returns when the last completed run finished, or the zero time.
func (o *Orchestrator) LastLoaded() time.Time {
	o.commitMu.Lock()
	defer o.commitMu.Unlock()
	return o.lastLoaded
}

// Invalidate forces the next unforced Refresh to fetch.
func (o *Orchestrator) Invalidate() {
	o.commitMu.Lock()
	defer o.commitMu.Unlock()
	o.lastLoaded = time.Time{}
}

// Fresh reports whether resident data is recent enough to skip a refresh.
func (o *Orchestrator) Fresh() bool {
	o.commitMu.Lock()
	defer o.commitMu.Unlock()
	return o.freshLocked()
}

func (o *Orchestrator) freshLocked() bool {
	return !o.lastLoaded.IsZero() && o.cfg.FreshFor > 0 && o.now().Sub(o.lastLoaded) < o.cfg.FreshFor
}

// Refresh sweeps both listings, merging each page as it arrives and pruning
// stale entries after the last page. A sweep that fails part way leaves
// the merged pages and everything resident before it in place. Refresh is
// skipped when data is fresh unless force is set. A run that is
// superseded stops quietly and reports Superseded; upstream errors are
// returned wrapped.
func (o *Orchestrator) Refresh(ctx context.Context, force bool) (Result, error) {
	if !force && o.Fresh() {
		o.logger.Debug("refresh skipped, data is fresh", "last_loaded", o.LastLoaded())
		return Result{RunID: o.RunID(), Skipped: true}, nil
	}

	run := o.runID.Add(1)
	res := Result{RunID: run}
	var pages atomic.Int64

	o.logger.Debug("refresh started", "run_id", run, "forced", force)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := sweep(gctx, o, run, &pages, o.source.ListCollections, o.sink.MergeCollections, o.sink.ReplaceCollections)
		res.Collections = n
		if err != nil {
			return fmt.Errorf("list collections: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		n, err := sweep(gctx, o, run, &pages, o.source.ListUnassignedItems, o.sink.MergeUnassignedItems, o.sink.ReplaceUnassignedItems)
		res.Unassigned = n
		if err != nil {
			return fmt.Errorf("list unassigned items: %w", err)
		}
		return nil
	})
	err := g.Wait()
	res.Pages = int(pages.Load())

	o.commitMu.Lock()
	defer o.commitMu.Unlock()

	if o.runID.Load() != run || errors.Is(err, errSuperseded) {
		o.logger.Debug("refresh superseded", "run_id", run, "latest", o.runID.Load())
		res.Superseded = true
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("refresh run %d: %w", run, err)
	}

	o.lastLoaded = o.now()
	o.logger.Debug("refresh completed",
		"run_id", run,
		"collections", res.Collections,
		"unassigned", res.Unassigned,
		"pages", res.Pages)
	return res, nil
}

// sweep pages through one listing while run is current. Every page but the
// last is merged; the last commits the whole accumulated listing through
// replace. It returns the number of items received.
func sweep[T any](
	ctx context.Context,
	o *Orchestrator,
	run uint64,
	pages *atomic.Int64,
	list func(context.Context, PageRequest) (Page[T], error),
	merge, replace func([]T),
) (int, error) {
	var acc []T
	req := PageRequest{
		Limit:     o.cfg.PageSize,
		Sort:      o.cfg.Sort,
		Direction: o.cfg.Direction,
	}

	for {
		if o.runID.Load() != run {
			return len(acc), errSuperseded
		}
		if err := o.limiter.Wait(ctx); err != nil {
			return len(acc), fmt.Errorf("rate limit wait: %w", err)
		}

		page, err := list(ctx, req)
		if err != nil {
			return len(acc), err
		}
		pages.Add(1)
		acc = append(acc, page.Items...)

		last := !page.HasMore || page.NextCursor == "" || page.NextCursor == req.Cursor
		commit := func() { merge(page.Items) }
		if last {
			commit = func() { replace(acc) }
		}
		if !o.commitIfCurrent(run, commit) {
			return len(acc), errSuperseded
		}

		if last {
			return len(acc), nil
		}
		req.Cursor = page.NextCursor
	}
}

// commitIfCurrent runs commit only if run is still the latest.
func (o *Orchestrator) commitIfCurrent(run uint64, commit func()) bool {
	o.commitMu.Lock()
	defer o.commitMu.Unlock()

	if o.runID.Load() != run {
		return false
	}
	commit()
	return true
}
