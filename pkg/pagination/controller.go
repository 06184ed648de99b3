package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/scroll-pager/pkg/logging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Controller accumulates pages of items as a viewport is scrolled towards its end.
// All methods are safe for concurrent use.
type Controller[T Item] struct {
	id      string
	fetcher PageFetcher[T]
	config  Config[T]
	logger  zerolog.Logger

	// ctx is cancelled by Close and bounds every page request.
	ctx    context.Context
	cancel context.CancelFunc

	// bindMu serializes Attach, Detach and Close.
	bindMu sync.Mutex

	mu           sync.Mutex
	items        []T
	newlyLoaded  []T
	loading      bool
	page         int
	version      uint64
	bootstrapped bool
	closed       bool
	viewport     Viewport
	listener     *scrollListener[T]

	// pending counts started requests whose fetch goroutine has not finished.
	// idle is broadcast on c.mu when it drops to zero.
	pending  int
	idle     *sync.Cond
	notifier notifier[T]
}

// New creates a new controller. Nothing is loaded until Attach or RequestNextPage.
func New[T Item](cfg Config[T]) (*Controller[T], error) {
	if cfg.Fetcher == nil {
		return nil, ErrFetcherRequired
	}
	cfg = cfg.withDefaults()

	id := uuid.NewString()

	var logger zerolog.Logger
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("controller_id", id).Logger()
	} else {
		logger = logging.NewLogger("pagination").With().Str("controller_id", id).Logger()
	}

	ctx, cancel := context.WithCancel(context.Background())

	items := make([]T, len(cfg.InitialItems))
	copy(items, cfg.InitialItems)

	c := &Controller[T]{
		id:      id,
		fetcher: cfg.Fetcher,
		config:  cfg,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		items:   items,
		page:    1,
	}
	c.idle = sync.NewCond(&c.mu)
	return c, nil
}

// ID returns the controller instance id used in logs.
func (c *Controller[T]) ID() string {
	return c.id
}

// State returns a snapshot of the current state.
func (c *Controller[T]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Loading reports whether a page request is outstanding.
func (c *Controller[T]) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Subscribe registers fn to receive a snapshot after every state change.
// Snapshots are delivered in the order the changes happened. The returned
// function removes the subscription.
func (c *Controller[T]) Subscribe(fn func(State[T])) func() {
	return c.notifier.subscribe(fn)
}

// RequestNextPage loads the next page and blocks until it has been applied.
// It returns false without side effects if a request is already outstanding,
// the failure policy suppresses it or the controller is closed. Fetch failures
// are logged and reported to OnFetchError, never returned.
func (c *Controller[T]) RequestNextPage(ctx context.Context) bool {
	page, ok := c.begin()
	if !ok {
		return false
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.ctx, cancel)
	defer func() {
		stop()
		cancel()
	}()

	c.fetch(fetchCtx, page)
	return true
}

// EvaluateScrollPosition requests the next page in the background when the
// viewport is within ThresholdPixels of the end of its content and no request
// is outstanding. It returns true if a request was started.
func (c *Controller[T]) EvaluateScrollPosition(m Metrics) bool {
	loading := c.Loading()
	distance := m.DistanceToBottom()

	if !ShouldLoadMore(m, c.config.ThresholdPixels, loading) {
		decision := "skip_distance"
		if loading {
			decision = "skip_loading"
		}
		scrollEventsTotal.WithLabelValues(decision).Inc()
		c.logger.Debug().
			Float64("distance", distance).
			Bool("loading", loading).
			Msg("Scroll evaluated - not loading")
		return false
	}

	scrollEventsTotal.WithLabelValues("load").Inc()
	c.logger.Debug().
		Float64("distance", distance).
		Int("threshold", c.config.ThresholdPixels).
		Msg("Scroll near bottom - requesting next page")

	return c.requestNextPageAsync()
}

// Attach binds the controller to vp and subscribes to its scroll signal,
// replacing any earlier binding. A nil vp only releases the earlier binding.
// The first Attach loads page 1 in the background when no initial items were
// configured; later calls never do.
func (c *Controller[T]) Attach(vp Viewport) error {
	c.bindMu.Lock()
	defer c.bindMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	oldViewport, oldListener := c.viewport, c.listener
	c.viewport, c.listener = nil, nil

	var listener *scrollListener[T]
	if vp != nil {
		listener = &scrollListener[T]{c: c}
		c.viewport, c.listener = vp, listener
	}

	bootstrap := !c.bootstrapped && len(c.config.InitialItems) == 0
	c.bootstrapped = true
	c.mu.Unlock()

	if oldViewport != nil {
		oldViewport.RemoveScrollListener(oldListener)
	}
	if vp != nil {
		vp.AddScrollListener(listener)
		c.logger.Debug().Msg("Viewport attached")
	}

	if bootstrap {
		c.logger.Debug().Msg("No initial items - loading first page")
		c.requestNextPageAsync()
	}

	return nil
}

// Detach removes the scroll subscription from the bound viewport, if any.
func (c *Controller[T]) Detach() {
	c.bindMu.Lock()
	defer c.bindMu.Unlock()
	c.detachLocked()
}

func (c *Controller[T]) detachLocked() {
	c.mu.Lock()
	vp, listener := c.viewport, c.listener
	c.viewport, c.listener = nil, nil
	c.mu.Unlock()

	if vp != nil {
		vp.RemoveScrollListener(listener)
		c.logger.Debug().Msg("Viewport detached")
	}
}

// WaitIdle blocks until no page request is outstanding. A request started
// concurrently with WaitIdle is either waited for or starts after it returns.
func (c *Controller[T]) WaitIdle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pending > 0 {
		c.idle.Wait()
	}
}

// Close detaches the viewport and cancels any outstanding request.
// An outstanding request is abandoned: Loading turns false immediately and
// its result is dropped when it arrives.
func (c *Controller[T]) Close() error {
	c.bindMu.Lock()
	defer c.bindMu.Unlock()

	c.detachLocked()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	abandoned := c.loading
	if abandoned {
		c.loading = false
		c.changedLocked()
	}
	c.mu.Unlock()
	c.notifier.drain()

	c.cancel()
	if abandoned {
		c.logger.Debug().Msg("Outstanding page request abandoned")
	}
	c.logger.Debug().Msg("Controller closed")
	return nil
}

// requestNextPageAsync marks the controller loading before returning and runs
// the request on its own goroutine.
func (c *Controller[T]) requestNextPageAsync() bool {
	page, ok := c.begin()
	if !ok {
		return false
	}
	go c.fetch(c.ctx, page)
	return true
}

// begin is the single entry point for starting a page request. Checking and
// setting the loading flag happen under one lock acquisition.
func (c *Controller[T]) begin() (int, bool) {
	c.mu.Lock()
	if c.closed || c.loading {
		c.mu.Unlock()
		return 0, false
	}

	if c.config.FailurePolicy != nil && !c.config.FailurePolicy.Allow(time.Now()) {
		page := c.page
		c.mu.Unlock()
		fetchSuppressedTotal.Inc()
		c.logger.Debug().Int("page", page).Msg("Page request suppressed by failure policy")
		return 0, false
	}

	c.loading = true
	page := c.page
	c.pending++
	c.changedLocked()
	c.mu.Unlock()

	c.notifier.drain()
	return page, true
}

// fetch runs one page request and applies its result.
func (c *Controller[T]) fetch(ctx context.Context, page int) {
	defer c.finish()

	perPage := c.config.ItemsPerPage
	c.logger.Debug().
		Int("page", page).
		Int("per_page", perPage).
		Msg("Fetching page")

	start := time.Now()
	items, err := c.callFetcher(ctx, page, perPage)
	duration := time.Since(start)
	pageFetchDuration.Observe(duration.Seconds())

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.logger.Debug().
			Int("page", page).
			Msg("Discarding page result for closed controller")
		return
	}

	if err != nil {
		if c.config.FailurePolicy != nil {
			c.config.FailurePolicy.RecordFailure(time.Now())
		}
		c.loading = false
		c.changedLocked()
		c.mu.Unlock()
		c.notifier.drain()

		fetchErr := &FetchError{Page: page, PerPage: perPage, Err: err}
		pageFetchesTotal.WithLabelValues("failure").Inc()
		c.logger.Warn().
			Err(err).
			Int("page", page).
			Int("per_page", perPage).
			Dur("duration", duration).
			Msg("Page fetch failed")

		if c.config.OnFetchError != nil {
			c.config.OnFetchError(fetchErr)
		}
		return
	}

	batch := make([]T, len(items))
	copy(batch, items)

	c.items = append(c.items, batch...)
	c.newlyLoaded = batch
	c.page++
	if c.config.FailurePolicy != nil {
		c.config.FailurePolicy.RecordSuccess()
	}
	c.loading = false
	total := len(c.items)
	c.changedLocked()
	c.mu.Unlock()
	c.notifier.drain()

	pageFetchesTotal.WithLabelValues("success").Inc()
	itemsLoadedTotal.Add(float64(len(batch)))
	c.logger.Info().
		Int("page", page).
		Int("items", len(batch)).
		Int("total_items", total).
		Dur("duration", duration).
		Msg("Page appended")
}

// finish marks one started request as done and wakes WaitIdle callers.
func (c *Controller[T]) finish() {
	c.mu.Lock()
	c.pending--
	if c.pending == 0 {
		c.idle.Broadcast()
	}
	c.mu.Unlock()
}

// callFetcher invokes the fetcher, converting a panic into an error.
func (c *Controller[T]) callFetcher(ctx context.Context, page, perPage int) (items []T, err error) {
	if c.config.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.FetchTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			items = nil
			err = fmt.Errorf("%w: %v", ErrFetcherPanic, r)
		}
	}()

	return c.fetcher.FetchPage(ctx, page, perPage)
}

// changedLocked bumps the version and queues a snapshot for subscribers.
// c.mu must be held.
func (c *Controller[T]) changedLocked() {
	c.version++
	if c.notifier.active() {
		c.notifier.enqueue(c.snapshotLocked())
	}
}

func (c *Controller[T]) snapshotLocked() State[T] {
	items := make([]T, len(c.items))
	copy(items, c.items)
	newlyLoaded := make([]T, len(c.newlyLoaded))
	copy(newlyLoaded, c.newlyLoaded)

	return State[T]{
		Items:       items,
		NewlyLoaded: newlyLoaded,
		Loading:     c.loading,
		Page:        c.page,
		Version:     c.version,
	}
}

// scrollListener routes scroll signals of the bound viewport to the controller.
type scrollListener[T Item] struct {
	c *Controller[T]
}

// OnScroll implements ScrollListener.
func (l *scrollListener[T]) OnScroll() {
	c := l.c

	c.mu.Lock()
	if c.listener != l || c.viewport == nil {
		c.mu.Unlock()
		return
	}
	vp := c.viewport
	c.mu.Unlock()

	c.EvaluateScrollPosition(vp.ScrollMetrics())
}
