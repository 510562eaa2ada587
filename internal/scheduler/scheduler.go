package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stockgen/internal/pricing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SymbolSource provides the symbols to generate prices for on each tick.
type SymbolSource interface {
	GetAll() []string
}

// Reconciler is the store stage of the pipeline.
type Reconciler interface {
	Reconcile(ctx context.Context, symbol string, price decimal.Decimal, observedAt time.Time) (*pricing.PriceRecord, error)
}

// Coordinator is the publish stage of the pipeline.
type Coordinator interface {
	PublishOne(ctx context.Context, rec *pricing.PriceRecord) pricing.Outcome
}

// Observer receives per-symbol outcomes and tick timings, e.g. for metrics.
type Observer interface {
	ObserveOutcome(out pricing.Outcome)
	ObserveTick(duration time.Duration, symbols int)
}

// Config holds scheduler configuration.
type Config struct {
	Interval    time.Duration // time between ticks (default: 5s)
	Concurrency int           // symbols processed at once within a tick (default: 1)
	OpTimeout   time.Duration // per store/publish call (default: 2s)
	RunOnStart  bool          // fire a tick as soon as Start is called
}

// DefaultConfig returns the defaults listed on Config.
func DefaultConfig() Config {
	return Config{
		Interval:    5 * time.Second,
		Concurrency: 1,
		OpTimeout:   2 * time.Second,
	}
}

// TickReport summarizes one tick.
type TickReport struct {
	Started  time.Time
	Duration time.Duration
	Outcomes []pricing.Outcome
}

// Published counts symbols that were stored and published.
func (r TickReport) Published() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Failed counts symbols that failed at either stage.
func (r TickReport) Failed() int { return len(r.Outcomes) - r.Published() }

// Scheduler fires a generation tick on a fixed interval. Each tick produces one
// synthetic price per symbol and drives it through reconcile then publish.
// A failing symbol never stops the others or the next tick.
type Scheduler struct {
	cfg         Config
	symbols     SymbolSource
	generator   *PriceGenerator
	reconciler  Reconciler
	coordinator Coordinator
	clock       Clock
	observer    Observer
	logger      *zap.Logger

	tickMu sync.Mutex // at most one tick in flight

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

func WithClock(c Clock) Option { return func(s *Scheduler) { s.clock = c } }

func WithObserver(o Observer) Option { return func(s *Scheduler) { s.observer = o } }

func New(cfg Config, symbols SymbolSource, generator *PriceGenerator, reconciler Reconciler,
	coordinator Coordinator, logger *zap.Logger, opts ...Option) *Scheduler {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = def.OpTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Scheduler{
		cfg:         cfg,
		symbols:     symbols,
		generator:   generator,
		reconciler:  reconciler,
		coordinator: coordinator,
		clock:       RealClock{},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the timer loop. It returns an error if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return fmt.Errorf("scheduler already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(runCtx)

	s.logger.Info("generation scheduler started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Strings("symbols", s.symbols.GetAll()),
		zap.Int("concurrency", s.cfg.Concurrency),
	)
	return nil
}

// Stop cancels the loop and waits for an in-flight tick to finish the symbol
// it is on, or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("generation scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the loop and blocks until ctx is cancelled and the loop exits.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Stop(context.Background())
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	if s.cfg.RunOnStart {
		s.Tick(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// time.Ticker drops ticks while we are busy, so a slow tick
			// delays the next one instead of queueing
			s.Tick(ctx)
		}
	}
}

// Tick runs one generation cycle over every configured symbol and never fails.
// Once ctx is cancelled no further symbols are started; the one in progress
// runs to completion.
func (s *Scheduler) Tick(ctx context.Context) TickReport {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	symbols := s.symbols.GetAll()
	report := TickReport{
		Started:  s.clock.Now(),
		Outcomes: make([]pricing.Outcome, 0, len(symbols)),
	}
	start := time.Now()

	if s.cfg.Concurrency == 1 {
		for _, symbol := range symbols {
			if ctx.Err() != nil {
				break
			}
			report.Outcomes = append(report.Outcomes, s.processSymbol(ctx, symbol))
		}
	} else {
		report.Outcomes = s.processParallel(ctx, symbols)
	}

	report.Duration = time.Since(start)
	if s.observer != nil {
		s.observer.ObserveTick(report.Duration, len(report.Outcomes))
	}

	s.logger.Info("generation tick complete",
		zap.Int("symbols", len(report.Outcomes)),
		zap.Int("published", report.Published()),
		zap.Int("failed", report.Failed()),
		zap.Duration("duration", report.Duration),
	)
	return report
}

// processParallel keeps outcomes in symbol order; skipped symbols (after
// cancellation) are left out.
func (s *Scheduler) processParallel(ctx context.Context, symbols []string) []pricing.Outcome {
	results := make([]*pricing.Outcome, len(symbols))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}
		// Go blocks until a slot is free
		g.Go(func() error {
			out := s.processSymbol(ctx, symbol)
			results[i] = &out
			return nil
		})
	}
	_ = g.Wait()

	out := make([]pricing.Outcome, 0, len(symbols))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// processSymbol reconciles then publishes one symbol, converting every error
// and panic into an Outcome.
func (s *Scheduler) processSymbol(parent context.Context, symbol string) (out pricing.Outcome) {
	// store and publish calls are not interrupted by shutdown
	base := context.WithoutCancel(parent)
	price := s.generator.Next()
	stage := pricing.StoreFailed

	defer func() {
		if p := recover(); p != nil {
			out = pricing.Outcome{Symbol: symbol, Kind: stage, Err: fmt.Errorf("panic while processing %s: %v", symbol, p)}
		}
		s.record(out, price)
	}()

	ctx, cancel := context.WithTimeout(base, s.cfg.OpTimeout)
	rec, err := s.reconciler.Reconcile(ctx, symbol, price, s.clock.Now())
	cancel()
	if err != nil {
		return pricing.StoreFailure(symbol, err)
	}

	stage = pricing.PublishFailed
	ctx, cancel = context.WithTimeout(base, s.cfg.OpTimeout)
	defer cancel()
	return s.coordinator.PublishOne(ctx, rec)
}

func (s *Scheduler) record(out pricing.Outcome, price decimal.Decimal) {
	if s.observer != nil {
		s.observer.ObserveOutcome(out)
	}

	fields := []zap.Field{
		zap.String("symbol", out.Symbol),
		zap.String("price", price.String()),
		zap.String("outcome", out.Kind.String()),
	}
	if out.Err != nil {
		s.logger.Warn("failed to process symbol", append(fields, zap.Error(out.Err))...)
		return
	}
	if out.Record != nil {
		fields = append(fields, zap.Uint("id", out.Record.ID))
	}
	s.logger.Info("generated stock price", fields...)
}
