package smallcode

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/gasparian/smallcodes-go/common"
	"github.com/gasparian/smallcodes-go/itq"
	"github.com/gasparian/smallcodes-go/store"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is the number of elements quantized at once by a worker
const DefaultBatchSize = 500

// Config holds worker pool settings
type Config struct {
	Workers   int
	BatchSize int
	// InputBuffer is the input channel capacity; Workers*BatchSize if not set.
	// Output channel capacity is always 2*Workers.
	InputBuffer int
	// ReportInterval between sent/collected rate reports, 0 disables them
	ReportInterval time.Duration
	// CollectTimeout is the longest wait for the next result, 0 waits forever
	CollectTimeout time.Duration
	// Progress receives a progress bar of collected codes if set
	Progress io.Writer
	// ExpectedTotal is a hint for the progress bar and the result slice
	ExpectedTotal int
}

// DefaultConfig returns one worker per CPU
func DefaultConfig() Config {
	return Config{
		Workers:        runtime.NumCPU(),
		BatchSize:      DefaultBatchSize,
		ReportInterval: time.Second,
	}
}

// Dispatcher runs the pool of small-code workers
type Dispatcher struct {
	config Config
	logger *common.Logger
}

// New creates dispatcher, zero values in config are replaced with defaults
func New(config Config, logger *common.Logger) *Dispatcher {
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.InputBuffer <= 0 {
		config.InputBuffer = config.Workers * config.BatchSize
	}
	if config.ExpectedTotal < 0 {
		config.ExpectedTotal = 0
	}
	if logger == nil {
		logger = common.NopLogger()
	}
	return &Dispatcher{
		config: config,
		logger: logger,
	}
}

// Config returns the effective config
func (d *Dispatcher) Config() Config {
	return d.config
}

// Run computes small codes of all elements. It returns exactly one pair per
// element, in no particular order, or an error and no pairs at all.
func (d *Dispatcher) Run(ctx context.Context, t *itq.Transform, elems store.ElementIterator) ([]store.Pair, error) {
	pairs := make([]store.Pair, 0, d.config.ExpectedTotal)
	_, err := d.Stream(ctx, t, elems, func(p store.Pair) error {
		pairs = append(pairs, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

// Stream works like Run, but hands every collected pair to fn.
// fn is called from a single goroutine; a slow fn throttles the workers
// through the bounded output channel, an error from fn aborts the run.
// Once all pairs were handed to fn the run succeeds even if ctx is cancelled afterwards.
func (d *Dispatcher) Stream(ctx context.Context, t *itq.Transform, elems store.ElementIterator, fn func(store.Pair) error) (int, error) {
	if t == nil {
		return 0, errNilTransform
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	in := make(chan store.Element, d.config.InputBuffer)
	out := make(chan store.Pair, 2*d.config.Workers)
	fed := make(chan int, 1)

	d.logger.Info.Printf("Starting %d workers", d.config.Workers)
	for i := 0; i < d.config.Workers; i++ {
		w := &worker{
			id:        i,
			in:        in,
			out:       out,
			transform: t,
			batchSize: d.config.BatchSize,
			logger:    d.logger,
		}
		g.Go(func() error {
			return w.run(gctx)
		})
	}
	g.Go(func() error {
		return d.feed(gctx, elems, in, fed)
	})

	collected, cerr := d.collect(gctx, out, fed, fn)
	if cerr != nil {
		cancel()
	}
	werr := g.Wait()
	close(out)

	switch {
	case werr != nil && !isContextErr(werr):
		d.logger.Err.Printf("Small-codes run failed: %v", werr)
		return collected, werr
	case cerr == nil:
		// all sent elements were collected
	case cerr != nil && !isContextErr(cerr):
		d.logger.Err.Printf("Collecting small codes failed: %v", cerr)
		return collected, cerr
	case ctx.Err() != nil:
		d.logger.Warn.Printf("Small-codes run cancelled after %d codes", collected)
		return collected, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	case werr != nil || cerr != nil:
		return collected, ErrCancelled
	}
	d.logger.Info.Printf("Scanned all %d small codes", collected)
	return collected, nil
}

// feed sends all elements, then one terminal value per worker,
// and reports the number of sent elements to fed
func (d *Dispatcher) feed(ctx context.Context, elems store.ElementIterator, in chan<- store.Element, fed chan<- int) error {
	defer close(in)
	d.logger.Info.Println("Sending elements")
	rate := newRateReporter(d.logger, "Sent", d.config.ReportInterval)
	sent := 0
	for ctx.Err() == nil {
		elem, ok := elems.Next()
		if !ok {
			break
		}
		if elem == nil {
			return errNilElement
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in <- elem:
		}
		sent++
		rate.tick(sent)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := elems.Err(); err != nil {
		return fmt.Errorf("iterating elements: %w", err)
	}
	for i := 0; i < d.config.Workers; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in <- nil:
		}
	}
	d.logger.Debug.Printf("Sent %d elements and %d terminal values", sent, d.config.Workers)
	fed <- sent
	return nil
}

// collect reads pairs until the feeder is done and exactly as many pairs as
// elements were sent have been received
func (d *Dispatcher) collect(ctx context.Context, out <-chan store.Pair, fed <-chan int, fn func(store.Pair) error) (int, error) {
	d.logger.Info.Println("Collecting small codes")
	var bar *pb.ProgressBar
	if d.config.Progress != nil {
		bar = pb.New(d.config.ExpectedTotal)
		bar.SetWriter(d.config.Progress)
		bar.Start()
		defer bar.Finish()
	}
	var timer *time.Timer
	var timeout <-chan time.Time
	if d.config.CollectTimeout > 0 {
		timer = time.NewTimer(d.config.CollectTimeout)
		defer timer.Stop()
		timeout = timer.C
	}
	rate := newRateReporter(d.logger, "Collected", d.config.ReportInterval)
	total, collected := -1, 0
	for total < 0 || collected < total {
		select {
		case <-ctx.Done():
			return collected, ctx.Err()
		case <-timeout:
			return collected, fmt.Errorf("%w: %d collected, waited %v", ErrCollectTimeout, collected, d.config.CollectTimeout)
		case n := <-fed:
			total = n
			fed = nil
			if bar != nil {
				bar.SetTotal(int64(n))
			}
		case p := <-out:
			collected++
			if err := fn(p); err != nil {
				return collected, err
			}
			if bar != nil {
				bar.Increment()
			}
			rate.tick(collected)
		}
		if timer != nil {
			resetTimer(timer, d.config.CollectTimeout)
		}
	}
	return collected, nil
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// rateReporter logs throughput not more often than once per interval
type rateReporter struct {
	logger   *common.Logger
	what     string
	interval time.Duration
	start    time.Time
	last     time.Time
}

func newRateReporter(logger *common.Logger, what string, interval time.Duration) *rateReporter {
	now := time.Now()
	return &rateReporter{
		logger:   logger,
		what:     what,
		interval: interval,
		start:    now,
		last:     now,
	}
}

func (r *rateReporter) tick(total int) {
	if r.interval <= 0 {
		return
	}
	now := time.Now()
	if now.Sub(r.last) < r.interval {
		return
	}
	r.last = now
	r.logger.Debug.Printf("%s packets per second: %f, Total: %d",
		r.what, float64(total)/now.Sub(r.start).Seconds(), total)
}
