package smallcode

import (
	"context"
	"fmt"

	"github.com/gasparian/smallcodes-go/common"
	"github.com/gasparian/smallcodes-go/itq"
	"github.com/gasparian/smallcodes-go/store"
)

// worker pulls elements from in, computes codes batch by batch and pushes pairs to out.
// A nil element (or closed in) is the terminal value.
type worker struct {
	id        int
	in        <-chan store.Element
	out       chan<- store.Pair
	transform *itq.Transform
	batchSize int
	logger    *common.Logger
}

func (w *worker) run(ctx context.Context) (err error) {
	w.logger.Debug.Printf("[worker %d] Starting", w.id)
	defer func() {
		if r := recover(); r != nil {
			err = &WorkerError{Worker: w.id, Err: fmt.Errorf("panic: %v", r)}
		}
		w.logger.Debug.Printf("[worker %d] Stopped", w.id)
	}()

	batch := make([]store.Element, 0, w.batchSize)
	for {
		var (
			elem   store.Element
			opened bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case elem, opened = <-w.in:
		}
		if !opened || elem == nil {
			return w.flush(ctx, batch)
		}
		batch = append(batch, elem)
		if len(batch) >= w.batchSize {
			if err := w.flush(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
}

// flush quantizes the batch and sends pairs in the batch order
func (w *worker) flush(ctx context.Context, batch []store.Element) error {
	if len(batch) == 0 {
		return nil
	}
	w.logger.Debug.Printf("[worker %d] Computing batch of %d", w.id, len(batch))
	vecs := make([][]float64, len(batch))
	for i, elem := range batch {
		vecs[i] = elem.Vector()
	}
	codes, err := w.transform.Quantize(vecs)
	if err != nil {
		return &WorkerError{Worker: w.id, Err: err}
	}
	for i, code := range codes {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case w.out <- store.Pair{Code: code, Element: batch[i]}:
		}
	}
	return nil
}
