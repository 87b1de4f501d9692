package smallcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/gasparian/smallcodes-go/common"
	"github.com/gasparian/smallcodes-go/itq"
	"github.com/gasparian/smallcodes-go/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	refRotation = []float64{
		1, 0, 0, 0,
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, -1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, -1,
		0, 0, 0, 1,
		0, 0, 0, 1,
	}
	refMean     = []float64{1, 1, 1, 1, 1, 1, 1, 1}
	refElements = []store.Element{
		&store.Descriptor{ID: "e0", Vec: []float64{0, 2, 2, 5, 3, 1, 1, 0}},
		&store.Descriptor{ID: "e1", Vec: []float64{0, 0, 0, 0, 0, 0, 0, 0}},
		&store.Descriptor{ID: "e2", Vec: []float64{1, 1, 1, 1, 1, 1, 1, 1}},
		&store.Descriptor{ID: "e3", Vec: []float64{3, 0, 1, 2, 0, 5, 1, 1}},
	}
	refCodes = map[string]uint64{"e0": 0b1010, "e1": 0b0100, "e2": 0b1111, "e3": 0b1000}
)

func refTransform(t *testing.T) *itq.Transform {
	tr, err := itq.FromRaw(8, 4, refRotation, refMean)
	require.NoError(t, err)
	return tr
}

func makeElements(n, dims int, seed int64) []store.Element {
	rnd := rand.New(rand.NewSource(seed))
	elems := make([]store.Element, n)
	for i := range elems {
		vec := make([]float64, dims)
		for j := range vec {
			vec[j] = rnd.NormFloat64()
		}
		elems[i] = &store.Descriptor{ID: "id-" + strconv.Itoa(i), Vec: vec}
	}
	return elems
}

func collectIDs(t *testing.T, pairs []store.Pair) map[string]uint64 {
	got := make(map[string]uint64, len(pairs))
	for _, p := range pairs {
		_, dup := got[p.Element.UUID()]
		require.False(t, dup, "duplicated element %s", p.Element.UUID())
		got[p.Element.UUID()] = p.Code
	}
	return got
}

type slowElement struct {
	store.Descriptor
	delay time.Duration
}

func (e *slowElement) Vector() []float64 {
	time.Sleep(e.delay)
	return e.Vec
}

type panicElement struct {
	store.Descriptor
}

func (e *panicElement) Vector() []float64 {
	panic("broken element")
}

type endlessIterator struct {
	n    int
	dims int
}

func (it *endlessIterator) Next() (store.Element, bool) {
	it.n++
	return &store.Descriptor{ID: strconv.Itoa(it.n), Vec: make([]float64, it.dims)}, true
}

func (it *endlessIterator) Err() error { return nil }

func newWorker(t *testing.T, in chan store.Element, out chan store.Pair, batch int) *worker {
	return &worker{
		in:        in,
		out:       out,
		transform: refTransform(t),
		batchSize: batch,
		logger:    common.NopLogger(),
	}
}

func TestWorkerFlushesPartialBatch(t *testing.T) {
	in := make(chan store.Element, 8)
	out := make(chan store.Pair, 8)
	for _, e := range refElements {
		in <- e
	}
	in <- refElements[0]
	in <- nil
	in <- refElements[1] // must never be read
	require.NoError(t, newWorker(t, in, out, 2).run(context.Background()))
	close(out)

	var order []string
	for p := range out {
		assert.Equal(t, refCodes[p.Element.UUID()], p.Code)
		order = append(order, p.Element.UUID())
	}
	assert.Equal(t, []string{"e0", "e1", "e2", "e3", "e0"}, order)
	assert.Len(t, in, 1, "worker must stop reading after the terminal value")
}

func TestWorkerStopsOnClosedInput(t *testing.T) {
	in := make(chan store.Element, 1)
	out := make(chan store.Pair, 1)
	in <- refElements[2]
	close(in)
	require.NoError(t, newWorker(t, in, out, 10).run(context.Background()))
	require.Len(t, out, 1)
}

func TestWorkerShapeMismatch(t *testing.T) {
	in := make(chan store.Element, 2)
	out := make(chan store.Pair, 2)
	in <- &store.Descriptor{ID: "short", Vec: []float64{1, 2}}
	in <- nil
	err := newWorker(t, in, out, 5).run(context.Background())
	var werr *WorkerError
	require.ErrorAs(t, err, &werr)
	assert.ErrorIs(t, err, itq.ErrShapeMismatch)
	assert.Empty(t, out)
}

func TestWorkerCancelledWhileBlocked(t *testing.T) {
	in := make(chan store.Element, 1)
	out := make(chan store.Pair) // nobody reads
	in <- refElements[0]
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newWorker(t, in, out, 1).run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("worker stayed blocked on the output channel after cancel")
	}
}

func TestDispatcherReference(t *testing.T) {
	d := New(Config{Workers: 2, BatchSize: 2}, common.NopLogger())
	pairs, err := d.Run(context.Background(), refTransform(t), store.NewSliceIterator(refElements))
	require.NoError(t, err)
	require.Len(t, pairs, 4)
	assert.Equal(t, refCodes, collectIDs(t, pairs))
}

func TestDispatcherTotalCount(t *testing.T) {
	const (
		workers = 4
		batch   = 5
		dims    = 16
	)
	rnd := rand.New(rand.NewSource(1))
	rotation := make([]float64, dims*12)
	for i := range rotation {
		rotation[i] = rnd.NormFloat64()
	}
	tr, err := itq.FromRaw(dims, 12, rotation, make([]float64, dims))
	require.NoError(t, err)

	for _, n := range []int{0, 1, workers - 1, workers, 10 * workers, batch - 1, batch + 1, 3*batch + 2} {
		t.Run(fmt.Sprintf("N=%d", n), func(t *testing.T) {
			elems := makeElements(n, dims, int64(n))
			d := New(Config{Workers: workers, BatchSize: batch}, common.NopLogger())
			pairs, err := d.Run(context.Background(), tr, store.NewSliceIterator(elems))
			require.NoError(t, err)
			require.Len(t, pairs, n)
			got := collectIDs(t, pairs)
			for _, e := range elems {
				code, ok := got[e.UUID()]
				require.True(t, ok, "missing element %s", e.UUID())
				want, err := tr.Code(e.Vector())
				require.NoError(t, err)
				assert.Equal(t, want, code)
			}
		})
	}
}

func TestDispatcherSlowCollector(t *testing.T) {
	const n = 60
	d := New(Config{Workers: 3, BatchSize: 4, InputBuffer: 1}, common.NopLogger())
	elems := makeElements(n, 8, 3)
	seen := make(map[string]bool)
	done := make(chan error, 1)
	go func() {
		_, err := d.Stream(context.Background(), refTransform(t), store.NewSliceIterator(elems), func(p store.Pair) error {
			time.Sleep(time.Millisecond)
			seen[p.Element.UUID()] = true
			return nil
		})
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(20 * time.Second):
		t.Fatal("dispatcher deadlocked with a slow collector")
	}
	assert.Len(t, seen, n)
}

func TestDispatcherShapeMismatch(t *testing.T) {
	elems := makeElements(50, 8, 5)
	elems[17] = &store.Descriptor{ID: "broken", Vec: make([]float64, 7)}
	d := New(Config{Workers: 3, BatchSize: 4}, common.NopLogger())
	pairs, err := d.Run(context.Background(), refTransform(t), store.NewSliceIterator(elems))
	require.Error(t, err)
	assert.Nil(t, pairs, "no partial result on failure")
	assert.ErrorIs(t, err, itq.ErrShapeMismatch)
	var werr *WorkerError
	assert.ErrorAs(t, err, &werr)
	assert.NotErrorIs(t, err, ErrCancelled)
}

func TestDispatcherWorkerPanic(t *testing.T) {
	elems := makeElements(10, 8, 6)
	elems[3] = &panicElement{Descriptor: store.Descriptor{ID: "panic"}}
	d := New(Config{Workers: 2, BatchSize: 2}, common.NopLogger())
	_, err := d.Run(context.Background(), refTransform(t), store.NewSliceIterator(elems))
	var werr *WorkerError
	require.ErrorAs(t, err, &werr)
}

func TestDispatcherIteratorError(t *testing.T) {
	elems := makeElements(10, 8, 7)
	fetch := func(id string) (store.Element, error) {
		i, _ := strconv.Atoi(id)
		if i == 6 {
			return nil, store.ErrNotFound
		}
		return elems[i], nil
	}
	ids := make([]string, len(elems))
	for i := range ids {
		ids[i] = strconv.Itoa(i)
	}
	d := New(Config{Workers: 2, BatchSize: 3}, common.NopLogger())
	pairs, err := d.Run(context.Background(), refTransform(t), store.NewFetchIterator(fetch, ids))
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Nil(t, pairs)
}

func TestDispatcherCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := New(Config{Workers: 4, BatchSize: 8}, common.NopLogger())
	done := make(chan error, 1)
	go func() {
		_, err := d.Stream(ctx, refTransform(t), &endlessIterator{dims: 8}, func(store.Pair) error { return nil })
		done <- err
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrCancelled)
		assert.ErrorIs(t, err, context.Canceled)
		var werr *WorkerError
		assert.False(t, errors.As(err, &werr), "cancellation is not a worker failure")
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not stop after cancel")
	}
}

func TestDispatcherCollectTimeout(t *testing.T) {
	elems := []store.Element{
		&slowElement{Descriptor: store.Descriptor{ID: "slow", Vec: refMean}, delay: 300 * time.Millisecond},
	}
	d := New(Config{Workers: 1, BatchSize: 1, CollectTimeout: 30 * time.Millisecond}, common.NopLogger())
	_, err := d.Run(context.Background(), refTransform(t), store.NewSliceIterator(elems))
	require.ErrorIs(t, err, ErrCollectTimeout)
	assert.NotErrorIs(t, err, ErrCancelled)
}

func TestDispatcherCollectorError(t *testing.T) {
	errStop := errors.New("sink is full")
	d := New(Config{Workers: 2, BatchSize: 2}, common.NopLogger())
	n, err := d.Stream(context.Background(), refTransform(t), store.NewSliceIterator(makeElements(40, 8, 8)), func(store.Pair) error {
		return errStop
	})
	require.ErrorIs(t, err, errStop)
	assert.Equal(t, 1, n)
}

func TestDispatcherCancelAfterLastPair(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d := New(Config{Workers: 2, BatchSize: 2}, common.NopLogger())
	delivered := 0
	n, err := d.Stream(ctx, refTransform(t), store.NewSliceIterator(refElements), func(store.Pair) error {
		delivered++
		if delivered == len(refElements) {
			cancel()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, len(refElements), n)
	assert.Equal(t, len(refElements), delivered)
}

func TestDispatcherNilTransform(t *testing.T) {
	_, err := New(Config{}, nil).Run(context.Background(), nil, store.NewSliceIterator(nil))
	require.ErrorIs(t, err, errNilTransform)
}

func TestDispatcherProgress(t *testing.T) {
	var buf bytes.Buffer
	d := New(Config{Workers: 2, BatchSize: 3, Progress: &buf, ExpectedTotal: 20}, common.NopLogger())
	pairs, err := d.Run(context.Background(), refTransform(t), store.NewSliceIterator(makeElements(20, 8, 9)))
	require.NoError(t, err)
	assert.Len(t, pairs, 20)
	assert.NotZero(t, buf.Len(), "progress bar must be written")
}

func TestNewDefaults(t *testing.T) {
	config := New(Config{Workers: 3}, nil).Config()
	assert.Equal(t, DefaultBatchSize, config.BatchSize)
	assert.Equal(t, 3*DefaultBatchSize, config.InputBuffer)
}
