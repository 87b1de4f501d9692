package store

// FetchIterator calls fetch for every identifier on demand
type FetchIterator struct {
	fetch func(string) (Element, error)
	ids   []string
	pos   int
	err   error
}

// NewFetchIterator creates lazy iterator over ids
func NewFetchIterator(fetch func(string) (Element, error), ids []string) *FetchIterator {
	return &FetchIterator{
		fetch: fetch,
		ids:   ids,
	}
}

// Next fetches the next element; stops on the first fetch error
func (it *FetchIterator) Next() (Element, bool) {
	if it.err != nil || it.pos >= len(it.ids) {
		return nil, false
	}
	id := it.ids[it.pos]
	it.pos++
	elem, err := it.fetch(id)
	if err != nil {
		it.err = &FetchError{ID: id, Err: err}
		return nil, false
	}
	return elem, true
}

// Err returns the fetch error, if any
func (it *FetchIterator) Err() error {
	return it.err
}

// FetchError carries identifier which could not be fetched
type FetchError struct {
	ID  string
	Err error
}

func (e *FetchError) Error() string {
	return "fetching " + e.ID + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// SliceIterator iterates over already materialized elements
type SliceIterator struct {
	elems []Element
	pos   int
}

// NewSliceIterator __
func NewSliceIterator(elems []Element) *SliceIterator {
	return &SliceIterator{elems: elems}
}

// Next __
func (it *SliceIterator) Next() (Element, bool) {
	if it.pos >= len(it.elems) {
		return nil, false
	}
	elem := it.elems[it.pos]
	it.pos++
	return elem, true
}

// Err is always nil
func (it *SliceIterator) Err() error {
	return nil
}
