package store

import (
	"errors"

	"github.com/gasparian/smallcodes-go/itq"
)

var (
	// ErrNotFound is returned when a store holds no element for the identifier
	ErrNotFound = errors.New("element not found")
	// ErrConnection wraps failures to talk to a remote store
	ErrConnection = errors.New("store connection failed")
)

// Element is a feature vector with a stable identity
type Element interface {
	UUID() string
	Vector() []float64
}

// Descriptor is the plain Element implementation
type Descriptor struct {
	ID  string
	Vec []float64
}

// UUID returns descriptor identity
func (d *Descriptor) UUID() string { return d.ID }

// Vector returns descriptor feature vector
func (d *Descriptor) Vector() []float64 { return d.Vec }

// Pair binds a small code to the element it was computed from
type Pair struct {
	Code    uint64
	Element Element
}

// ElementIterator yields elements one by one,
// Err reports why Next stopped early
type ElementIterator interface {
	Next() (Element, bool)
	Err() error
}

// ElementStore fetches elements by identifier;
// FetchAll must fetch lazily, one element per Next call
type ElementStore interface {
	Fetch(id string) (Element, error)
	FetchAll(ids []string) ElementIterator
}

// IdentifierSource returns the complete ordered set of identifiers for one run
type IdentifierSource interface {
	Load() ([]string, error)
}

// TransformLoader loads ITQ rotation and mean vector
type TransformLoader interface {
	Load() (*itq.Transform, error)
}

// IndexSink accepts computed code/element pairs
type IndexSink interface {
	AddMany(pairs []Pair) error
}

// IndexedChecker is implemented by sinks which can tell
// whether an element is already indexed
type IndexedChecker interface {
	Contains(id string) bool
}
