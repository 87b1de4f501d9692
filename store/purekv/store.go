package purekv

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/gasparian/smallcodes-go/store"
)

// VectorsBucket keeps descriptor vectors keyed by their UUIDs
const VectorsBucket = "vecs"

// Store serves descriptor vectors from the pure-kv vectors bucket
type Store struct {
	mx     sync.Mutex
	client Client
}

// NewStore creates the vectors bucket if needed
func NewStore(client Client) (*Store, error) {
	if err := client.Create(VectorsBucket); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrConnection, err)
	}
	return &Store{client: client}, nil
}

// SetVector puts the vector under the given id
func (s *Store) SetVector(id string, vec []float64) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.client.Set(VectorsBucket, id, vec)
}

// Fetch returns the descriptor stored under id
func (s *Store) Fetch(id string) (store.Element, error) {
	s.mx.Lock()
	tmpVal, ok := s.client.Get(VectorsBucket, id)
	s.mx.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	vec, ok := tmpVal.([]float64)
	if !ok {
		return nil, fmt.Errorf("unexpected value type %T for %s", tmpVal, id)
	}
	return &store.Descriptor{ID: id, Vec: vec}, nil
}

// FetchAll lazily fetches descriptors in ids order
func (s *Store) FetchAll(ids []string) store.ElementIterator {
	return store.NewFetchIterator(s.Fetch, ids)
}

// Close drops the connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Sink writes small-codes into pure-kv buckets, one bucket per code
// keyed by element id, plus the "<prefix>_ids" bucket mapping ids to codes
type Sink struct {
	mx     sync.Mutex
	prefix string
	client Client
}

// NewSink returns a sink writing into buckets named "<prefix>_<code>"
func NewSink(client Client, prefix string) *Sink {
	return &Sink{
		prefix: prefix,
		client: client,
	}
}

func (s *Sink) bucketName(code uint64) string {
	return s.prefix + "_" + strconv.FormatUint(code, 10)
}

func (s *Sink) idsBucketName() string {
	return s.prefix + "_ids"
}

// AddMany puts every element id into its code's bucket;
// adding the same element again overwrites its entry
func (s *Sink) AddMany(pairs []store.Pair) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if len(pairs) == 0 {
		return nil
	}
	idsBucket := s.idsBucketName()
	if err := s.client.Create(idsBucket); err != nil {
		return err
	}
	for _, p := range pairs {
		id := p.Element.UUID()
		bucketName := s.bucketName(p.Code)
		err := s.client.Create(bucketName)
		if err != nil {
			return err
		}
		err = s.client.Set(bucketName, id, id)
		if err != nil {
			return err
		}
		err = s.client.Set(idsBucket, id, strconv.FormatUint(p.Code, 10))
		if err != nil {
			return err
		}
	}
	return nil
}

// Contains reports whether the element id has been indexed
func (s *Sink) Contains(id string) bool {
	s.mx.Lock()
	defer s.mx.Unlock()
	_, ok := s.client.Get(s.idsBucketName(), id)
	return ok
}

// Bucket lists element ids stored under code
func (s *Sink) Bucket(code uint64) ([]string, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	bucketName := s.bucketName(code)
	if err := s.client.MakeIterator(bucketName); err != nil {
		return nil, err
	}
	ids := make([]string, 0)
	for {
		val, err := s.client.Next(bucketName)
		if val == nil || err != nil {
			return ids, nil
		}
		id, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected value type %T in %s", val, bucketName)
		}
		ids = append(ids, id)
	}
}
