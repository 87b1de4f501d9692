package kv

import (
	"errors"
	"reflect"
	"testing"

	"github.com/gasparian/smallcodes-go/store"
)

var (
	vectorsAreNotEqualErr   = errors.New("Vectors are not equal")
	vectorShouldNotExistErr = errors.New("Vector should not exist in a store")
)

func TestKvStore(t *testing.T) {
	s := NewStore()

	t.Run("SetVector", func(t *testing.T) {
		vec := []float64{1, 2}
		s.SetVector("0", vec)
		elem, err := s.Fetch("0")
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(vec, elem.Vector()) {
			t.Error(vectorsAreNotEqualErr)
		}
		vec[0] = 42
		elem, _ = s.Fetch("0")
		if elem.Vector()[0] != 1 {
			t.Error("Store must keep its own copy of the vector")
		}
	})

	t.Run("Put", func(t *testing.T) {
		id := s.Put([]float64{3, 4})
		if len(id) == 0 {
			t.Fatal("Put must generate an id")
		}
		if s.Len() != 2 {
			t.Fatalf("Expected 2 vectors, got %d", s.Len())
		}
	})

	t.Run("FetchAll", func(t *testing.T) {
		ids := s.IDs()
		it := s.FetchAll(append(ids, "missing"))
		n := 0
		for _, ok := it.Next(); ok; _, ok = it.Next() {
			n++
		}
		if n != len(ids) {
			t.Fatalf("Expected %d elements before the missing one, got %d", len(ids), n)
		}
		if !errors.Is(it.Err(), store.ErrNotFound) {
			t.Fatalf("Expected not found error, got %v", it.Err())
		}
	})

	t.Run("Clear", func(t *testing.T) {
		s.Clear()
		_, err := s.Fetch("0")
		if !errors.Is(err, store.ErrNotFound) {
			t.Error(vectorShouldNotExistErr)
		}
	})
}
