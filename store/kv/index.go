package kv

import (
	"bytes"
	"encoding/gob"
	"errors"
	"os"
	"sync"

	"github.com/gasparian/smallcodes-go/itq"
	"github.com/gasparian/smallcodes-go/store"
)

// CodeIndex maps small codes to the elements which produced them.
// If cachePath is set, the table is persisted after every AddMany.
type CodeIndex struct {
	mx        sync.RWMutex
	cachePath string
	table     map[uint64]map[string]*store.Descriptor
	codeOf    map[string]uint64
}

// NewCodeIndex creates an index, loading the cache file if it exists
func NewCodeIndex(cachePath string) (*CodeIndex, error) {
	idx := &CodeIndex{
		cachePath: cachePath,
		table:     make(map[uint64]map[string]*store.Descriptor),
		codeOf:    make(map[string]uint64),
	}
	if len(cachePath) == 0 {
		return idx, nil
	}
	raw, err := os.ReadFile(cachePath)
	if errors.Is(err, os.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return nil, err
	}
	if err := idx.load(raw); err != nil {
		return nil, err
	}
	return idx, nil
}

// AddMany adds pairs to the index; the same element under
// the same code is stored once, a new code moves the element
func (idx *CodeIndex) AddMany(pairs []store.Pair) error {
	idx.mx.Lock()
	defer idx.mx.Unlock()
	for _, p := range pairs {
		idx.add(p.Code, p.Element)
	}
	return idx.cache()
}

func (idx *CodeIndex) add(code uint64, elem store.Element) {
	id := elem.UUID()
	if old, ok := idx.codeOf[id]; ok && old != code {
		delete(idx.table[old], id)
		if len(idx.table[old]) == 0 {
			delete(idx.table, old)
		}
	}
	bucket, ok := idx.table[code]
	if !ok {
		bucket = make(map[string]*store.Descriptor)
		idx.table[code] = bucket
	}
	bucket[id] = &store.Descriptor{ID: id, Vec: elem.Vector()}
	idx.codeOf[id] = code
}

// Count returns number of indexed elements (not codes)
func (idx *CodeIndex) Count() int {
	idx.mx.RLock()
	defer idx.mx.RUnlock()
	return len(idx.codeOf)
}

// Codes returns set of codes currently used
func (idx *CodeIndex) Codes() map[uint64]bool {
	idx.mx.RLock()
	defer idx.mx.RUnlock()
	codes := make(map[uint64]bool, len(idx.table))
	for c := range idx.table {
		codes[c] = true
	}
	return codes
}

// CodeOf returns code stored for the element id
func (idx *CodeIndex) CodeOf(id string) (uint64, bool) {
	idx.mx.RLock()
	defer idx.mx.RUnlock()
	c, ok := idx.codeOf[id]
	return c, ok
}

// Contains reports whether the element is already indexed
func (idx *CodeIndex) Contains(id string) bool {
	_, ok := idx.CodeOf(id)
	return ok
}

// Get returns elements stored under any of the codes
func (idx *CodeIndex) Get(codes ...uint64) []store.Element {
	idx.mx.RLock()
	defer idx.mx.RUnlock()
	var res []store.Element
	for _, c := range codes {
		for _, d := range idx.table[c] {
			res = append(res, d)
		}
	}
	return res
}

// Neighbors returns elements whose codes are within radius bits of code
func (idx *CodeIndex) Neighbors(bits int, code uint64, radius int) []store.Element {
	var res []store.Element
	for d := 0; d <= radius && d <= bits; d++ {
		res = append(res, idx.Get(itq.NeighborCodes(bits, code, d)...)...)
	}
	return res
}

// Clear drops every entry
func (idx *CodeIndex) Clear() error {
	idx.mx.Lock()
	defer idx.mx.Unlock()
	idx.table = make(map[uint64]map[string]*store.Descriptor)
	idx.codeOf = make(map[string]uint64)
	return idx.cache()
}

// cache writes the table next to the destination and renames it on top
func (idx *CodeIndex) cache() error {
	if len(idx.cachePath) == 0 {
		return nil
	}
	buf := &bytes.Buffer{}
	if err := gob.NewEncoder(buf).Encode(idx.table); err != nil {
		return err
	}
	tmp := idx.cachePath + ".WRITING"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, idx.cachePath)
}

func (idx *CodeIndex) load(inp []byte) error {
	table := make(map[uint64]map[string]*store.Descriptor)
	if err := gob.NewDecoder(bytes.NewReader(inp)).Decode(&table); err != nil {
		return err
	}
	idx.table = table
	for code, bucket := range table {
		for id := range bucket {
			idx.codeOf[id] = code
		}
	}
	return nil
}
