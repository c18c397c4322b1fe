// Package memstore provides an in-memory implementation of store.Store.
package memstore

import (
	"context"
	"sort"
	"sync"
)

type entry struct {
	key   string
	value []byte
	seq   int
}

// Store holds partitioned key/value state in memory. Durability is the
// lifetime of the process; suitable for dev/testing.
type Store struct {
	mu         sync.RWMutex
	partitions map[string]map[string]*entry
	nextSeq    int
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		partitions: make(map[string]map[string]*entry),
	}
}

// Get retrieves the value for (partition, key). Returns a copy.
func (s *Store) Get(_ context.Context, partition, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.partitions[partition]
	if !ok {
		return nil, false, nil
	}
	e, ok := p[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(e.value))
	copy(cp, e.value)
	return cp, true, nil
}

// Put stores a copy of the value for (partition, key).
func (s *Store) Put(_ context.Context, partition, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.partitions[partition]
	if !ok {
		p = make(map[string]*entry)
		s.partitions[partition] = p
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	if e, ok := p[key]; ok {
		e.value = cp
		return nil
	}
	s.nextSeq++
	p[key] = &entry{key: key, value: cp, seq: s.nextSeq}
	return nil
}

// List returns copies of all values in a partition in insertion order.
func (s *Store) List(_ context.Context, partition string) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.partitions[partition]
	if !ok {
		return nil, nil
	}
	entries := make([]*entry, 0, len(p))
	for _, e := range p {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	out := make([][]byte, len(entries))
	for i, e := range entries {
		cp := make([]byte, len(e.value))
		copy(cp, e.value)
		out[i] = cp
	}
	return out, nil
}
