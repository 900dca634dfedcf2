package blobstore

import (
	"sync"

	"github.com/brainyhq/brainy/internal/brainyerr"
	"github.com/brainyhq/brainy/internal/objects"
)

// MemStore is an in-process Store backed by a map, used for tests and the
// ephemeral in-memory storage adapter.
type MemStore struct {
	mu   sync.RWMutex
	data map[objects.Hash][]byte
}

// NewMemStore returns an empty in-memory blob store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[objects.Hash][]byte)}
}

func (s *MemStore) Put(data []byte) (objects.Hash, error) {
	h := objects.Sum(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[h]; !ok {
		cp := make([]byte, len(data))
		copy(cp, data)
		s.data[h] = cp
	}
	return h, nil
}

func (s *MemStore) Get(hash objects.Hash) ([]byte, error) {
	if err := guardHash("get", hash); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.data[hash]
	if !ok {
		return nil, wrapf("get", hash, brainyerr.ErrNotFound)
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp, nil
}

func (s *MemStore) Exists(hash objects.Hash) (bool, error) {
	if hash.IsNull() {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[hash]
	return ok, nil
}

func (s *MemStore) Delete(hash objects.Hash) error {
	if err := guardHash("delete", hash); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, hash)
	return nil
}
