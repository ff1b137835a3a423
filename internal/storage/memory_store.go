package storage

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps objects in process memory. It backs the ":memory:"
// artifact directory and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*Object
	refs    map[string][]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]*Object),
		refs:    make(map[string][]string),
	}
}

func (m *MemoryStore) Put(ctx context.Context, obj *Object) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	hash := obj.Hash
	if hash == "" {
		hash = Hash(obj.Data)
	}
	if !ValidHash(hash) {
		return "", ErrInvalidHash.WithContext("hash", hash)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if existing, ok := m.objects[hash]; ok {
		existing.Metadata.RefCount++
		existing.Metadata.LastAccessed = now
		return hash, nil
	}

	stored := &Object{
		Hash:        hash,
		Type:        obj.Type,
		ContentType: obj.ContentType,
		Size:        int64(len(obj.Data)),
		Data:        slices.Clone(obj.Data),
		Metadata: Metadata{
			CreatedAt:    now,
			LastAccessed: now,
			RefCount:     1,
			Custom:       maps.Clone(obj.Metadata.Custom),
		},
	}
	m.objects[hash] = stored
	return hash, nil
}

func (m *MemoryStore) Get(_ context.Context, hash string) (*Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[hash]
	if !ok {
		return nil, notFound(hash)
	}
	obj.Metadata.LastAccessed = time.Now()
	out := *obj
	out.Data = slices.Clone(obj.Data)
	out.Metadata.Custom = maps.Clone(obj.Metadata.Custom)
	return &out, nil
}

func (m *MemoryStore) Exists(_ context.Context, hash string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[hash]
	return ok, nil
}

func (m *MemoryStore) Delete(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[hash]; !ok {
		return notFound(hash)
	}
	delete(m.objects, hash)
	return nil
}

func (m *MemoryStore) List(_ context.Context, objectType ObjectType) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var hashes []string
	for hash, obj := range m.objects {
		if objectType == "" || obj.Type == objectType {
			hashes = append(hashes, hash)
		}
	}
	slices.Sort(hashes)
	return hashes, nil
}

func (m *MemoryStore) AddRunRef(_ context.Context, runID string, hashes []string) error {
	if !validRefName(runID) {
		return ErrInvalidHash.WithContext("run_id", runID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs[runID] = slices.Clone(hashes)
	return nil
}

func (m *MemoryStore) GetRunRef(_ context.Context, runID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.refs[runID]), nil
}

func (m *MemoryStore) Close() error { return nil }

// Open returns a store for dir; ":memory:" selects a MemoryStore.
func Open(dir string) (ObjectStore, error) {
	if dir == ":memory:" {
		return NewMemoryStore(), nil
	}
	return NewFSStore(dir)
}
