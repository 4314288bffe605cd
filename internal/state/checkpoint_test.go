package state

import (
	"context"
	"sync"
	"testing"
	"time"
)

type memoryStore struct {
	mu    sync.Mutex
	items map[string]string
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.items[key]
	return val, ok, nil
}

func (m *memoryStore) Set(ctx context.Context, key, value string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = make(map[string]string)
	}
	m.items[key] = value
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *memoryStore) Close() error {
	return nil
}

func TestSyncCheckpointRoundTrip(t *testing.T) {
	store := &memoryStore{}
	ctx := context.Background()
	cp := SyncCheckpoint{LastSync: time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC), Pairs: 412}
	if err := SaveSyncCheckpoint(ctx, store, cp); err != nil {
		t.Fatalf("save: %v", err)
	}
	if store.items[LastSyncKey] != "2024-05-06T07:08:09Z" || store.items[PairsKey] != "412" {
		t.Fatalf("unexpected stored values %v", store.items)
	}
	got, ok, err := LoadSyncCheckpoint(ctx, store)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if !got.LastSync.Equal(cp.LastSync) || got.Pairs != cp.Pairs {
		t.Fatalf("expected %+v, got %+v", cp, got)
	}
}

func TestSyncCheckpointMissing(t *testing.T) {
	_, ok, err := LoadSyncCheckpoint(context.Background(), &memoryStore{})
	if err != nil || ok {
		t.Fatalf("expected no checkpoint, ok=%v err=%v", ok, err)
	}
	if _, ok, _ := LoadSyncCheckpoint(context.Background(), nil); ok {
		t.Fatalf("nil store must report no checkpoint")
	}
	if err := SaveSyncCheckpoint(context.Background(), nil, SyncCheckpoint{}); err != nil {
		t.Fatalf("nil store save: %v", err)
	}
}

func TestSyncCheckpointCorrupt(t *testing.T) {
	store := &memoryStore{items: map[string]string{LastSyncKey: "yesterday"}}
	if _, _, err := LoadSyncCheckpoint(context.Background(), store); err == nil {
		t.Fatalf("expected parse error")
	}
}
