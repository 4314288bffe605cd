package state

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	LastSyncKey = "catalog.last_sync"
	PairsKey    = "catalog.pairs"
)

// SyncCheckpoint records the outcome of the last applied catalog sync.
type SyncCheckpoint struct {
	LastSync time.Time
	Pairs    int
}

func LoadSyncCheckpoint(ctx context.Context, store Store) (SyncCheckpoint, bool, error) {
	if store == nil {
		return SyncCheckpoint{}, false, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	rawSync, ok, err := store.Get(ctx, LastSyncKey)
	if err != nil {
		return SyncCheckpoint{}, false, err
	}
	if !ok || strings.TrimSpace(rawSync) == "" {
		return SyncCheckpoint{}, false, nil
	}
	last, err := time.Parse(time.RFC3339, rawSync)
	if err != nil {
		return SyncCheckpoint{}, false, fmt.Errorf("parse %s: %w", LastSyncKey, err)
	}
	cp := SyncCheckpoint{LastSync: last}
	rawPairs, ok, err := store.Get(ctx, PairsKey)
	if err != nil {
		return SyncCheckpoint{}, false, err
	}
	if ok {
		if cp.Pairs, err = strconv.Atoi(strings.TrimSpace(rawPairs)); err != nil {
			return SyncCheckpoint{}, false, fmt.Errorf("parse %s: %w", PairsKey, err)
		}
	}
	return cp, true, nil
}

func SaveSyncCheckpoint(ctx context.Context, store Store, cp SyncCheckpoint) error {
	if store == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := store.Set(ctx, LastSyncKey, cp.LastSync.UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return store.Set(ctx, PairsKey, strconv.Itoa(cp.Pairs))
}
