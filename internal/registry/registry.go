// Package registry keeps the secondary incident index used by the
// dashboard list view. Entries are a denormalized projection of alert
// fields written once at ingest and never updated; the list is eventually
// consistent with actor state and never reflects resolution.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/linnemanlabs/warden/internal/store"
)

const partition = "registry"

// ErrDuplicateID is returned when an incident ID is registered twice.
var ErrDuplicateID = errors.New("incident id already registered")

// Entry is one row of the incident index.
type Entry struct {
	ID        string    `json:"id"`
	Rule      string    `json:"rule"`
	Severity  string    `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

// Registry is the store-backed incident index.
type Registry struct {
	store store.Store
}

// New creates a registry over the given store.
func New(st store.Store) *Registry {
	return &Registry{store: st}
}

// Register records a new incident at ingest time. Fails with
// ErrDuplicateID if the ID is already present.
func (r *Registry) Register(ctx context.Context, id, rule, severity string, ts time.Time) error {
	_, exists, err := r.store.Get(ctx, partition, id)
	if err != nil {
		return fmt.Errorf("check registry: %w", err)
	}
	if exists {
		return fmt.Errorf("%s: %w", id, ErrDuplicateID)
	}

	raw, err := json.Marshal(Entry{
		ID:        id,
		Rule:      rule,
		Severity:  severity,
		Timestamp: ts.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	if err := r.store.Put(ctx, partition, id, raw); err != nil {
		return fmt.Errorf("register %s: %w", id, err)
	}
	return nil
}

// List returns all registered incidents in insertion order.
func (r *Registry) List(ctx context.Context) ([]Entry, error) {
	values, err := r.store.List(ctx, partition)
	if err != nil {
		return nil, fmt.Errorf("list registry: %w", err)
	}
	out := make([]Entry, 0, len(values))
	for _, raw := range values {
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("decode entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}
