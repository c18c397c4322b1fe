package registry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/linnemanlabs/warden/internal/store/memstore"
)

func TestRegister_AndList(t *testing.T) {
	t.Parallel()

	reg := New(memstore.New())
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := reg.Register(ctx, "inc-1", "Multiple Authentication Failures", "critical", ts); err != nil {
		t.Fatalf("Register: %v", err)
	}

	entries, err := reg.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.ID != "inc-1" {
		t.Errorf("ID = %q, want inc-1", e.ID)
	}
	if e.Rule != "Multiple Authentication Failures" {
		t.Errorf("Rule = %q", e.Rule)
	}
	if e.Severity != "critical" {
		t.Errorf("Severity = %q, want critical", e.Severity)
	}
	if !e.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", e.Timestamp, ts)
	}
}

func TestRegister_DuplicateID(t *testing.T) {
	t.Parallel()

	reg := New(memstore.New())
	ctx := context.Background()

	if err := reg.Register(ctx, "inc-1", "RuleA", "low", time.Now()); err != nil {
		t.Fatalf("first Register: %v", err)
	}

	err := reg.Register(ctx, "inc-1", "RuleB", "high", time.Now())
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("err = %v, want ErrDuplicateID", err)
	}

	// the original entry must survive the rejected re-registration
	entries, err := reg.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len = %d, want 1", len(entries))
	}
	if entries[0].Rule != "RuleA" {
		t.Errorf("Rule = %q, want RuleA", entries[0].Rule)
	}
}

func TestList_InsertionOrder(t *testing.T) {
	t.Parallel()

	reg := New(memstore.New())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		id := fmt.Sprintf("inc-%d", i)
		if err := reg.Register(ctx, id, "Rule", "medium", time.Now()); err != nil {
			t.Fatalf("Register %s: %v", id, err)
		}
	}

	entries, err := reg.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("len = %d, want 4", len(entries))
	}
	for i, e := range entries {
		want := fmt.Sprintf("inc-%d", i)
		if e.ID != want {
			t.Errorf("entries[%d].ID = %q, want %q", i, e.ID, want)
		}
	}
}

func TestList_Empty(t *testing.T) {
	t.Parallel()

	reg := New(memstore.New())

	entries, err := reg.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len = %d, want 0", len(entries))
	}
}
