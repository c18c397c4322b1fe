package memstore

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestStore_PutAndGet(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	if err := s.Put(ctx, "incident:a", "status", []byte(`"investigating"`)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Get(ctx, "incident:a", "status")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected value to be found")
	}
	if !bytes.Equal(got, []byte(`"investigating"`)) {
		t.Errorf("value = %s, want %s", got, `"investigating"`)
	}
}

func TestStore_GetMissing(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "incident:a", "nope")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected missing value")
	}
}

func TestStore_PartitionsAreIsolated(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	if err := s.Put(ctx, "incident:a", "k", []byte("one")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, "incident:b", "k", []byte("two")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Get(ctx, "incident:a", "k")
	if err != nil || !ok {
		t.Fatalf("Get a/k: ok=%v err=%v", ok, err)
	}
	if string(got) != "one" {
		t.Errorf("a/k = %s, want one", got)
	}
}

func TestStore_PutOverwrites(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	if err := s.Put(ctx, "p", "k", []byte("old")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, "p", "k", []byte("new")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, _, err := s.Get(ctx, "p", "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "new" {
		t.Errorf("value = %s, want new", got)
	}
}

func TestStore_ListInsertionOrder(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("k%d", i)
		if err := s.Put(ctx, "registry", key, []byte(key)); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}
	// overwriting must not change the original position
	if err := s.Put(ctx, "registry", "k1", []byte("k1-v2")); err != nil {
		t.Fatalf("Put k1 again: %v", err)
	}

	values, err := s.List(ctx, "registry")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"k0", "k1-v2", "k2", "k3", "k4"}
	if len(values) != len(want) {
		t.Fatalf("len = %d, want %d", len(values), len(want))
	}
	for i, v := range values {
		if string(v) != want[i] {
			t.Errorf("values[%d] = %s, want %s", i, v, want[i])
		}
	}
}

func TestStore_ListEmptyPartition(t *testing.T) {
	t.Parallel()

	s := New()

	values, err := s.List(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("len = %d, want 0", len(values))
	}
}

func TestStore_CopiesValues(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	in := []byte("original")
	if err := s.Put(ctx, "p", "k", in); err != nil {
		t.Fatalf("Put: %v", err)
	}
	in[0] = 'X'

	got, _, err := s.Get(ctx, "p", "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "original" {
		t.Errorf("value = %s, want original (caller mutation leaked in)", got)
	}

	got[0] = 'Y'
	again, _, err := s.Get(ctx, "p", "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(again) != "original" {
		t.Errorf("value = %s, want original (caller mutation leaked out)", again)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", n)
			if err := s.Put(ctx, "p", key, []byte(key)); err != nil {
				t.Errorf("Put %s: %v", key, err)
			}
			if _, _, err := s.Get(ctx, "p", key); err != nil {
				t.Errorf("Get %s: %v", key, err)
			}
			if _, err := s.List(ctx, "p"); err != nil {
				t.Errorf("List: %v", err)
			}
		}(i)
	}
	wg.Wait()

	values, err := s.List(ctx, "p")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(values) != 20 {
		t.Errorf("len = %d, want 20", len(values))
	}
}
