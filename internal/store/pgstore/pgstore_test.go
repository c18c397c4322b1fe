package pgstore_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/linnemanlabs/warden/internal/store/pgstore"
)

func openStore(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("WARDEN_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("WARDEN_TEST_DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	t.Cleanup(pool.Close)
	s, err := pgstore.New(ctx, pool)
	if err != nil {
		t.Fatalf("pgstore.New: %v", err)
	}
	return s
}

// testPartition returns a partition name unique to this run so repeated
// test invocations against the same database do not interfere.
func testPartition(prefix string) string {
	return fmt.Sprintf("%s:%d", prefix, time.Now().UnixNano())
}

func TestPutAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	part := testPartition("put-get")

	if err := s.Put(ctx, part, "status", []byte(`"investigating"`)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Get(ctx, part, "status")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected value to be found")
	}
	if string(got) != `"investigating"` {
		t.Errorf("value = %s", got)
	}
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)

	_, ok, err := s.Get(context.Background(), testPartition("missing"), "nope")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected missing value")
	}
}

func TestPutOverwrites(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	part := testPartition("overwrite")

	if err := s.Put(ctx, part, "k", []byte(`"old"`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, part, "k", []byte(`"new"`)); err != nil {
		t.Fatalf("Put again: %v", err)
	}

	got, _, err := s.Get(ctx, part, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `"new"` {
		t.Errorf("value = %s, want new", got)
	}
}

func TestListInsertionOrder(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	part := testPartition("order")

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("k%d", i)
		if err := s.Put(ctx, part, key, []byte(fmt.Sprintf(`"%s"`, key))); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}
	// an overwrite must keep the original position
	if err := s.Put(ctx, part, "k1", []byte(`"k1-v2"`)); err != nil {
		t.Fatalf("Put k1 again: %v", err)
	}

	values, err := s.List(ctx, part)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{`"k0"`, `"k1-v2"`, `"k2"`, `"k3"`, `"k4"`}
	if len(values) != len(want) {
		t.Fatalf("len = %d, want %d", len(values), len(want))
	}
	for i, v := range values {
		if string(v) != want[i] {
			t.Errorf("values[%d] = %s, want %s", i, v, want[i])
		}
	}
}

func TestCreatesSpans(t *testing.T) {
	// Not parallel: swaps the global OTel tracer provider.
	s := openStore(t)

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	ctx := context.Background()
	part := testPartition("spans")
	if err := s.Put(ctx, part, "k", []byte(`"v"`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, _, err := s.Get(ctx, part, "k"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := s.List(ctx, part); err != nil {
		t.Fatalf("List: %v", err)
	}

	counts := make(map[string]int)
	for _, span := range exporter.GetSpans() {
		counts[span.Name]++
	}
	for _, name := range []string{"pgstore.Put", "pgstore.Get", "pgstore.List"} {
		if counts[name] == 0 {
			t.Errorf("no %s span recorded (got %v)", name, counts)
		}
	}
}
