package demand

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	storepkg "github.com/fleetsight/fleetsight/internal/store"
	"github.com/fleetsight/fleetsight/pkg/fleet"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := storepkg.New(filepath.Join(t.TempDir(), "demand.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(context.Background(), "demand", migrations()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return NewStore(s.DB())
}

func TestStore_InsertRunRoundTrip(t *testing.T) {
	st := tempStore(t)
	ctx := context.Background()

	actual := 42.0
	rows := []fleet.ForecastRow{
		{Date: day(0), Actual: &actual, Estimate: 41.5, Lower: 38, Upper: 45},
		{Date: day(1), Estimate: 43.1, Lower: 39, Upper: 47},
	}
	run := ForecastRun{
		ID:          "0f8fad5b-d9cb-469f-a165-70867728950e",
		Periods:     1,
		HistoryRows: 1,
		GeneratedAt: time.Now().UTC(),
	}

	if err := st.InsertRun(ctx, run, rows); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}

	got, err := st.RunRows(ctx, run.ID)
	if err != nil {
		t.Fatalf("RunRows: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}

	// NULL actuals on future rows must survive the round trip.
	if got[0].Actual == nil || *got[0].Actual != 42.0 {
		t.Errorf("history row actual = %v, want 42", got[0].Actual)
	}
	if got[1].Actual != nil {
		t.Errorf("future row actual = %v, want nil", *got[1].Actual)
	}
	if got[1].Estimate != 43.1 {
		t.Errorf("future row estimate = %v, want 43.1", got[1].Estimate)
	}
}

func TestStore_InsertRunDuplicateID(t *testing.T) {
	st := tempStore(t)
	ctx := context.Background()

	run := ForecastRun{ID: "dup", Periods: 1, HistoryRows: 0, GeneratedAt: time.Now()}
	rows := []fleet.ForecastRow{{Date: day(0), Estimate: 1, Lower: 0, Upper: 2}}

	if err := st.InsertRun(ctx, run, rows); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := st.InsertRun(ctx, run, rows); err == nil {
		t.Fatal("duplicate run id accepted")
	}

	// The failed transaction must not leave extra rows behind.
	got, err := st.RunRows(ctx, "dup")
	if err != nil {
		t.Fatalf("RunRows: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d rows after failed duplicate insert, want 1", len(got))
	}
}

func TestStore_ListRunsOrderAndLimit(t *testing.T) {
	st := tempStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		run := ForecastRun{
			ID:          string(rune('a' + i)),
			Periods:     i + 1,
			HistoryRows: 10,
			GeneratedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := st.InsertRun(ctx, run, nil); err != nil {
			t.Fatalf("InsertRun %d: %v", i, err)
		}
	}

	runs, err := st.ListRuns(ctx, 3)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	if runs[0].ID != "e" || runs[2].ID != "c" {
		t.Errorf("runs out of order: %q, %q, %q", runs[0].ID, runs[1].ID, runs[2].ID)
	}
}

func TestStore_RunRowsUnknownID(t *testing.T) {
	st := tempStore(t)
	rows, err := st.RunRows(context.Background(), "missing")
	if err != nil {
		t.Fatalf("RunRows: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("got %d rows for unknown run, want 0", len(rows))
	}
}
