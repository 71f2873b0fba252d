package demand

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	storepkg "github.com/fleetsight/fleetsight/internal/store"
	"go.uber.org/zap"
)

// trainedModule returns a demand module with a forecaster fitted on 90
// days of trended, weekly-cyclic demand. Persistence is attached when
// withStore is set.
func trainedModule(t *testing.T, withStore bool) *Module {
	t.Helper()

	m := New()
	m.logger = zap.NewNop()
	m.cfg = testConfig()

	series := dailySeries(90, func(i int) float64 { return 100 + 0.5*float64(i) })
	f := NewHybridForecaster(m.cfg)
	if err := f.Fit(series); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	m.forecaster = f
	m.series = series

	if withStore {
		s, err := storepkg.New(filepath.Join(t.TempDir(), "demand.db"))
		if err != nil {
			t.Fatalf("store.New: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		if err := s.Migrate(context.Background(), "demand", migrations()); err != nil {
			t.Fatalf("Migrate: %v", err)
		}
		m.store = NewStore(s.DB())
	}
	return m
}

// serve routes a request through a mux with the module's routes mounted,
// so path parameters resolve the same way they do in production.
func serve(m *Module, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	for _, route := range m.Routes() {
		mux.HandleFunc(route.Method+" /api/v1/demand"+route.Path, route.Handler)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandleForecast_MissingPeriods(t *testing.T) {
	m := trainedModule(t, false)
	rec := serve(m, httptest.NewRequest(http.MethodGet, "/api/v1/demand/forecast", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("Content-Type = %q, want problem+json", ct)
	}
}

func TestHandleForecast_InvalidPeriods(t *testing.T) {
	m := trainedModule(t, false)
	for _, q := range []string{"periods=abc", "periods=0", "periods=-3", "periods=9999"} {
		rec := serve(m, httptest.NewRequest(http.MethodGet, "/api/v1/demand/forecast?"+q, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, rec.Code)
		}
	}
}

func TestHandleForecast_UntrainedReturns503(t *testing.T) {
	m := New()
	m.logger = zap.NewNop()
	m.cfg = DefaultConfig()

	rec := serve(m, httptest.NewRequest(http.MethodGet, "/api/v1/demand/forecast?periods=7", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestHandleForecast_Success(t *testing.T) {
	m := trainedModule(t, false)
	rec := serve(m, httptest.NewRequest(http.MethodGet, "/api/v1/demand/forecast?periods=7", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp forecastResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Periods != 7 {
		t.Errorf("periods = %d, want 7", resp.Periods)
	}
	if resp.HistoryRows != 90 {
		t.Errorf("history_rows = %d, want 90", resp.HistoryRows)
	}
	if len(resp.Rows) != 97 {
		t.Fatalf("got %d rows, want 97", len(resp.Rows))
	}
	if resp.Rows[0].Actual == nil {
		t.Error("first history row has no actual")
	}
	if resp.Rows[96].Actual != nil {
		t.Error("last future row carries an actual")
	}
	if resp.RunID == "" {
		t.Error("run_id is empty")
	}
}

func TestHandleForecast_PersistsRun(t *testing.T) {
	m := trainedModule(t, true)
	rec := serve(m, httptest.NewRequest(http.MethodGet, "/api/v1/demand/forecast?periods=5", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp forecastResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	runs, err := m.store.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d persisted runs, want 1", len(runs))
	}
	if runs[0].ID != resp.RunID {
		t.Errorf("persisted run id %q, response run id %q", runs[0].ID, resp.RunID)
	}
	if runs[0].Periods != 5 || runs[0].HistoryRows != 90 {
		t.Errorf("persisted run = %+v, want periods 5 / history 90", runs[0])
	}
}

func TestHandleRuns_ListsNewestFirst(t *testing.T) {
	m := trainedModule(t, true)
	for i := 0; i < 3; i++ {
		rec := serve(m, httptest.NewRequest(http.MethodGet, "/api/v1/demand/forecast?periods=3", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("forecast %d: status %d", i, rec.Code)
		}
	}

	rec := serve(m, httptest.NewRequest(http.MethodGet, "/api/v1/demand/runs", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Runs []ForecastRun `json:"runs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(body.Runs))
	}
}

func TestHandleRuns_NoStoreReturns503(t *testing.T) {
	m := trainedModule(t, false)
	rec := serve(m, httptest.NewRequest(http.MethodGet, "/api/v1/demand/runs", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestHandleRunRows_RoundTrip(t *testing.T) {
	m := trainedModule(t, true)
	rec := serve(m, httptest.NewRequest(http.MethodGet, "/api/v1/demand/forecast?periods=4", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("forecast status = %d", rec.Code)
	}
	var resp forecastResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	rec = serve(m, httptest.NewRequest(http.MethodGet, "/api/v1/demand/runs/"+resp.RunID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("run rows status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleRunRows_UnknownRun(t *testing.T) {
	m := trainedModule(t, true)
	rec := serve(m, httptest.NewRequest(http.MethodGet, "/api/v1/demand/runs/1b4e28ba-2fa1-11d2-883f-0016d3cca427", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleRunRows_BadID(t *testing.T) {
	m := trainedModule(t, true)
	rec := serve(m, httptest.NewRequest(http.MethodGet, "/api/v1/demand/runs/not-a-uuid", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
