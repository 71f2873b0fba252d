package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadDemand_ReferenceColumnNames(t *testing.T) {
	// The upstream export names its columns ds and y.
	path := writeFile(t, "demand.csv", "ds,y\n2025-01-02,120\n2025-01-01,100\n2025-01-03,130\n")

	obs, err := loadDemand(path)
	if err != nil {
		t.Fatalf("loadDemand: %v", err)
	}
	if len(obs) != 3 {
		t.Fatalf("got %d observations, want 3", len(obs))
	}

	// Rows come back sorted by date regardless of file order.
	for i := 1; i < len(obs); i++ {
		if !obs[i-1].Date.Before(obs[i].Date) {
			t.Fatalf("observations not sorted: %v before %v", obs[i-1].Date, obs[i].Date)
		}
	}
	if obs[0].Count != 100 {
		t.Errorf("first count = %v, want 100", obs[0].Count)
	}
}

func TestLoadDemand_PlainColumnNames(t *testing.T) {
	path := writeFile(t, "demand.csv", "date,count\n2025-02-01,42\n")
	obs, err := loadDemand(path)
	if err != nil {
		t.Fatalf("loadDemand: %v", err)
	}
	if len(obs) != 1 || obs[0].Count != 42 {
		t.Fatalf("obs = %+v", obs)
	}
}

func TestLoadDemand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing count column", "ds,other\n2025-01-01,5\n"},
		{"bad date", "ds,y\nnot-a-date,5\n"},
		{"bad count", "ds,y\n2025-01-01,many\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "demand.csv", tt.content)
			if _, err := loadDemand(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadDemand_MissingFile(t *testing.T) {
	_, err := loadDemand(filepath.Join(t.TempDir(), "absent.csv"))
	if !os.IsNotExist(err) {
		t.Fatalf("got %v, want file-not-exist", err)
	}
}

func TestLoadTelemetry_SortsAndParses(t *testing.T) {
	// Capitalized headers as the upstream export writes them.
	path := writeFile(t, "telemetry.csv",
		"Timestamp,EquipmentID,EngineLoad\n"+
			"2025-08-29 08:02:00,EX-01,55.5\n"+
			"2025-08-29 08:00:00,EX-01,48.2\n"+
			"2025-08-29T08:01:00Z,WL-02,15.0\n")

	samples, err := loadTelemetry(path)
	if err != nil {
		t.Fatalf("loadTelemetry: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("got %d samples, want 3", len(samples))
	}
	if samples[0].EngineLoad != 48.2 {
		t.Errorf("earliest sample load = %v, want 48.2", samples[0].EngineLoad)
	}
	if samples[1].EquipmentID != "WL-02" {
		t.Errorf("middle sample id = %q, want WL-02", samples[1].EquipmentID)
	}
	for i := 1; i < len(samples); i++ {
		if samples[i].Timestamp.Before(samples[i-1].Timestamp) {
			t.Fatal("samples not sorted by timestamp")
		}
	}
}

func TestLoadTelemetry_BadTimestamp(t *testing.T) {
	path := writeFile(t, "telemetry.csv", "timestamp,equipment_id,engine_load\nyesterday,EX-01,50\n")
	if _, err := loadTelemetry(path); err == nil {
		t.Fatal("expected error for unparseable timestamp")
	}
}

func TestLoadRentals_OptionalFields(t *testing.T) {
	path := writeFile(t, "rentals.csv",
		"EquipmentID,Type,Status,CheckInDate,Latitude,Longitude,FuelLevel,EngineHours,HoursSinceService\n"+
			"EX-01,excavator,Rented,2025-08-01,40.7,-74.0,55,1200,300\n"+
			"WL-02,wheel_loader,available,,,,,,\n")

	records, err := loadRentals(path)
	if err != nil {
		t.Fatalf("loadRentals: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	full := records[0]
	if full.EquipmentID != "EX-01" || full.Type != "excavator" || full.Status != "rented" {
		t.Errorf("full record = %+v", full)
	}
	if full.CheckInDate == nil || !full.CheckInDate.Equal(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("check_in_date = %v", full.CheckInDate)
	}
	if full.FuelLevel == nil || *full.FuelLevel != 55 {
		t.Errorf("fuel_level = %v", full.FuelLevel)
	}
	if full.Latitude == nil || *full.Latitude != 40.7 {
		t.Errorf("latitude = %v", full.Latitude)
	}

	// Blank cells become nil, not zero values, so alert rules can tell
	// "unknown" apart from "empty tank at the origin".
	sparse := records[1]
	if sparse.CheckInDate != nil || sparse.Latitude != nil || sparse.FuelLevel != nil ||
		sparse.EngineHours != nil || sparse.HoursSinceService != nil {
		t.Errorf("sparse record has non-nil optionals: %+v", sparse)
	}
}

func TestLoadRentals_BadNumeric(t *testing.T) {
	path := writeFile(t, "rentals.csv", "equipment_id,type,status,fuel_level\nEX-01,excavator,rented,full\n")
	if _, err := loadRentals(path); err == nil {
		t.Fatal("expected error for non-numeric fuel level")
	}
}
