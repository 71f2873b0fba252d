package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fleetsight/fleetsight/pkg/fleet"
)

// timestampLayouts are tried in order when parsing telemetry timestamps.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

const dateLayout = "2006-01-02"

// header maps lowercased column names to their positions, so files survive
// column reordering and capitalized exports.
type header map[string]int

func readHeader(r *csv.Reader) (header, error) {
	row, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	h := make(header, len(row))
	for i, name := range row {
		h[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return h, nil
}

// col returns the index of the first matching column name.
func (h header) col(names ...string) (int, error) {
	for _, name := range names {
		if i, ok := h[name]; ok {
			return i, nil
		}
	}
	return 0, fmt.Errorf("missing column %q", names[0])
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// loadDemand reads daily demand observations and returns them sorted by
// date ascending. The reference export names the columns ds/y; date/count
// is accepted as well.
func loadDemand(path string) ([]fleet.DemandObservation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	dateCol, err := h.col("date", "ds")
	if err != nil {
		return nil, err
	}
	countCol, err := h.col("count", "y", "observed_count")
	if err != nil {
		return nil, err
	}

	var out []fleet.DemandObservation
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		date, err := time.Parse(dateLayout, strings.TrimSpace(row[dateCol]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		count, err := strconv.ParseFloat(strings.TrimSpace(row[countCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, fleet.DemandObservation{Date: date, Count: count})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// loadTelemetry reads per-minute operational samples and returns them
// sorted by timestamp ascending.
func loadTelemetry(path string) ([]fleet.TelemetrySample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	tsCol, err := h.col("timestamp")
	if err != nil {
		return nil, err
	}
	idCol, err := h.col("equipment_id", "equipmentid")
	if err != nil {
		return nil, err
	}
	loadCol, err := h.col("engine_load", "engineload")
	if err != nil {
		return nil, err
	}

	var out []fleet.TelemetrySample
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		ts, err := parseTimestamp(row[tsCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		load, err := strconv.ParseFloat(strings.TrimSpace(row[loadCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, fleet.TelemetrySample{
			Timestamp:   ts,
			EquipmentID: strings.TrimSpace(row[idCol]),
			EngineLoad:  load,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// loadRentals reads the rental ledger export. Columns past equipment_id,
// type and status are optional per row; blank cells become nil fields so
// downstream rules can skip machines with missing inputs.
func loadRentals(path string) ([]fleet.EquipmentRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	idCol, err := h.col("equipment_id", "equipmentid")
	if err != nil {
		return nil, err
	}
	typeCol, err := h.col("type")
	if err != nil {
		return nil, err
	}
	statusCol, err := h.col("status")
	if err != nil {
		return nil, err
	}

	optFloat := func(row []string, names ...string) (*float64, error) {
		i, err := h.col(names...)
		if err != nil {
			return nil, nil
		}
		cell := strings.TrimSpace(row[i])
		if cell == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, err
		}
		return &v, nil
	}

	var out []fleet.EquipmentRecord
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rec := fleet.EquipmentRecord{
			EquipmentID: strings.TrimSpace(row[idCol]),
			Type:        strings.TrimSpace(row[typeCol]),
			Status:      strings.ToLower(strings.TrimSpace(row[statusCol])),
		}

		if i, err := h.col("check_in_date", "checkindate"); err == nil {
			if cell := strings.TrimSpace(row[i]); cell != "" {
				d, err := time.Parse(dateLayout, cell)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				rec.CheckInDate = &d
			}
		}

		fields := []struct {
			dst   **float64
			names []string
		}{
			{&rec.Latitude, []string{"latitude"}},
			{&rec.Longitude, []string{"longitude"}},
			{&rec.FuelLevel, []string{"fuel_level", "fuellevel"}},
			{&rec.EngineHours, []string{"engine_hours", "enginehours"}},
			{&rec.HoursSinceService, []string{"hours_since_service", "hourssinceservice"}},
		}
		for _, fld := range fields {
			v, err := optFloat(row, fld.names...)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			*fld.dst = v
		}

		out = append(out, rec)
	}

	return out, nil
}
