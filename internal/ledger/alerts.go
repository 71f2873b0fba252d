package ledger

import (
	"fmt"
	"math"
	"time"

	"github.com/fleetsight/fleetsight/pkg/fleet"
	"github.com/google/uuid"
)

const earthRadiusKm = 6371.0

// haversineKm returns the great-circle distance between two coordinates.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// EvaluateAlerts runs every alert rule against one ledger row. Rules whose
// inputs are absent are skipped; a machine with no GPS fix simply produces
// no geofence finding rather than a false one.
func EvaluateAlerts(rec fleet.EquipmentRecord, cfg Config, now time.Time) []fleet.Alert {
	var alerts []fleet.Alert

	if rec.Latitude != nil && rec.Longitude != nil {
		dist := haversineKm(cfg.SiteLatitude, cfg.SiteLongitude, *rec.Latitude, *rec.Longitude)
		if dist > cfg.GeofenceRadiusKm {
			severity := "warning"
			if dist > 2*cfg.GeofenceRadiusKm {
				severity = "critical"
			}
			alerts = append(alerts, fleet.Alert{
				ID:          uuid.NewString(),
				EquipmentID: rec.EquipmentID,
				Kind:        fleet.AlertGeofence,
				Severity:    severity,
				Message:     fmt.Sprintf("%.1f km from site, geofence is %.1f km", dist, cfg.GeofenceRadiusKm),
				Value:       dist,
				Limit:       cfg.GeofenceRadiusKm,
				RaisedAt:    now,
			})
		}
	}

	if rec.FuelLevel != nil && *rec.FuelLevel < cfg.LowFuelThreshold {
		severity := "warning"
		if *rec.FuelLevel < cfg.LowFuelThreshold/3 {
			severity = "critical"
		}
		alerts = append(alerts, fleet.Alert{
			ID:          uuid.NewString(),
			EquipmentID: rec.EquipmentID,
			Kind:        fleet.AlertFuel,
			Severity:    severity,
			Message:     fmt.Sprintf("fuel at %.0f%%, threshold %.0f%%", *rec.FuelLevel, cfg.LowFuelThreshold),
			Value:       *rec.FuelLevel,
			Limit:       cfg.LowFuelThreshold,
			RaisedAt:    now,
		})
	}

	if rec.HoursSinceService != nil && *rec.HoursSinceService > cfg.ServiceDueHours {
		alerts = append(alerts, fleet.Alert{
			ID:          uuid.NewString(),
			EquipmentID: rec.EquipmentID,
			Kind:        fleet.AlertTelemetry,
			Severity:    "warning",
			Message:     fmt.Sprintf("%.0f engine hours since service, due at %.0f", *rec.HoursSinceService, cfg.ServiceDueHours),
			Value:       *rec.HoursSinceService,
			Limit:       cfg.ServiceDueHours,
			RaisedAt:    now,
		})
	}

	return alerts
}

// EvaluateFleetAlerts runs the rules across the whole ledger.
func EvaluateFleetAlerts(records []fleet.EquipmentRecord, cfg Config, now time.Time) []fleet.Alert {
	var alerts []fleet.Alert
	for _, rec := range records {
		alerts = append(alerts, EvaluateAlerts(rec, cfg, now)...)
	}
	return alerts
}
