package ledger

import (
	"time"

	"github.com/fleetsight/fleetsight/pkg/fleet"
)

func (c *Config) emissionFactor(equipmentType string) float64 {
	if f, ok := c.EmissionFactors[equipmentType]; ok {
		return f
	}
	return c.DefaultEmissionFactor
}

// BuildEmissionsReport estimates lifetime CO2 per machine from engine hours
// and the configured per-type factor buckets. Machines with unknown engine
// hours are left out of the report rather than counted as zero.
func BuildEmissionsReport(records []fleet.EquipmentRecord, cfg Config, now time.Time) fleet.EmissionsReport {
	report := fleet.EmissionsReport{
		GeneratedAt: now,
		ByType:      make(map[string]float64),
	}

	for _, rec := range records {
		if rec.EngineHours == nil {
			continue
		}
		factor := cfg.emissionFactor(rec.Type)
		co2 := *rec.EngineHours * factor

		report.Entries = append(report.Entries, fleet.EmissionsEntry{
			EquipmentID:     rec.EquipmentID,
			Type:            rec.Type,
			EngineHours:     *rec.EngineHours,
			FactorKgPerHour: factor,
			CO2Kg:           co2,
		})
		report.ByType[rec.Type] += co2
		report.TotalCO2Kg += co2
	}

	return report
}
