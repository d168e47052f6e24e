package analysis

import "github.com/setevik/cranewatch/internal/telemetry"

// vibrationThreshold separates nominal vibration from warning territory
// when the heuristic has to stand in for the engine.
const vibrationThreshold = 4.0

// Fallback produces the deterministic heuristic diagnosis used whenever
// the engine is unreachable or its response is unusable. It never fails.
func Fallback(snap telemetry.Snapshot) Diagnosis {
	typ, urgency := TypeOptimal, 1
	if snap.Vibration > vibrationThreshold {
		typ, urgency = TypeWarning, 5
	}

	return Diagnosis{
		Summary:      "Heuristic analysis (engine unavailable)",
		Type:         typ,
		UrgencyScore: urgency,
		Prescription: Prescription{
			Action:    "Check Sensor Calibration",
			Rationale: "Simulated rationale based on heuristic.",
			RoleGuidance: RoleGuidance{
				Owner:           "Monitor for trends.",
				MaintenanceLead: "Verify spare parts inventory.",
				Technician:      "Inspect sensor mounting.",
			},
		},
	}
}
