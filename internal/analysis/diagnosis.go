// Package analysis converts telemetry snapshots into structured diagnoses
// by calling the external prescriptive engine, with a local heuristic
// fallback when the engine is unavailable.
package analysis

import "fmt"

// Diagnosis type classifications, ordered by increasing concern.
const (
	TypeOptimal  = "Optimal"
	TypeWarning  = "Warning"
	TypeCritical = "Critical"
)

// Decision classes attached by the engine to frame operator risk.
const (
	DecisionOperate = "OPERATE"
	DecisionMonitor = "MONITOR"
	DecisionStop    = "STOP"
)

// Diagnosis is the structured verdict for one telemetry snapshot.
type Diagnosis struct {
	Summary         string       `json:"summary"`
	Type            string       `json:"type"`
	DecisionClass   string       `json:"decision_class,omitempty"`
	ConfidenceScore int          `json:"confidence_score,omitempty"`
	UrgencyScore    int          `json:"urgency_score"`
	Prescription    Prescription `json:"prescription"`
}

// Prescription carries the decision-ready guidance attached to a diagnosis.
type Prescription struct {
	Action               string       `json:"action"`
	Rationale            string       `json:"rationale"`
	EstimatedFixTime     string       `json:"estimated_fix_time,omitempty"`
	RootCauseProbability string       `json:"root_cause_probability,omitempty"`
	RequiredTools        []string     `json:"required_tools,omitempty"`
	RoleGuidance         RoleGuidance `json:"role_guidance"`
	VerificationProtocol []string     `json:"verification_protocol,omitempty"`
}

// RoleGuidance addresses each operating role separately.
type RoleGuidance struct {
	Owner           string `json:"owner"`
	MaintenanceLead string `json:"maintenance_lead"`
	Technician      string `json:"technician"`
}

// validate rejects engine responses that do not meet the contract. A
// rejected response is treated the same as a transport failure.
func (d *Diagnosis) validate() error {
	switch d.Type {
	case TypeOptimal, TypeWarning, TypeCritical:
	default:
		return fmt.Errorf("unknown diagnosis type %q", d.Type)
	}
	if d.UrgencyScore < 1 || d.UrgencyScore > 10 {
		return fmt.Errorf("urgency score %d outside 1-10", d.UrgencyScore)
	}
	return nil
}
