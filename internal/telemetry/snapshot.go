// Package telemetry simulates crane sensor readings and the hidden
// component-wear metrics used for deep diagnosis.
package telemetry

import "time"

// Snapshot is one point-in-time reading of every telemetry channel plus the
// hidden wear fractions. Wear fractions run 0.0–1.0 where 1.0 means failure;
// they only ever grow (maintenance resets happen outside the simulator).
type Snapshot struct {
	Vibration         float64 `json:"vibration_mm_s"`
	Temperature       float64 `json:"temperature_c"`
	LoadCycles        int64   `json:"load_cycles"`
	MotorCurrent      float64 `json:"motor_current_a"`
	BrakeHealth       float64 `json:"brake_health_pct"`
	MotorHours        float64 `json:"motor_hours"`
	OilPressure       float64 `json:"oil_pressure_bar"`
	GearboxOilTemp    float64 `json:"gearbox_oil_temp_c"`
	HydraulicPressure float64 `json:"hydraulic_pressure_bar"`
	VoltageImbalance  float64 `json:"voltage_imbalance_pct"`

	MainBearingWear  float64 `json:"main_bearing"`
	HoistMotorWear   float64 `json:"hoist_motor"`
	CableTensionWear float64 `json:"cable_tension"`

	Timestamp time.Time `json:"timestamp"`
}
