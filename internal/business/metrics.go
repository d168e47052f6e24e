// Package business derives the dashboard's financial and availability
// figures. Read-only; nothing here can fail.
package business

import (
	"math"
	"math/rand"
)

// Metrics is the derived business view served to the dashboard.
type Metrics struct {
	UptimePct              float64 `json:"uptime_pct"`
	MaintenanceSpend       int     `json:"maintenance_spend"`
	MaintenanceBudget      int     `json:"maintenance_budget"`
	AvoidedDowntimeSavings int     `json:"avoided_downtime_savings"`
	ActiveAssets           int     `json:"active_assets"`
	TotalAssets            int     `json:"total_assets"`
}

// View recomputes uptime on every read; the remaining figures are fixed
// configuration values.
type View struct {
	spend   int
	budget  int
	savings int
	active  int
	total   int
}

// NewView creates a metrics view over the configured static figures.
func NewView(spend, budget, savings, active, total int) *View {
	return &View{
		spend:   spend,
		budget:  budget,
		savings: savings,
		active:  active,
		total:   total,
	}
}

// Current returns the metrics with a freshly drawn uptime percentage.
func (v *View) Current() Metrics {
	return Metrics{
		UptimePct:              math.Round((98.0+rand.Float64()*1.5)*100) / 100,
		MaintenanceSpend:       v.spend,
		MaintenanceBudget:      v.budget,
		AvoidedDowntimeSavings: v.savings,
		ActiveAssets:           v.active,
		TotalAssets:            v.total,
	}
}
