package dto

import "time"

type ReportFilters struct {
	OrganizationID string
	TeamID         *string
}

// SessionVarianceRow is one completed session in the financial report.
// Voided sessions stay visible for audit but carry zero cost and
// impact.
type SessionVarianceRow struct {
	CountID              string    `json:"count_id"`
	CountDate            time.Time `json:"count_date"`
	TeamID               *string   `json:"team_id"`
	IsVoided             bool      `json:"is_voided"`
	TotalItemsCount      int       `json:"total_items_count"`
	VarianceCount        int       `json:"variance_count"`
	CompletionPercentage float64   `json:"completion_percentage"`
	VarianceCost         float64   `json:"variance_cost"`
	FinancialImpact      float64   `json:"financial_impact"`
}

type VarianceSummary struct {
	Sessions           []SessionVarianceRow `json:"sessions"`
	SessionCount       int                  `json:"session_count"`
	VoidedCount        int                  `json:"voided_count"`
	TotalVarianceCost  float64              `json:"total_variance_cost"`
	NetFinancialImpact float64              `json:"net_financial_impact"`
}
