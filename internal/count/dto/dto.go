package dto

import (
	"github.com/fekuna/omnipos-count-service/internal/model"
	"github.com/fekuna/omnipos-count-service/internal/threshold"
)

type CountFilters struct {
	OrganizationID string
	TeamID         *string
	Status         string
	IncludeVoided  bool
	Page           int
	PageSize       int
}

// CountItemDetail is a count item enriched for display: the catalog
// item, the live-resolved effective thresholds, the stock status of the
// relevant quantity, and the variance figures once counted.
type CountItemDetail struct {
	CountItem    model.CountItem      `json:"count_item"`
	Item         *model.InventoryItem `json:"item,omitempty"`
	EffectiveMin *float64             `json:"effective_min"`
	EffectiveMax *float64             `json:"effective_max"`
	Status       threshold.Status     `json:"status"`
	Variance     *float64             `json:"variance,omitempty"`
	VarianceCost *float64             `json:"variance_cost,omitempty"`
}
