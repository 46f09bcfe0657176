package dto

import "time"

type ItemFilters struct {
	OrganizationID string
	TeamID         *string
	CategoryID     string
	IsActive       *bool
	SearchQuery    string
	Page           int
	PageSize       int
}

type MovementFilters struct {
	WarehouseID  string
	ItemID       string
	MovementType string
	StartDate    *time.Time
	EndDate      *time.Time
	Page         int
	PageSize     int
}
