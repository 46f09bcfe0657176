package model

import "time"

const (
	CountStatusInProgress = "in_progress"
	CountStatusCompleted  = "completed"
	CountStatusCancelled  = "cancelled"
)

// CountSession is one pass of physically counting some or all items.
// Aggregates are derived from the item set while in progress and frozen
// at completion. Voiding marks a completed session as excluded from
// financial reporting without touching its items.
type CountSession struct {
	BaseModel
	OrganizationID       string    `db:"organization_id" json:"organization_id"`
	TeamID               *string   `db:"team_id" json:"team_id"`
	TemplateID           *string   `db:"template_id" json:"template_id"`
	ConductedBy          *string   `db:"conducted_by" json:"conducted_by"`
	CountDate            time.Time `db:"count_date" json:"count_date"`
	Status               string    `db:"status" json:"status"`
	IsVoided             bool      `db:"is_voided" json:"is_voided"`
	VoidReason           *string   `db:"void_reason" json:"void_reason"`
	Notes                *string   `db:"notes" json:"notes"`
	TotalItemsCount      int       `db:"total_items_count" json:"total_items_count"`
	VarianceCount        int       `db:"variance_count" json:"variance_count"`
	CompletionPercentage float64   `db:"completion_percentage" json:"completion_percentage"`
}

// CountItem is the per-item row within a session. InStockQuantity is
// the expected quantity snapshotted at session start; the template
// min/max are copied from the template entry at the same moment. Rows
// are never deleted.
type CountItem struct {
	ID                      string     `db:"id" json:"id"`
	CountID                 string     `db:"count_id" json:"count_id"`
	ItemID                  string     `db:"item_id" json:"item_id"`
	InStockQuantity         float64    `db:"in_stock_quantity" json:"in_stock_quantity"`
	ActualQuantity          *float64   `db:"actual_quantity" json:"actual_quantity"`
	TemplateMinimumQuantity *float64   `db:"template_minimum_quantity" json:"template_minimum_quantity"`
	TemplateMaximumQuantity *float64   `db:"template_maximum_quantity" json:"template_maximum_quantity"`
	CountedBy               *string    `db:"counted_by" json:"counted_by"`
	CountedAt               *time.Time `db:"counted_at" json:"counted_at"`
	Notes                   *string    `db:"notes" json:"notes"`
}
