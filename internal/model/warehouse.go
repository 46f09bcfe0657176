package model

import "time"

// WarehouseItem is the warehouse-scoped record of on-hand quantity and
// default reorder thresholds for an item.
type WarehouseItem struct {
	ID              string    `db:"id" json:"id"`
	WarehouseID     string    `db:"warehouse_id" json:"warehouse_id"`
	ItemID          string    `db:"item_id" json:"item_id"`
	OnHandQuantity  float64   `db:"on_hand_quantity" json:"on_hand_quantity"`
	ReorderMin      *float64  `db:"reorder_min" json:"reorder_min"`
	ReorderMax      *float64  `db:"reorder_max" json:"reorder_max"`
	AverageUnitCost *float64  `db:"average_unit_cost" json:"average_unit_cost"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// DailyThresholdSetting overrides the warehouse default thresholds for
// one weekday. DayOfWeek is 0 (Sunday) through 6 (Saturday).
type DailyThresholdSetting struct {
	ID          string   `db:"id" json:"id"`
	WarehouseID string   `db:"warehouse_id" json:"warehouse_id"`
	ItemID      string   `db:"item_id" json:"item_id"`
	DayOfWeek   int      `db:"day_of_week" json:"day_of_week"`
	ReorderMin  *float64 `db:"reorder_min" json:"reorder_min"`
	ReorderMax  *float64 `db:"reorder_max" json:"reorder_max"`
}

// StockMovement is the audit row written for every warehouse quantity
// change.
type StockMovement struct {
	ID             string    `db:"id" json:"id"`
	WarehouseID    string    `db:"warehouse_id" json:"warehouse_id"`
	ItemID         string    `db:"item_id" json:"item_id"`
	MovementType   string    `db:"movement_type" json:"movement_type"` // 'adjustment', 'receiving', 'withdrawal'
	QuantityChange float64   `db:"quantity_change" json:"quantity_change"`
	QuantityBefore float64   `db:"quantity_before" json:"quantity_before"`
	QuantityAfter  float64   `db:"quantity_after" json:"quantity_after"`
	ReferenceType  *string   `db:"reference_type" json:"reference_type"`
	ReferenceID    *string   `db:"reference_id" json:"reference_id"`
	Notes          string    `db:"notes" json:"notes"`
	CreatedBy      *string   `db:"created_by" json:"created_by"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
