package model

// InventoryItem is the catalog entry for a countable item. The count
// engine reads it but never mutates it; current_stock is maintained by
// the stock movement listener and external catalog management.
type InventoryItem struct {
	BaseModel
	OrganizationID   string   `db:"organization_id" json:"organization_id"`
	TeamID           *string  `db:"team_id" json:"team_id"` // Nullable
	Name             string   `db:"name" json:"name"`
	SKU              *string  `db:"sku" json:"sku"`
	Barcode          *string  `db:"barcode" json:"barcode"`
	CategoryID       *string  `db:"category_id" json:"category_id"`
	MinimumThreshold *float64 `db:"minimum_threshold" json:"minimum_threshold"`
	MaximumThreshold *float64 `db:"maximum_threshold" json:"maximum_threshold"`
	UnitCost         *float64 `db:"unit_cost" json:"unit_cost"`
	PurchasePrice    *float64 `db:"purchase_price" json:"purchase_price"`
	CurrentStock     float64  `db:"current_stock" json:"current_stock"`
	IsActive         bool     `db:"is_active" json:"is_active"`
}
