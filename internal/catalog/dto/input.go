package dto

type AdjustStockInput struct {
	WarehouseID    string
	ItemID         string
	QuantityChange float64
	Reason         string
	ReferenceID    string
	ReferenceType  string // 'adjustment', 'receiving', 'withdrawal'
	UserID         string
}
