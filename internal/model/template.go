package model

// Template is a named subset of items used to scope a count. Templates
// are a read-only snapshot during a count.
type Template struct {
	BaseModel
	OrganizationID string  `db:"organization_id" json:"organization_id"`
	Name           string  `db:"name" json:"name"`
	Description    *string `db:"description" json:"description"`
	IsActive       bool    `db:"is_active" json:"is_active"`
}

// TemplateItem carries optional per-item threshold overrides that take
// precedence over every other threshold source when present.
type TemplateItem struct {
	ID               string   `db:"id" json:"id"`
	TemplateID       string   `db:"template_id" json:"template_id"`
	ItemID           string   `db:"item_id" json:"item_id"`
	ExpectedQuantity *float64 `db:"expected_quantity" json:"expected_quantity"`
	MinimumQuantity  *float64 `db:"minimum_quantity" json:"minimum_quantity"`
	MaximumQuantity  *float64 `db:"maximum_quantity" json:"maximum_quantity"`
	SortOrder        int      `db:"sort_order" json:"sort_order"`
}
