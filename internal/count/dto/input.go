package dto

type StartCountInput struct {
	OrganizationID string
	TeamID         *string
	TemplateID     *string
	ConductedBy    *string
	Notes          *string
}

type UpdateCountItemInput struct {
	CountID        string
	ItemID         string
	ActualQuantity float64
	Notes          *string
	CountedBy      *string
}
