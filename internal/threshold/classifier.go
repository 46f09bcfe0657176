package threshold

// Status is the stock-health classification of a quantity against an
// effective threshold pair.
type Status string

const (
	StatusUnderStock Status = "under_stock"
	StatusNormal     Status = "normal_stock"
	StatusOverStock  Status = "over_stock"
	StatusUndefined  Status = "undefined"
)

// Classify maps a quantity and effective thresholds to a Status.
// Comparison is strict: a quantity exactly at min or max is in range.
// When the bounds needed for a meaningful classification are absent the
// status is undefined.
func Classify(quantity float64, min, max *float64) Status {
	switch {
	case min != nil && quantity < *min:
		return StatusUnderStock
	case max != nil && quantity > *max:
		return StatusOverStock
	case min != nil && max != nil:
		return StatusNormal
	default:
		return StatusUndefined
	}
}
