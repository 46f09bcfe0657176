// Package variance holds the pure numeric functions for count
// discrepancy and its financial impact.
package variance

import (
	"math"

	"github.com/fekuna/omnipos-count-service/internal/model"
)

// DefaultTolerance is the absolute difference below which a count is
// treated as matching its expected quantity.
const DefaultTolerance = 0.01

// Variance is the signed difference between counted and expected
// quantity. Positive means overage, negative means shortage.
func Variance(actual, expected float64) float64 {
	return actual - expected
}

// HasVariance reports whether a variance exceeds the absolute
// tolerance.
func HasVariance(v, tolerance float64) bool {
	return math.Abs(v) > tolerance
}

// FinancialImpact is the signed monetary effect of a variance: positive
// is a gain, negative a loss.
func FinancialImpact(v, unitCost float64) float64 {
	return v * unitCost
}

// VarianceCost is the non-negative monetary magnitude of a discrepancy,
// regardless of direction.
func VarianceCost(actual, expected, unitCost float64) float64 {
	return math.Abs(actual-expected) * unitCost
}

// UnitCost resolves an item's unit cost for financial calculations,
// falling back unit_cost -> purchase_price -> 0.
func UnitCost(item *model.InventoryItem) float64 {
	if item == nil {
		return 0
	}
	if item.UnitCost != nil {
		return *item.UnitCost
	}
	if item.PurchasePrice != nil {
		return *item.PurchasePrice
	}
	return 0
}
