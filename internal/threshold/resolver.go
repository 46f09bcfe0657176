package threshold

import (
	"time"

	"github.com/fekuna/omnipos-count-service/internal/model"
)

// Context bundles the optional threshold sources consulted by Resolve.
// Everything is supplied by the caller; resolution itself is pure.
type Context struct {
	// CountItem carries the template min/max snapshot, if the session
	// was started from a template.
	CountItem *model.CountItem
	// Warehouse supplies the warehouse-level default thresholds.
	Warehouse *model.WarehouseItem
	// DailySettings are the per-weekday overrides for the warehouse;
	// only the entry matching the item and target weekday applies.
	DailySettings []model.DailyThresholdSetting
	// Weekday is the target day. Nil means today.
	Weekday *time.Weekday
}

// Resolve produces the effective (min, max) pair for an item. Each
// bound cascades independently through the sources, highest precedence
// first: template snapshot, daily warehouse setting, warehouse default,
// item default. A bound with no configured source stays nil.
//
// No min <= max validation happens here; that is a data-entry concern
// for settings management.
func Resolve(item *model.InventoryItem, rc Context) (min, max *float64) {
	daily := rc.dailySetting(item)

	if rc.CountItem != nil {
		min = rc.CountItem.TemplateMinimumQuantity
		max = rc.CountItem.TemplateMaximumQuantity
	}
	if min == nil && daily != nil {
		min = daily.ReorderMin
	}
	if max == nil && daily != nil {
		max = daily.ReorderMax
	}
	if rc.Warehouse != nil {
		if min == nil {
			min = rc.Warehouse.ReorderMin
		}
		if max == nil {
			max = rc.Warehouse.ReorderMax
		}
	}
	if item != nil {
		if min == nil {
			min = item.MinimumThreshold
		}
		if max == nil {
			max = item.MaximumThreshold
		}
	}
	return min, max
}

func (rc Context) dailySetting(item *model.InventoryItem) *model.DailyThresholdSetting {
	if item == nil || len(rc.DailySettings) == 0 {
		return nil
	}

	day := int(time.Now().Weekday())
	if rc.Weekday != nil {
		day = int(*rc.Weekday)
	}

	for i := range rc.DailySettings {
		s := &rc.DailySettings[i]
		if s.ItemID == item.ID && s.DayOfWeek == day {
			return s
		}
	}
	return nil
}
