package threshold

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		quantity float64
		min      *float64
		max      *float64
		want     Status
	}{
		{"below min", 4, f(5), f(20), StatusUnderStock},
		{"exactly at min is in range", 5, f(5), f(20), StatusNormal},
		{"inside band", 12, f(5), f(20), StatusNormal},
		{"exactly at max is in range", 20, f(5), f(20), StatusNormal},
		{"above max", 21, f(5), f(20), StatusOverStock},
		{"min minus one", 4, f(5), f(20), StatusUnderStock},
		{"max plus one", 21, f(5), f(20), StatusOverStock},
		{"only min, below it", 2, f(5), nil, StatusUnderStock},
		{"only min, at or above it", 5, f(5), nil, StatusUndefined},
		{"only max, above it", 25, nil, f(20), StatusOverStock},
		{"only max, within it", 10, nil, f(20), StatusUndefined},
		{"no thresholds", 7, nil, nil, StatusUndefined},
		{"zero quantity under min", 0, f(1), f(10), StatusUnderStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.quantity, tt.min, tt.max); got != tt.want {
				t.Fatalf("Classify(%v) = %s, want %s", tt.quantity, got, tt.want)
			}
		})
	}
}
