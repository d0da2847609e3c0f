package scraper

import "testing"

func TestScaleRatio(t *testing.T) {
	tests := []struct {
		name             string
		active, min, max int
		want             float64
	}{
		{"quarter", 2500, 0, 10000, 0.25},
		{"above max saturates", 15000, 0, 10000, 1.0},
		{"at max", 10000, 0, 10000, 1.0},
		{"below min saturates", 50, 100, 200, 0.0},
		{"at min", 100, 100, 200, 0.0},
		{"offset window", 150, 100, 200, 0.5},
		{"rounded to four places", 1, 0, 3, 0.3333},
		{"rounds half up", 2, 0, 3, 0.6667},
		{"negative window", -5, -10, 0, 0.5},
		{"degenerate equal", 500, 100, 100, 0.0},
		{"degenerate inverted", 500, 5000, 100, 0.0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ScaleRatio(tc.active, tc.min, tc.max); got != tc.want {
				t.Errorf("ScaleRatio(%d, %d, %d) = %v, want %v", tc.active, tc.min, tc.max, got, tc.want)
			}
		})
	}
}

func TestScaleRatio_BoundedAndMonotonic(t *testing.T) {
	windows := [][2]int{{0, 10000}, {100, 200}, {-50, 50}, {0, 1}, {7, 13}}
	for _, w := range windows {
		prev := -1.0
		for active := w[0] - 20; active <= w[1]+20; active++ {
			got := ScaleRatio(active, w[0], w[1])
			if got < 0 || got > 1 {
				t.Fatalf("window %v active %d: ratio %v outside [0,1]", w, active, got)
			}
			if got < prev {
				t.Fatalf("window %v active %d: ratio %v decreased from %v", w, active, got, prev)
			}
			prev = got
		}
		if got := ScaleRatio(w[0]-1000, w[0], w[1]); got != 0 {
			t.Errorf("window %v: below-window ratio = %v, want 0", w, got)
		}
		if got := ScaleRatio(w[1]+1000, w[0], w[1]); got != 1 {
			t.Errorf("window %v: above-window ratio = %v, want 1", w, got)
		}
	}
}

func TestScaleRatio_DegenerateNeverPanics(t *testing.T) {
	for _, active := range []int{-1, 0, 1, 1 << 30} {
		for _, w := range [][2]int{{0, 0}, {10, 0}, {-1, -1}} {
			if got := ScaleRatio(active, w[0], w[1]); got != 0 {
				t.Errorf("ScaleRatio(%d, %d, %d) = %v, want 0", active, w[0], w[1], got)
			}
		}
	}
}
