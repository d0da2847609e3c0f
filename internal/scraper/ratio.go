package scraper

import "math"

// ScaleRatio normalizes active into [0, 1] against the [scaleMin, scaleMax]
// window.
//
// active is clamped to the window before scaling, so values below scaleMin
// give 0 and values above scaleMax give 1. The result is rounded to four decimals.
// A degenerate window (scaleMax <= scaleMin) always gives 0.
func ScaleRatio(active, scaleMin, scaleMax int) float64 {
	span := scaleMax - scaleMin
	if span <= 0 {
		return 0
	}
	clamped := active
	if clamped > scaleMax {
		clamped = scaleMax
	}
	if clamped < scaleMin {
		clamped = scaleMin
	}
	ratio := float64(clamped-scaleMin) / float64(span)
	return math.Round(ratio*10000) / 10000
}
