// Package confidence reduces per-token recognition confidences into a
// single page-level score.
package confidence

// Aggregate returns the arithmetic mean of the strictly-positive token
// confidences. Zero and negative values are sentinels for "no detection"
// and are discarded. With no positive values at all the score is 0.0.
func Aggregate(tokenConfidences []int) float64 {
	sum := 0
	count := 0
	for _, c := range tokenConfidences {
		if c <= 0 {
			continue
		}
		sum += c
		count++
	}
	if count == 0 {
		return 0.0
	}
	return float64(sum) / float64(count)
}
