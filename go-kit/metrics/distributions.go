package metrics

// A DistributionFunc returns the upper bounds of histogram buckets in
// increasing order, as used for Prometheus le labels. The +Inf bucket is
// implied and never part of the result. Every call returns a new slice.
type DistributionFunc func() []float64

// RequestDurationDistribution buckets HTTP request durations in milliseconds.
// Anything slower than half a second lands in +Inf.
func RequestDurationDistribution() []float64 {
	return []float64{0.10, 5, 15, 50, 100, 200, 300, 400, 500}
}

var (
	// FiveSecondDistribution buckets durations of up to 5000ms:
	//
	//	10, 55, 255, 505, 1255, 2505, 3755, 4505, 4755, 4955, 5000
	FiveSecondDistribution = TailHeavy(5000)

	// ThirtySecondDistribution buckets durations of up to 30000ms:
	//
	//	60, 330, 1530, 3030, 7530, 15030, 22530, 27030, 28530, 29730, 30000
	ThirtySecondDistribution = TailHeavy(30000)

	tailFractions = []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 0.75, 0.9, 0.95, 0.99, 0.999}
)

// TailHeavy returns buckets between 0 and max that are narrow at both ends
// and wide in the middle, so the p1 and p99 of an observation are resolved
// more finely than its median.
func TailHeavy(max float64) DistributionFunc {
	return Scaled(max, tailFractions)
}

// Scaled returns a bucket at each of fractions of max. The buckets are
// shifted up so that the last fraction lands on max. fractions must be
// increasing.
func Scaled(max float64, fractions []float64) DistributionFunc {
	fs := append([]float64(nil), fractions...)
	return func() []float64 {
		if len(fs) == 0 {
			return nil
		}
		shift := max - max*fs[len(fs)-1]
		bounds := make([]float64, len(fs))
		for i, f := range fs {
			bounds[i] = max*f + shift
		}
		return bounds
	}
}
