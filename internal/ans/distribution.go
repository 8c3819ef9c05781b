package ans

import "math"

// tableLog is the log2 of the ANS table size used by every codec table,
// matching the reference's fixed tableLog = 14.
const tableLog = 14

// tableSize is 1<<tableLog, the total quanta CreateNormalizedCount
// distributes across symbols.
const tableSize = 1 << tableLog

// maxSymbols bounds the alphabet CreateNormalizedCount will ever produce
// (entries are single bytes, so 256 values plus the loop's own N<255 cap).
const maxSymbols = 255

// createNormalizedCount builds a per-symbol integer "count" distribution
// that sums to tableSize, approximating the geometric-ish PDF the reference
// derives from R: p(0) = 1-((e-1)/e)^(1/R), with a separate closed form for
// later symbols, terminated once p drops below 1e-50 or N reaches 255.
//
// Quanta are assigned by a greedy priority selection: each of the
// TOTAL_QUANTA-N leftover quanta goes to whichever symbol currently has the
// largest marginal log2(count) gain weighted by its probability mass.
// Symbols that end with count 1 are unreliable (true probability well below
// 1/tableSize) and are flagged by setting their count to -1, matching the
// reference's "use a lower-probability fallback" sentinel.
func createNormalizedCount(r float64) []int {
	const e = 2.718281828459
	const minProb = 1e-50

	var pdf []float64

	p := 1 - math.Pow((e-1)/e, 1.0/r)

	for n := 0; p > minProb && n < maxSymbols; n++ {
		pdf = append(pdf, p)

		nn := n + 1
		p = (math.Pow(e, 1.0/r) - 1) * math.Pow(e-1, 1.0/r)
		p /= math.Pow(e, float64(nn+1)/r)
	}

	n := len(pdf)
	counts := make([]int, n)
	for i := range counts {
		counts[i] = 1
	}

	gain := func(i int) float64 {
		return pdf[i] * (math.Log2(float64(counts[i]+1)) - math.Log2(float64(counts[i])))
	}

	for todo := 0; todo < tableSize-n; todo++ {
		best := 0

		for i := 1; i < n; i++ {
			if gain(i) > gain(best) {
				best = i
			}
		}

		counts[best]++
	}

	for i := range counts {
		if counts[i] == 1 {
			counts[i] = -1
		}
	}

	return counts
}
