package fx

import "sync"

// lTargets[parity][r_L][m] = the r value (mod kBC, relative to bucket_R's
// base) that an L entry with residue r_L must see in bucket_R for the pair
// to match under shift m (spec.md §4.2).
var (
	lTargetsOnce sync.Once
	lTargets     [2][BC][ExtraBitsPow]uint32
)

func buildLTargets() {
	for parity := 0; parity < 2; parity++ {
		for i := 0; i < BC; i++ {
			indJ := i / C
			for m := 0; m < ExtraBitsPow; m++ {
				yr := uint32((indJ+m)%B)*uint32(C) + uint32((sq(2*m+parity)+i)%C)
				lTargets[parity][i][m] = yr
			}
		}
	}
}

func sq(x int) int { return x * x }

// LTargets returns the precomputed match table, building it on first use.
func LTargets() *[2][BC][ExtraBitsPow]uint32 {
	lTargetsOnce.Do(buildLTargets)
	return &lTargets
}

// Bucket returns y/kBC, the BC-bucket index of a y value.
func Bucket(y uint64) uint64 {
	return y / BC
}

// Matches reports whether yL (in BC bucket b) and yR (in BC bucket b+1)
// satisfy the matching relation of spec.md §4.2:
//
//	parity = bucket(yL) mod 2
//	r_L = yL mod kBC, r_R = yR mod kBC
//	exists m in [0, 2^kExtraBits) such that
//	  (r_R/kC - r_L/kC) mod kB == m, and
//	  (r_R mod kC - r_L mod kC) mod kC == (2m+parity)^2 mod kC
func Matches(yL, yR uint64) bool {
	if Bucket(yR) != Bucket(yL)+1 {
		return false
	}

	parity := int(Bucket(yL) % 2)
	rL := int(yL % BC)
	rR := int(yR % BC)

	targets := LTargets()
	for m := 0; m < ExtraBitsPow; m++ {
		if int(targets[parity][rL][m]) == rR {
			return true
		}
	}

	return false
}

// MatchPair is an (L-index, R-index) pair of positions within two adjacent
// buckets that satisfy the matching relation.
type MatchPair struct {
	PosL uint32
	PosR uint32
}

// FindMatches returns every matching pair between bucketL (BC bucket b) and
// bucketR (BC bucket b+1), given only their y values. It builds a reverse
// index of bucketR's y-residues once, then probes it for each L entry's
// ExtraBitsPow candidate targets — the O(N + ExtraBitsPow*N) algorithm of
// spec.md §4.2, instead of the naive O(ExtraBitsPow*N^2) comparison.
func FindMatches(bucketL, bucketR []uint64) []MatchPair {
	if len(bucketL) == 0 || len(bucketR) == 0 {
		return nil
	}

	parity := int(Bucket(bucketL[0]) % 2)

	removeR := Bucket(bucketR[0]) * BC

	rmap := make(map[uint32][]uint32, len(bucketR))
	for posR, y := range bucketR {
		residue := uint32(y - removeR)
		rmap[residue] = append(rmap[residue], uint32(posR))
	}

	removeL := removeR - BC

	targets := LTargets()

	var matches []MatchPair

	for posL, y := range bucketL {
		r := uint32(y - removeL)
		for m := 0; m < ExtraBitsPow; m++ {
			target := targets[parity][r][m]
			for _, posR := range rmap[target] {
				matches = append(matches, MatchPair{PosL: uint32(posL), PosR: posR})
			}
		}
	}

	return matches
}
