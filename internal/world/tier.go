package world

import "math"

// TierFromNormalizedDistance buckets norm (clamped to [0,1]) into
// maxTier-minTier+1 equal-width buckets. Distance 0 gets maxTier, the far
// edge gets minTier. norm == 1 falls into the last bucket.
func TierFromNormalizedDistance(norm, minTier, maxTier float64) int {
	lo := int(math.Floor(minTier))
	hi := max(int(math.Floor(maxTier)), lo)

	if math.IsNaN(norm) {
		norm = 0
	}
	norm = min(max(norm, 0), 1)

	buckets := hi - lo + 1
	index := min(int(math.Floor(norm*float64(buckets))), buckets-1)

	return min(max(hi-index, lo), hi)
}

// MaxDistanceInBounds returns the largest distance from (centerX, centerZ)
// to any world-space corner of bounds.
func MaxDistanceInBounds(b Bounds, cellSize, centerX, centerZ float64) float64 {
	r := b.WorldRect(cellSize)
	corners := [4][2]float64{
		{r.MinX, r.MinZ},
		{r.MinX, r.MaxZ},
		{r.MaxX, r.MinZ},
		{r.MaxX, r.MaxZ},
	}

	var best float64
	for _, c := range corners {
		best = max(best, math.Hypot(c[0]-centerX, c[1]-centerZ))
	}
	return best
}

// TierForPointDistanceMode returns the tier of point (x, z) by its distance
// to the center, normalized against the farthest corner of bounds.
func TierForPointDistanceMode(x, z float64, b Bounds, cellSize, centerX, centerZ, minTier, maxTier float64) int {
	maxDist := MaxDistanceInBounds(b, cellSize, centerX, centerZ)

	var norm float64
	if maxDist > 0 {
		norm = math.Hypot(x-centerX, z-centerZ) / maxDist
	}
	return TierFromNormalizedDistance(norm, minTier, maxTier)
}
