package trajectory

// Locate finds the tightest bracket (low, high) with ys[low] <= q <= ys[high]
// and high-low <= 1 by bisection. ys must be non-decreasing.
//
// A midpoint equal to q ends the search at (mid, mid). Queries outside
// [ys[0], ys[n-1]] are not clamped; they converge to the edge bracket and
// Lerp clamps them.
func Locate(ys []float64, q float64) Bracket {
	n := len(ys)
	if n <= 1 {
		return Bracket{}
	}
	low, high := 0, n-1
	for high-low > 1 {
		mid := (low + high) / 2
		switch {
		case ys[mid] < q:
			low = mid
		case ys[mid] > q:
			high = mid
		default:
			return Bracket{Low: mid, High: mid}
		}
	}
	return Bracket{Low: low, High: high}
}

// Lerp interpolates between aVal and bVal by the position of q between aKey
// and bKey. q is clamped into [aKey, bKey]; callers pass aKey <= bKey.
// Coincident keys return aVal.
func Lerp(aVal, bVal, aKey, bKey, q float64) float64 {
	if aKey == bKey {
		return aVal
	}
	if q > bKey {
		q = bKey
	}
	if q < aKey {
		q = aKey
	}
	t := (q - aKey) / (bKey - aKey)
	return aVal*(1-t) + bVal*t
}
