package parallel

// Band is a half-open index range [Lo, Hi) of rows or columns.
type Band struct {
	Lo, Hi int
}

// Len returns the number of indices in the band.
func (b Band) Len() int {
	return b.Hi - b.Lo
}

// Bands splits [0, n) into at most parts contiguous bands of nearly equal
// length. The first n%parts bands are one index longer than the rest.
// It returns a single empty band when n <= 0.
func Bands(n, parts int) []Band {
	if n <= 0 {
		return []Band{{}}
	}
	if parts < 1 {
		parts = 1
	}
	if parts > n {
		parts = n
	}

	bands := make([]Band, parts)
	size, extra := n/parts, n%parts
	lo := 0
	for i := range bands {
		hi := lo + size
		if i < extra {
			hi++
		}
		bands[i] = Band{Lo: lo, Hi: hi}
		lo = hi
	}
	return bands
}
