package itq

import (
	"math/bits"

	"gonum.org/v1/gonum/stat/combin"
)

// Hamming returns the number of differing bits
func Hamming(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// NeighborCodes returns every code of length bitLen that is exactly
// distance bits away from code. distance is clamped to bitLen.
func NeighborCodes(bitLen int, code uint64, distance int) []uint64 {
	if distance <= 0 || bitLen <= 0 {
		return []uint64{code}
	}
	if bitLen > MaxBits {
		bitLen = MaxBits
	}
	if distance > bitLen {
		distance = bitLen
	}
	n := combin.Binomial(bitLen, distance)
	res := make([]uint64, 0, n)
	mask := uint64(1)<<uint(distance) - 1
	for i := 0; i < n; i++ {
		res = append(res, code^mask)
		if i < n-1 {
			mask = nextPerm(mask)
		}
	}
	return res
}

// nextPerm gives the lexicographically next value with the same number of set bits
func nextPerm(v uint64) uint64 {
	t := (v | (v - 1)) + 1
	return t | ((((t & -t) / (v & -v)) >> 1) - 1)
}
