package itq

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Quantize returns one B-bit code per vector, in input order:
// bit i of the code is set when ((v - mean) . rotation)[i] >= 0.
// Projected dimension 0 is the most significant bit of the code.
func Quantize(vectors [][]float64, rotation mat.Matrix, mean []float64) ([]uint64, error) {
	if rotation == nil {
		return nil, &ShapeError{What: "rotation rows", Want: len(mean), Got: 0}
	}
	dims, bits := rotation.Dims()
	if err := checkShape(dims, bits, len(mean)); err != nil {
		return nil, err
	}
	return quantize(vectors, rotation, mean)
}

func quantize(vectors [][]float64, rotation mat.Matrix, mean []float64) ([]uint64, error) {
	codes := make([]uint64, len(vectors))
	if len(vectors) == 0 {
		return codes, nil
	}
	dims := len(mean)
	centered := mat.NewDense(len(vectors), dims, nil)
	for i, vec := range vectors {
		if len(vec) != dims {
			return nil, &ShapeError{What: fmt.Sprintf("vector %d length", i), Want: dims, Got: len(vec)}
		}
		row := centered.RawRowView(i)
		copy(row, vec)
		center(row, mean)
	}
	var z mat.Dense
	z.Mul(centered, rotation)
	for i := range codes {
		codes[i] = packSigns(z.RawRowView(i))
	}
	return codes, nil
}

// packSigns treats z >= 0 (including -0) as 1, anything else (NaN included) as 0
func packSigns(z []float64) uint64 {
	var code uint64
	for _, v := range z {
		code <<= 1
		if v >= 0 {
			code |= 1
		}
	}
	return code
}

// PackBits packs bits into an integer, first bit most significant
func PackBits(bits []bool) uint64 {
	var code uint64
	for _, b := range bits {
		code <<= 1
		if b {
			code |= 1
		}
	}
	return code
}
