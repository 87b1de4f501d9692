package itq

import (
	"gonum.org/v1/gonum/mat"
)

// MaxBits is the widest code that fits into uint64
const MaxBits = 64

// Transform holds the ITQ rotation (D x B) and the mean vector (D).
// It is never modified after construction, so workers share it freely.
type Transform struct {
	rotation *mat.Dense
	mean     []float64
}

// NewTransform validates and copies rotation and mean
func NewTransform(rotation mat.Matrix, mean []float64) (*Transform, error) {
	if rotation == nil {
		return nil, &ShapeError{What: "rotation rows", Want: len(mean), Got: 0}
	}
	dims, bits := rotation.Dims()
	if err := checkShape(dims, bits, len(mean)); err != nil {
		return nil, err
	}
	m := make([]float64, len(mean))
	copy(m, mean)
	return &Transform{
		rotation: mat.DenseCopyOf(rotation),
		mean:     m,
	}, nil
}

// FromRaw builds a Transform from a row-major rotation slice
func FromRaw(dims, bits int, rotation, mean []float64) (*Transform, error) {
	if err := checkShape(dims, bits, len(mean)); err != nil {
		return nil, err
	}
	if len(rotation) != dims*bits {
		return nil, &ShapeError{What: "rotation elements", Want: dims * bits, Got: len(rotation)}
	}
	data := make([]float64, len(rotation))
	copy(data, rotation)
	m := make([]float64, len(mean))
	copy(m, mean)
	return &Transform{
		rotation: mat.NewDense(dims, bits, data),
		mean:     m,
	}, nil
}

func checkShape(dims, bits, meanLen int) error {
	if dims <= 0 {
		return &ShapeError{What: "rotation rows", Want: meanLen, Got: dims}
	}
	if bits <= 0 || bits > MaxBits {
		return &ShapeError{What: "rotation columns (code bits)", Want: MaxBits, Got: bits}
	}
	if dims != meanLen {
		return &ShapeError{What: "mean vector length", Want: dims, Got: meanLen}
	}
	return nil
}

// Dims returns input dimensionality D
func (t *Transform) Dims() int {
	r, _ := t.rotation.Dims()
	return r
}

// Bits returns code length B
func (t *Transform) Bits() int {
	_, c := t.rotation.Dims()
	return c
}

// Rotation returns a copy of the rotation matrix
func (t *Transform) Rotation() *mat.Dense {
	return mat.DenseCopyOf(t.rotation)
}

// Mean returns a copy of the mean vector
func (t *Transform) Mean() []float64 {
	m := make([]float64, len(t.mean))
	copy(m, t.mean)
	return m
}

// Quantize computes codes for a batch of vectors
func (t *Transform) Quantize(vectors [][]float64) ([]uint64, error) {
	return quantize(vectors, t.rotation, t.mean)
}

// Code computes the code of a single vector
func (t *Transform) Code(vec []float64) (uint64, error) {
	codes, err := quantize([][]float64{vec}, t.rotation, t.mean)
	if err != nil {
		return 0, err
	}
	return codes[0], nil
}
