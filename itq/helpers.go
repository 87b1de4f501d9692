package itq

import (
	"gonum.org/v1/gonum/blas/blas64"
)

// NewVec creates new blas vector
func NewVec(data []float64) blas64.Vector {
	if data == nil {
		data = make([]float64, 0)
	}
	return blas64.Vector{
		N:    len(data),
		Inc:  1,
		Data: data,
	}
}

// center subtracts mean from row in place
func center(row, mean []float64) {
	blas64.Axpy(-1.0, NewVec(mean), NewVec(row))
}
