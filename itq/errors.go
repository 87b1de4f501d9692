package itq

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch is returned whenever vector, rotation and mean dimensions disagree
var ErrShapeMismatch = errors.New("shape mismatch")

// ShapeError describes which dimension did not match
type ShapeError struct {
	What string
	Want int
	Got  int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%v: %s: want %d, got %d", ErrShapeMismatch, e.What, e.Want, e.Got)
}

// Unwrap makes errors.Is(err, ErrShapeMismatch) work
func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}
