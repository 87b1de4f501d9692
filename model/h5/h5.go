package h5

import (
	"fmt"

	"github.com/gasparian/smallcodes-go/itq"
	"github.com/gasparian/smallcodes-go/model"
	"gonum.org/v1/hdf5"
)

// Default dataset names inside the model file
const (
	RotationDataset = "rotation"
	MeanDataset     = "mean"
)

// Loader reads ITQ rotation (D x B) and mean (D) datasets from a hdf5 file
type Loader struct {
	Path         string
	RotationName string
	MeanName     string
}

// Load opens the file and reads both datasets
func (l *Loader) Load() (*itq.Transform, error) {
	f, err := hdf5.OpenFile(l.Path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rotName, meanName := l.RotationName, l.MeanName
	if len(rotName) == 0 {
		rotName = RotationDataset
	}
	if len(meanName) == 0 {
		meanName = MeanDataset
	}
	rotation, rotDims, err := readDataset(f, rotName)
	if err != nil {
		return nil, err
	}
	if len(rotDims) != 2 {
		return nil, fmt.Errorf("%w: %s must be 2-d, got %d-d", model.ErrFormat, rotName, len(rotDims))
	}
	mean, meanDims, err := readDataset(f, meanName)
	if err != nil {
		return nil, err
	}
	if len(meanDims) != 1 {
		return nil, fmt.Errorf("%w: %s must be 1-d, got %d-d", model.ErrFormat, meanName, len(meanDims))
	}
	t, err := itq.FromRaw(int(rotDims[0]), int(rotDims[1]), rotation, mean)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrFormat, err)
	}
	return t, nil
}

// readDataset returns flat row-major dataset values and its shape
func readDataset(f *hdf5.File, name string) ([]float64, []uint, error) {
	dataset, err := f.OpenDataset(name)
	if err != nil {
		return nil, nil, err
	}
	defer dataset.Close()

	space := dataset.Space()
	defer space.Close()
	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return nil, nil, err
	}
	data := make([]float64, space.SimpleExtentNPoints())
	if err := dataset.Read(&data); err != nil {
		return nil, nil, err
	}
	return data, dims, nil
}

// Write stores transform into a new hdf5 file
func Write(path string, t *itq.Transform) error {
	f, err := hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	if err != nil {
		return err
	}
	defer f.Close()

	rot := t.Rotation()
	rows, cols := rot.Dims()
	data := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		data = append(data, rot.RawRowView(i)...)
	}
	if err := writeDataset(f, RotationDataset, []uint{uint(rows), uint(cols)}, data); err != nil {
		return err
	}
	return writeDataset(f, MeanDataset, []uint{uint(rows)}, t.Mean())
}

func writeDataset(f *hdf5.File, name string, dims []uint, data []float64) error {
	space, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return err
	}
	defer space.Close()
	dataset, err := f.CreateDataset(name, hdf5.T_NATIVE_DOUBLE, space)
	if err != nil {
		return err
	}
	defer dataset.Close()
	return dataset.Write(&data)
}
