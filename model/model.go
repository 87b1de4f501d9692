package model

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"

	"github.com/gasparian/smallcodes-go/itq"
)

// ErrFormat is returned for transform files which can't be decoded
var ErrFormat = errors.New("malformed transform data")

// encodable is the gob representation of itq.Transform
type encodable struct {
	Dims     int
	Bits     int
	Rotation []float64
	Mean     []float64
}

// Dump encodes transform as a byte-array
func Dump(t *itq.Transform) ([]byte, error) {
	rot := t.Rotation()
	rows, cols := rot.Dims()
	data := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		data = append(data, rot.RawRowView(i)...)
	}
	return encodeRaw(encodable{
		Dims:     rows,
		Bits:     cols,
		Rotation: data,
		Mean:     t.Mean(),
	})
}

func encodeRaw(enc encodable) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := gob.NewEncoder(buf).Encode(enc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load decodes transform from the byte-array
func Load(inp []byte) (*itq.Transform, error) {
	var enc encodable
	if err := gob.NewDecoder(bytes.NewReader(inp)).Decode(&enc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	t, err := itq.FromRaw(enc.Dims, enc.Bits, enc.Rotation, enc.Mean)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return t, nil
}

// WriteFile dumps transform to path.WRITING and renames it on top of path
func WriteFile(path string, t *itq.Transform) error {
	raw, err := Dump(t)
	if err != nil {
		return err
	}
	tmp := path + ".WRITING"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := f.Write(raw); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// FileLoader loads gob-encoded transform from Path
type FileLoader struct {
	Path string
}

// Load reads and decodes the file
func (l *FileLoader) Load() (*itq.Transform, error) {
	raw, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, err
	}
	return Load(raw)
}
