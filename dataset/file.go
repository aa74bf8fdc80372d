package dataset

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/DrJDen31/tierann/internal/mmap"
)

// LoadFvecs reads a .fvecs file (per vector: little-endian int32 dimension
// followed by that many float32 components). maxVectors limits the number of
// vectors read; 0 reads the whole file.
func LoadFvecs(path string, maxVectors int) ([][]float32, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer m.Close()

	data := m.Bytes()
	var vectors [][]float32
	off := 0
	for off < len(data) {
		if maxVectors > 0 && len(vectors) >= maxVectors {
			break
		}
		dim, next, err := readDim(data, off, path)
		if err != nil {
			return nil, err
		}
		end := next + dim*4
		if end > len(data) {
			return nil, fmt.Errorf("dataset: truncated vector in %s at offset %d", path, off)
		}
		vec := make([]float32, dim)
		for d := 0; d < dim; d++ {
			bits := binary.LittleEndian.Uint32(data[next+d*4:])
			vec[d] = math.Float32frombits(bits)
		}
		vectors = append(vectors, vec)
		off = end
	}
	if err := checkUniformDim(vectors, path); err != nil {
		return nil, err
	}
	return vectors, nil
}

// LoadBvecs reads a .bvecs file (per vector: little-endian int32 dimension
// followed by that many uint8 components), widening components to float32.
func LoadBvecs(path string, maxVectors int) ([][]float32, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer m.Close()

	data := m.Bytes()
	var vectors [][]float32
	off := 0
	for off < len(data) {
		if maxVectors > 0 && len(vectors) >= maxVectors {
			break
		}
		dim, next, err := readDim(data, off, path)
		if err != nil {
			return nil, err
		}
		end := next + dim
		if end > len(data) {
			return nil, fmt.Errorf("dataset: truncated vector in %s at offset %d", path, off)
		}
		vec := make([]float32, dim)
		for d := 0; d < dim; d++ {
			vec[d] = float32(data[next+d])
		}
		vectors = append(vectors, vec)
		off = end
	}
	if err := checkUniformDim(vectors, path); err != nil {
		return nil, err
	}
	return vectors, nil
}

func readDim(data []byte, off int, path string) (dim, next int, err error) {
	if off+4 > len(data) {
		return 0, 0, fmt.Errorf("dataset: truncated header in %s at offset %d", path, off)
	}
	dim = int(int32(binary.LittleEndian.Uint32(data[off:])))
	if dim <= 0 {
		return 0, 0, fmt.Errorf("dataset: invalid dimension %d in %s at offset %d", dim, path, off)
	}
	return dim, off + 4, nil
}

func checkUniformDim(vectors [][]float32, path string) error {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	for i, vec := range vectors {
		if len(vec) != dim {
			return fmt.Errorf("dataset: mixed dimensions in %s: vector 0 has %d, vector %d has %d", path, dim, i, len(vec))
		}
	}
	return nil
}
