//go:build !unix

package mmap

import "os"

// Fallback: read the whole file. Callers get the same Bytes()/Close() contract.
func osMap(path string) ([]byte, func([]byte) error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return data, nil, nil
}
