package persistence

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.bin")
	payload := []byte("hello snapshot")

	err := SaveToFile(path, func(w io.Writer) error {
		_, err := w.Write(payload)
		return err
	})
	require.NoError(t, err)

	var got []byte
	err = LoadFromFile(path, func(r io.Reader) error {
		var err error
		got, err = io.ReadAll(r)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestSaveToFile_FailedWriteLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.bin")

	err := SaveToFile(path, func(io.Writer) error {
		return errors.New("boom")
	})
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	// No temp files left behind either.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveToFile_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.bin")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	err := SaveToFile(path, func(w io.Writer) error {
		_, err := w.Write([]byte("new"))
		return err
	})
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got)
}

func TestCompressBlock_RoundTrip(t *testing.T) {
	// Repetitive data compresses under every algorithm.
	data := bytes.Repeat([]byte("tiered-ann-block-"), 512)

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			blob, err := CompressBlock(data, c)
			require.NoError(t, err)

			if c != CompressionNone {
				assert.Less(t, len(blob), len(data))
			}

			got, err := DecompressBlock(blob, c)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestCompressBlock_IncompressibleStoredRaw(t *testing.T) {
	// High-entropy bytes fall back to raw storage but still round-trip.
	data := make([]byte, 256)
	state := uint32(2463534242)
	for i := range data {
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
		data[i] = byte(state)
	}

	blob, err := CompressBlock(data, CompressionLZ4)
	require.NoError(t, err)

	got, err := DecompressBlock(blob, CompressionLZ4)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestDecompressBlock_Truncated(t *testing.T) {
	_, err := DecompressBlock([]byte{1, 2, 3}, CompressionZSTD)
	assert.Error(t, err)
}
