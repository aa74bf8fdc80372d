package hnsw

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/DrJDen31/tierann/distance"
	"github.com/DrJDen31/tierann/internal/visited"
	"github.com/DrJDen31/tierann/model"
	"github.com/DrJDen31/tierann/persistence"
)

// Snapshot format: 4-byte magic, 1-byte version, 1-byte compression, then a
// single compressed block holding config, vectors, and adjacency.
var snapshotMagic = [4]byte{'T', 'A', 'N', 'N'}

const snapshotVersion = 1

// WriteSnapshot writes the full snapshot encoding to w.
func (h *Index) WriteSnapshot(w io.Writer, compression persistence.Compression) error {
	header := []byte{snapshotMagic[0], snapshotMagic[1], snapshotMagic[2], snapshotMagic[3], snapshotVersion, byte(compression)}
	if _, err := w.Write(header); err != nil {
		return err
	}

	blob, err := persistence.CompressBlock(h.encodePayload(), compression)
	if err != nil {
		return err
	}
	_, err = w.Write(blob)
	return err
}

// ReadSnapshot decodes an index snapshot from r. Stored configuration
// (dimension, M, ef_construction, metric, topology) is authoritative; option
// functions can still set runtime-only fields such as the logger.
func ReadSnapshot(r io.Reader, optFns ...func(o *Options)) (*Index, error) {
	header := make([]byte, 6)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	if [4]byte(header[:4]) != snapshotMagic {
		return nil, errors.New("hnsw: not an index snapshot")
	}
	if header[4] != snapshotVersion {
		return nil, fmt.Errorf("hnsw: unsupported snapshot version %d", header[4])
	}
	compression := persistence.Compression(header[5])

	blob, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	payload, err := persistence.DecompressBlock(blob, compression)
	if err != nil {
		return nil, err
	}
	return decodePayload(payload, optFns)
}

// SaveToFile writes the index to filename atomically, compressing the
// payload with the given algorithm.
func (h *Index) SaveToFile(filename string, compression persistence.Compression) error {
	return persistence.SaveToFile(filename, func(w io.Writer) error {
		return h.WriteSnapshot(w, compression)
	})
}

// LoadFromFile reads an index snapshot from the local filesystem.
func LoadFromFile(filename string, optFns ...func(o *Options)) (*Index, error) {
	var h *Index
	err := persistence.LoadFromFile(filename, func(r io.Reader) error {
		var rerr error
		h, rerr = ReadSnapshot(r, optFns...)
		return rerr
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Index) encodePayload() []byte {
	dim := h.opts.Dimension
	size := 24 + 8 + len(h.vectors)*dim*4
	for i := range h.nodes {
		size += 4
		for _, nbrs := range h.nodes[i].neighbors {
			size += 4 + len(nbrs)*4
		}
	}
	buf := make([]byte, 0, size)

	buf = binary.LittleEndian.AppendUint32(buf, uint32(dim))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(h.opts.M))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(h.opts.EFConstruction))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(h.opts.Metric))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(h.entryPoint))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(h.maxLayer))

	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(h.vectors)))
	for _, vec := range h.vectors {
		for _, v := range vec {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
	}

	for i := range h.nodes {
		layers := h.nodes[i].neighbors
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(layers)))
		for _, nbrs := range layers {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(len(nbrs)))
			for _, id := range nbrs {
				buf = binary.LittleEndian.AppendUint32(buf, uint32(id))
			}
		}
	}
	return buf
}

func decodePayload(payload []byte, optFns []func(o *Options)) (*Index, error) {
	r := &payloadReader{data: payload}

	dim := int(r.uint32())
	m := int(r.uint32())
	efc := int(r.uint32())
	metric := distance.Metric(r.uint32())
	entryPoint := model.VectorID(r.uint32())
	maxLayer := int(r.uint32())

	numVectors := int(r.uint64())
	if r.err != nil {
		return nil, r.err
	}

	h, err := New(func(o *Options) {
		for _, fn := range optFns {
			fn(o)
		}
		o.Dimension = dim
		o.M = m
		o.EFConstruction = efc
		o.Metric = metric
	})
	if err != nil {
		return nil, err
	}

	h.vectors = make([][]float32, numVectors)
	for i := range h.vectors {
		vec := make([]float32, dim)
		for d := range vec {
			vec[d] = math.Float32frombits(r.uint32())
		}
		h.vectors[i] = vec
	}

	h.nodes = make([]node, numVectors)
	for i := range h.nodes {
		numLayers := int(r.uint32())
		if r.err != nil {
			return nil, r.err
		}
		layers := make([][]model.VectorID, numLayers)
		for l := range layers {
			degree := int(r.uint32())
			if r.err != nil {
				return nil, r.err
			}
			nbrs := make([]model.VectorID, degree)
			for j := range nbrs {
				nbrs[j] = model.VectorID(r.uint32())
			}
			layers[l] = nbrs
		}
		h.nodes[i].neighbors = layers
	}
	if r.err != nil {
		return nil, r.err
	}

	h.locks = make([]sync.Mutex, numVectors)
	h.entryPoint = entryPoint
	h.maxLayer = maxLayer
	h.visitedPool = sync.Pool{New: func() any {
		return visited.New(numVectors)
	}}
	return h, nil
}

type payloadReader struct {
	data []byte
	off  int
	err  error
}

func (r *payloadReader) uint32() uint32 {
	if r.err != nil {
		return 0
	}
	if r.off+4 > len(r.data) {
		r.err = errors.New("hnsw: truncated snapshot payload")
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *payloadReader) uint64() uint64 {
	if r.err != nil {
		return 0
	}
	if r.off+8 > len(r.data) {
		r.err = errors.New("hnsw: truncated snapshot payload")
		return 0
	}
	v := binary.LittleEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v
}
