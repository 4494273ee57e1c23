package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/born-ml/recurrent/internal/matrix"
)

// BornWriter writes snapshots in .born format to a file.
type BornWriter struct {
	file   *os.File
	closed bool
}

// NewBornWriter creates a new .born file writer.
func NewBornWriter(path string) (*BornWriter, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return &BornWriter{file: file}, nil
}

// WriteStateDict writes the named matrices with header.
func (w *BornWriter) WriteStateDict(stateDict map[string]*matrix.Matrix, header Header) error {
	if w.closed {
		return ErrWriterClosed
	}
	return WriteTo(w.file, stateDict, header)
}

// Close closes the writer and the underlying file.
func (w *BornWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// WriteFile writes stateDict to path.
func WriteFile(path string, stateDict map[string]*matrix.Matrix, header Header) error {
	w, err := NewBornWriter(path)
	if err != nil {
		return err
	}
	if err := w.WriteStateDict(stateDict, header); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// WriteTo writes stateDict in .born format to writer.
//
// The format version and creation time are always set; an empty ID is
// replaced by a new UUID. Matrices are laid out in name order.
func WriteTo(writer io.Writer, stateDict map[string]*matrix.Matrix, header Header) error {
	names := make([]string, 0, len(stateDict))
	for name, m := range stateDict {
		if m == nil {
			return fmt.Errorf("tensor %q is nil", name)
		}
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	header.FormatVersion = FormatVersion
	header.CreatedAt = time.Now().UTC()
	if header.ID == "" {
		header.ID = uuid.NewString()
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	header.Tensors = make([]TensorMeta, 0, len(names))
	var data bytes.Buffer
	for _, name := range names {
		m := stateDict[name]
		size := int64(m.Len() * bytesPerValue)
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  DTypeFloat64,
			Shape:  []int{m.Rows, m.Columns},
			Offset: int64(data.Len()),
			Size:   size,
		})
		data.Write(encodeFloats(m.Weights))
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if len(headerJSON) > MaxHeaderSize {
		return ErrHeaderTooLarge
	}

	checksum := ComputeChecksum(data.Bytes())

	flags := uint32(0)
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if header.CheckpointMeta != nil {
		flags |= FlagHasOptimizer
	}

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(fixed[8:12], flags)
	// 0x0C-0x0F reserved
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(data.Len()))
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	if _, err := writer.Write(fixed); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := writer.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header JSON: %w", err)
	}

	headerSize := int64(len(headerJSON))
	if padding := dataOffset(headerSize) - FixedHeaderSize - headerSize; padding > 0 {
		if _, err := writer.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}

	if _, err := writer.Write(data.Bytes()); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}
	return nil
}

func encodeFloats(values []float64) []byte {
	out := make([]byte, len(values)*bytesPerValue)
	for i, v := range values {
		binary.LittleEndian.PutUint64(out[i*bytesPerValue:], math.Float64bits(v))
	}
	return out
}

func decodeFloats(data []byte, values []float64) {
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*bytesPerValue:]))
	}
}
