package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/born-ml/recurrent/internal/matrix"
)

// BornReader holds a decoded .born snapshot.
type BornReader struct {
	header   Header
	flags    uint32
	data     []byte
	checksum [ChecksumSize]byte
}

// ReaderOptions configures the behavior of BornReader.
type ReaderOptions struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level
}

// OpenFile reads the snapshot at path.
func OpenFile(path string, opts ReaderOptions) (*BornReader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close() // Read-only, close error carries nothing
	}()

	return NewReader(file, opts)
}

// NewReader reads a snapshot from r. The whole data section is loaded and
// its checksum verified unless opts says otherwise.
func NewReader(r io.Reader, opts ReaderOptions) (*BornReader, error) {
	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, fmt.Errorf("failed to read fixed header: %w", err)
	}
	if string(fixed[0:4]) != MagicBytes {
		return nil, fmt.Errorf("%w: got %q, expected %q", ErrInvalidMagic, fixed[0:4], MagicBytes)
	}
	if version := binary.LittleEndian.Uint32(fixed[4:8]); version != FormatVersion {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, version, FormatVersion)
	}

	reader := &BornReader{flags: binary.LittleEndian.Uint32(fixed[8:12])}
	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	copy(reader.checksum[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])

	if headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}
	if dataSize > MaxDataSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrDataTooLarge, dataSize)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header JSON: %w", err)
	}
	if err := json.Unmarshal(headerBytes, &reader.header); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize
	padding := dataOffset(int64(headerSize)) - FixedHeaderSize - int64(headerSize)
	if _, err := io.CopyN(io.Discard, r, padding); err != nil {
		return nil, fmt.Errorf("failed to read padding: %w", err)
	}

	reader.data = make([]byte, dataSize)
	if _, err := io.ReadFull(r, reader.data); err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}

	if !opts.SkipChecksumValidation {
		if err := ValidateChecksum(ComputeChecksum(reader.data), reader.checksum); err != nil {
			return nil, err
		}
	}

	if err := ValidateHeader(&reader.header, int64(len(reader.data)), opts.ValidationLevel); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return reader, nil
}

// Header returns the file header.
func (r *BornReader) Header() Header {
	return r.header
}

// Metadata returns the metadata map from the header.
func (r *BornReader) Metadata() map[string]string {
	return r.header.Metadata
}

// HasOptimizerState reports whether the writer stored checkpoint state.
func (r *BornReader) HasOptimizerState() bool {
	return r.flags&FlagHasOptimizer != 0
}

// TensorNames returns the names of all matrices in file order.
func (r *BornReader) TensorNames() []string {
	names := make([]string, len(r.header.Tensors))
	for i, meta := range r.header.Tensors {
		names[i] = meta.Name
	}
	return names
}

// TensorInfo returns information about a specific matrix.
func (r *BornReader) TensorInfo(name string) (*TensorMeta, error) {
	for i := range r.header.Tensors {
		if r.header.Tensors[i].Name == name {
			meta := r.header.Tensors[i]
			return &meta, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTensorNotFound, name)
}

// LoadMatrix decodes one matrix. Its deltas are zero.
func (r *BornReader) LoadMatrix(name string) (*matrix.Matrix, error) {
	meta, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}

	// Shape and bounds are checked even when validation was skipped.
	if err := ValidateTensorShape(*meta); err != nil {
		return nil, err
	}
	if meta.Offset < 0 || meta.Offset+meta.Size > int64(len(r.data)) {
		return nil, &ValidationError{
			Type:    "out_of_bounds",
			Tensor:  name,
			Details: fmt.Sprintf("offset %d + size %d > data_size %d", meta.Offset, meta.Size, len(r.data)),
		}
	}

	m := matrix.New(meta.Shape[0], meta.Shape[1])
	decodeFloats(r.data[meta.Offset:meta.Offset+meta.Size], m.Weights)
	return m, nil
}

// ReadStateDict decodes every matrix.
func (r *BornReader) ReadStateDict() (map[string]*matrix.Matrix, error) {
	stateDict := make(map[string]*matrix.Matrix, len(r.header.Tensors))
	for _, meta := range r.header.Tensors {
		m, err := r.LoadMatrix(meta.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to load tensor %s: %w", meta.Name, err)
		}
		stateDict[meta.Name] = m
	}
	return stateDict, nil
}

// ReadFrom reads a state dictionary and its header from reader with strict
// validation.
func ReadFrom(reader io.Reader) (map[string]*matrix.Matrix, Header, error) {
	r, err := NewReader(reader, ReaderOptions{ValidationLevel: ValidationStrict})
	if err != nil {
		return nil, Header{}, err
	}
	stateDict, err := r.ReadStateDict()
	if err != nil {
		return nil, Header{}, err
	}
	return stateDict, r.Header(), nil
}

// ReadBytes is ReadFrom over an in-memory snapshot.
func ReadBytes(data []byte) (map[string]*matrix.Matrix, Header, error) {
	return ReadFrom(bytes.NewReader(data))
}
