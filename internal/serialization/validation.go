package serialization

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Limits applied to every file before any matrix data is touched.
const (
	MaxHeaderSize    = 100 << 20 // header JSON bytes
	MaxDataSize      = 1 << 32   // data section bytes
	MaxTensorCount   = 100_000
	MaxTensorNameLen = 4096
)

// ValidationLevel controls how much of a header is checked on read.
type ValidationLevel int

const (
	// ValidationStrict checks names, shapes and data offsets.
	ValidationStrict ValidationLevel = iota
	// ValidationNormal checks names and shapes but not offsets.
	ValidationNormal
	// ValidationNone trusts the header as written.
	ValidationNone
)

func invalid(kind, tensor, format string, args ...any) *ValidationError {
	return &ValidationError{Type: kind, Tensor: tensor, Details: fmt.Sprintf(format, args...)}
}

func checkCount(n int) error {
	if n > MaxTensorCount {
		return invalid("too_many_tensors", "", "got %d, max %d", n, MaxTensorCount)
	}
	return nil
}

// ValidateTensorOffsets checks that every matrix lies inside the data
// section and that no two matrices share bytes.
func ValidateTensorOffsets(tensors []TensorMeta, dataSize int64) error {
	if err := checkCount(len(tensors)); err != nil {
		return err
	}

	byOffset := slices.Clone(tensors)
	slices.SortFunc(byOffset, func(a, b TensorMeta) int {
		if a.Offset != b.Offset {
			return cmp.Compare(a.Offset, b.Offset)
		}
		return cmp.Compare(a.Size, b.Size)
	})

	var prev *TensorMeta
	for i := range byOffset {
		t := &byOffset[i]
		end := t.Offset + t.Size
		switch {
		case t.Offset < 0 || t.Size < 0:
			return invalid("negative_offset", t.Name, "offset=%d, size=%d", t.Offset, t.Size)
		case end > dataSize:
			return invalid("out_of_bounds", t.Name, "ends at %d, data section holds %d bytes", end, dataSize)
		case prev != nil && prev.Offset+prev.Size > t.Offset:
			err := invalid("offset_overlap", prev.Name, "[%d, %d) and [%d, %d)",
				prev.Offset, prev.Offset+prev.Size, t.Offset, end)
			err.Tensor2 = t.Name
			return err
		}
		prev = t
	}
	return nil
}

// ValidateTensorName rejects empty or oversized names and anything that
// looks like a path.
func ValidateTensorName(name string) error {
	switch {
	case name == "":
		return invalid("invalid_name", "", "empty tensor name")
	case len(name) > MaxTensorNameLen:
		return invalid("name_too_long", name, "length %d > max %d", len(name), MaxTensorNameLen)
	case strings.Contains(name, ".."):
		return invalid("invalid_name", name, "contains '..'")
	case strings.ContainsAny(name, "/\\"):
		return invalid("invalid_name", name, "contains a path separator")
	case strings.ContainsRune(name, 0):
		return invalid("invalid_name", name, "contains a null byte")
	}
	return nil
}

// ValidateTensorShape checks that meta describes a float64 matrix whose
// byte size matches its shape.
func ValidateTensorShape(meta TensorMeta) error {
	if meta.DType != DTypeFloat64 {
		return invalid("unsupported_dtype", meta.Name, "dtype %q, want %q", meta.DType, DTypeFloat64)
	}
	if len(meta.Shape) != 2 || meta.Shape[0] < 0 || meta.Shape[1] < 0 {
		return invalid("invalid_shape", meta.Name, "shape %v is not [rows, columns]", meta.Shape)
	}
	if want := int64(meta.Shape[0]) * int64(meta.Shape[1]) * bytesPerValue; meta.Size != want {
		return invalid("size_mismatch", meta.Name, "size %d, shape %v needs %d", meta.Size, meta.Shape, want)
	}
	return nil
}

// ValidateHeader checks h at the given level. dataSize is the length of
// the data section that follows the header.
func ValidateHeader(h *Header, dataSize int64, level ValidationLevel) error {
	if level == ValidationNone {
		return nil
	}
	if err := checkCount(len(h.Tensors)); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(h.Tensors))
	for _, t := range h.Tensors {
		if err := ValidateTensorName(t.Name); err != nil {
			return err
		}
		if _, dup := seen[t.Name]; dup {
			return invalid("duplicate_name", t.Name, "name appears twice")
		}
		seen[t.Name] = struct{}{}
		if err := ValidateTensorShape(t); err != nil {
			return err
		}
	}

	if level == ValidationStrict {
		return ValidateTensorOffsets(h.Tensors, dataSize)
	}
	return nil
}
