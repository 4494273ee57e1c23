package serialization

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// meta describes a rows×cols float64 matrix at offset.
func meta(name string, rows, cols int, offset int64) TensorMeta {
	return TensorMeta{
		Name:   name,
		DType:  DTypeFloat64,
		Shape:  []int{rows, cols},
		Offset: offset,
		Size:   int64(rows * cols * bytesPerValue),
	}
}

func validationType(t *testing.T, err error) string {
	t.Helper()
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr), "expected ValidationError, got %T", err)
	return validationErr.Type
}

func TestValidateTensorOffsets(t *testing.T) {
	tests := []struct {
		name     string
		tensors  []TensorMeta
		dataSize int64
		wantType string
	}{
		{
			name:     "no overlap",
			tensors:  []TensorMeta{{Name: "a", Size: 100}, {Name: "b", Offset: 100, Size: 200}},
			dataSize: 300,
		},
		{
			name:     "overlap by one byte",
			tensors:  []TensorMeta{{Name: "a", Size: 100}, {Name: "b", Offset: 99, Size: 100}},
			dataSize: 200,
			wantType: "offset_overlap",
		},
		{
			name:     "beyond data",
			tensors:  []TensorMeta{{Name: "a", Offset: 100, Size: 200}},
			dataSize: 250,
			wantType: "out_of_bounds",
		},
		{
			name:     "negative offset",
			tensors:  []TensorMeta{{Name: "a", Offset: -100, Size: 100}},
			dataSize: 500,
			wantType: "negative_offset",
		},
		{
			name:     "negative size",
			tensors:  []TensorMeta{{Name: "a", Size: -1}},
			dataSize: 500,
			wantType: "negative_offset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTensorOffsets(tt.tensors, tt.dataSize)
			if tt.wantType == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantType, validationType(t, err))
		})
	}
}

func TestValidateTensorOffsets_TooManyTensors(t *testing.T) {
	tensors := make([]TensorMeta, MaxTensorCount+1)
	err := ValidateTensorOffsets(tensors, 0)
	assert.Equal(t, "too_many_tensors", validationType(t, err))
}

func TestValidateTensorName(t *testing.T) {
	bad := []string{
		"",
		"../../../etc/passwd",
		"..\\..\\windows\\system32",
		"hidden/0/weight",
		"tensor\x00hidden",
		strings.Repeat("a", MaxTensorNameLen+1),
	}
	for _, name := range bad {
		err := ValidateTensorName(name)
		assert.Contains(t, []string{"invalid_name", "name_too_long"}, validationType(t, err), "%q", name)
	}

	for _, name := range []string{"input.0", "hidden.1.transition", "output:bias", "cache.12"} {
		assert.NoError(t, ValidateTensorName(name), name)
	}
}

func TestValidateTensorShape(t *testing.T) {
	assert.NoError(t, ValidateTensorShape(meta("w", 3, 4, 0)))
	assert.NoError(t, ValidateTensorShape(meta("empty", 0, 4, 0)))

	wrongType := meta("w", 3, 4, 0)
	wrongType.DType = "float32"
	assert.Equal(t, "unsupported_dtype", validationType(t, ValidateTensorShape(wrongType)))

	wrongRank := meta("w", 3, 4, 0)
	wrongRank.Shape = []int{12}
	assert.Equal(t, "invalid_shape", validationType(t, ValidateTensorShape(wrongRank)))

	wrongSize := meta("w", 3, 4, 0)
	wrongSize.Size = 8
	assert.Equal(t, "size_mismatch", validationType(t, ValidateTensorShape(wrongSize)))
}

func TestValidateHeader_Levels(t *testing.T) {
	// Second matrix starts inside the first.
	overlapping := Header{Tensors: []TensorMeta{meta("a", 2, 2, 0), meta("b", 2, 2, 16)}}

	assert.NoError(t, ValidateHeader(&overlapping, 64, ValidationNormal))
	assert.Equal(t, "offset_overlap", validationType(t, ValidateHeader(&overlapping, 64, ValidationStrict)))

	valid := Header{Tensors: []TensorMeta{meta("a", 2, 2, 0), meta("b", 2, 2, 32)}}
	assert.NoError(t, ValidateHeader(&valid, 64, ValidationStrict))

	duplicate := Header{Tensors: []TensorMeta{meta("a", 1, 1, 0), meta("a", 1, 1, 8)}}
	assert.Equal(t, "duplicate_name", validationType(t, ValidateHeader(&duplicate, 16, ValidationNormal)))

	malicious := Header{Tensors: []TensorMeta{{Name: "../etc/passwd", Offset: -1, Size: -1}}}
	assert.NoError(t, ValidateHeader(&malicious, 0, ValidationNone))
	assert.Error(t, ValidateHeader(&malicious, 0, ValidationNormal))
}

func TestValidationError_ErrorMessages(t *testing.T) {
	tests := []struct {
		err      *ValidationError
		expected string
	}{
		{
			&ValidationError{Type: "out_of_bounds", Tensor: "layer1", Details: "offset 100 + size 200 > data_size 250"},
			`out_of_bounds: tensor "layer1": offset 100 + size 200 > data_size 250`,
		},
		{
			&ValidationError{Type: "offset_overlap", Tensor: "a", Tensor2: "b", Details: "regions [0-100] and [50-150] overlap"},
			`offset_overlap: tensors "a" and "b": regions [0-100] and [50-150] overlap`,
		},
		{
			&ValidationError{Type: "too_many_tensors", Details: "got 100001, max 100000"},
			"too_many_tensors: got 100001, max 100000",
		},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.err.Error())
	}
}

func FuzzValidateTensorName(f *testing.F) {
	f.Add("hidden.0.weight")
	f.Add("../../etc/passwd")
	f.Add("a\x00b")
	f.Fuzz(func(t *testing.T, name string) {
		_ = ValidateTensorName(name)
	})
}
