package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/born-ml/recurrent/internal/matrix"
)

// SafeTensorHeader describes one tensor in a SafeTensors header.
type SafeTensorHeader struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// WriteSafeTensorsFile exports stateDict to path in SafeTensors format.
func WriteSafeTensorsFile(path string, stateDict map[string]*matrix.Matrix, metadata map[string]string) error {
	//nolint:gosec // G304: File path comes from user input, which is expected for model export
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := WriteSafeTensors(file, stateDict, metadata); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// WriteSafeTensors writes stateDict in SafeTensors format:
//
//	[8 bytes: header size (uint64 LE)]
//	[header: JSON, name -> {dtype, shape, data_offsets}, plus "__metadata__"]
//	[data: F64 LE, sorted by name]
func WriteSafeTensors(w io.Writer, stateDict map[string]*matrix.Matrix, metadata map[string]string) error {
	names := make([]string, 0, len(stateDict))
	for name := range stateDict {
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]any, len(names)+1)
	if len(metadata) > 0 {
		header["__metadata__"] = metadata
	}

	var offset int64
	for _, name := range names {
		m := stateDict[name]
		if m == nil {
			return fmt.Errorf("tensor %q is nil", name)
		}
		size := int64(m.Len() * bytesPerValue)
		header[name] = SafeTensorHeader{
			DType:       "F64",
			Shape:       []int64{int64(m.Rows), int64(m.Columns)},
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, name := range names {
		if _, err := w.Write(encodeFloats(stateDict[name].Weights)); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", name, err)
		}
	}
	return nil
}
