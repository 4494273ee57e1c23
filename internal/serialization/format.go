package serialization

import (
	"encoding/json"
	"time"
)

// Format constants.
const (
	MagicBytes      = "BORN"
	FormatVersion   = 2    // SHA-256 checksum over the data section
	HeaderAlignment = 64   // Data section starts on a 64-byte boundary
	FixedHeaderSize = 64   // 0x40 bytes
	ChecksumSize    = 32   // SHA-256
	ChecksumOffset  = 0x20 // Checksum position in the fixed header

	// DTypeFloat64 is the only element type written.
	DTypeFloat64 = "float64"

	bytesPerValue = 8
)

// Flags for the .born format.
const (
	FlagHasOptimizer uint32 = 1 << 1 // bit 1: optimizer state included
	FlagHasMetadata  uint32 = 1 << 2 // bit 2: custom metadata included
)

// Header represents the JSON header in a .born file.
type Header struct {
	FormatVersion  int               `json:"format_version"`
	ID             string            `json:"id"`                   // Snapshot identifier, generated when empty
	ModelType      string            `json:"model_type"`           // "rnn" or "lstm"
	CreatedAt      time.Time         `json:"created_at"`           // When the file was written
	Tensors        []TensorMeta      `json:"tensors"`              // Matrix metadata, sorted by name
	Metadata       map[string]string `json:"metadata"`             // Custom metadata
	Config         json.RawMessage   `json:"config,omitempty"`     // Model options and vocabulary
	CheckpointMeta *CheckpointMeta   `json:"checkpoint,omitempty"` // Training state (optional)
}

// CheckpointMeta contains training state information for checkpoints.
type CheckpointMeta struct {
	Iterations      int            `json:"iterations"`       // Training iterations completed
	Error           float64        `json:"error"`            // Mean training error at checkpoint
	OptimizerType   string         `json:"optimizer_type"`   // "rmsprop", "sgd" or "adam"
	OptimizerConfig map[string]any `json:"optimizer_config"` // Optimizer hyperparameters
}

// TensorMeta describes a matrix in the .born file.
type TensorMeta struct {
	Name   string `json:"name"`   // Matrix name (e.g., "hidden.0.weight")
	DType  string `json:"dtype"`  // Always "float64"
	Shape  []int  `json:"shape"`  // [rows, columns]
	Offset int64  `json:"offset"` // Offset in the data section
	Size   int64  `json:"size"`   // Size in bytes
}

func dataOffset(headerSize int64) int64 {
	pos := int64(FixedHeaderSize) + headerSize
	return pos + (HeaderAlignment-pos%HeaderAlignment)%HeaderAlignment
}
