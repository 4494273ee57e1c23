package matrix

import (
	"encoding/json"
	"fmt"
)

// jsonMatrix is the persisted form of a Matrix. Deltas are transient
// training state and are not saved.
type jsonMatrix struct {
	Rows    int       `json:"rows"`
	Columns int       `json:"columns"`
	Weights []float64 `json:"weights"`
}

// MarshalJSON implements json.Marshaler.
func (m *Matrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonMatrix{
		Rows:    m.Rows,
		Columns: m.Columns,
		Weights: m.Weights,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Deltas are reset to zero.
func (m *Matrix) UnmarshalJSON(data []byte) error {
	var jm jsonMatrix
	if err := json.Unmarshal(data, &jm); err != nil {
		return err
	}
	if jm.Rows < 0 || jm.Columns < 0 || len(jm.Weights) != jm.Rows*jm.Columns {
		return fmt.Errorf("%w: %d weights for %dx%d", ErrShapeMismatch, len(jm.Weights), jm.Rows, jm.Columns)
	}

	m.Rows = jm.Rows
	m.Columns = jm.Columns
	m.Weights = jm.Weights
	if m.Weights == nil {
		m.Weights = []float64{}
	}
	m.Deltas = make([]float64, len(m.Weights))
	return nil
}
