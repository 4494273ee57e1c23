package recurrent

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/born-ml/recurrent/internal/matrix"
	"github.com/born-ml/recurrent/internal/optim"
	"github.com/born-ml/recurrent/internal/serialization"
	"github.com/born-ml/recurrent/internal/tokenizer"
)

// optimizerPrefix marks optimizer state among the matrices of a .born file.
const optimizerPrefix = "optim."

// Snapshot is the JSON form of a model. Only weights are kept.
type Snapshot struct {
	ID              string                      `json:"id"`
	Type            CellType                    `json:"type"`
	Options         Options                     `json:"options"`
	Input           *matrix.Matrix              `json:"input"`
	HiddenLayers    []map[string]*matrix.Matrix `json:"hiddenLayers"`
	OutputConnector *matrix.Matrix              `json:"outputConnector"`
	Output          *matrix.Matrix              `json:"output"`
}

// Snapshot copies the model's parameters.
func (m *Model) Snapshot() (*Snapshot, error) {
	if err := m.initialized(); err != nil {
		return nil, err
	}

	s := &Snapshot{
		ID:              m.id,
		Type:            m.options.Type,
		Options:         m.Options(),
		Input:           m.input.Clone(),
		HiddenLayers:    make([]map[string]*matrix.Matrix, len(m.layers)),
		OutputConnector: m.outputConnector.Clone(),
		Output:          m.output.Clone(),
	}
	for i, l := range m.layers {
		named := l.Named()
		s.HiddenLayers[i] = make(map[string]*matrix.Matrix, len(named))
		for _, n := range named {
			s.HiddenLayers[i][n.Name] = n.Matrix.Clone()
		}
	}
	return s, nil
}

// MarshalJSON writes the model's Snapshot.
func (m *Model) MarshalJSON() ([]byte, error) {
	s, err := m.Snapshot()
	if err != nil {
		return nil, err
	}
	return json.Marshal(s)
}

// FromSnapshot rebuilds a model from s. Every parameter must be present
// with the shape its options dictate.
func FromSnapshot(s *Snapshot, logger *logrus.Logger) (*Model, error) {
	options := s.Options
	if s.Type != "" {
		options.Type = s.Type
	}
	m, err := NewModel(options, logger)
	if err != nil {
		return nil, err
	}
	if s.ID != "" {
		m.id = s.ID
	}

	params := map[string]*matrix.Matrix{
		"input":           s.Input,
		"outputConnector": s.OutputConnector,
		"output":          s.Output,
	}
	if len(s.HiddenLayers) != len(m.layers) {
		return nil, fmt.Errorf("%w: snapshot has %d hidden layers, options give %d",
			matrix.ErrShapeMismatch, len(s.HiddenLayers), len(m.layers))
	}
	for i, layer := range s.HiddenLayers {
		for name, p := range layer {
			params[fmt.Sprintf("hidden.%d.%s", i, name)] = p
		}
	}

	if err := m.loadNamed(params); err != nil {
		return nil, err
	}
	return m, nil
}

// FromJSON rebuilds a model from the output of MarshalJSON.
func FromJSON(data []byte, logger *logrus.Logger) (*Model, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return FromSnapshot(&s, logger)
}

// loadNamed copies weights into the model's parameters by name.
func (m *Model) loadNamed(params map[string]*matrix.Matrix) error {
	for _, n := range m.Named() {
		src, ok := params[n.Name]
		if !ok || src == nil {
			return fmt.Errorf("snapshot is missing parameter %q", n.Name)
		}
		if src.Rows != n.Matrix.Rows || src.Columns != n.Matrix.Columns {
			return fmt.Errorf("%w: parameter %q is %v, model needs %v", matrix.ErrShapeMismatch, n.Name, src, n.Matrix)
		}
		copy(n.Matrix.Weights, src.Weights)
		n.Matrix.ZeroDeltas()
	}
	return nil
}

// bornConfig is stored in the Config field of a .born header.
type bornConfig struct {
	Options    Options               `json:"options"`
	Vocabulary *tokenizer.Vocabulary `json:"vocabulary,omitempty"`
	Segmenter  string                `json:"segmenter,omitempty"`
}

// stateDict returns the named matrices and header of a .born snapshot,
// including the RMSProp cache once it exists.
func (m *Model) stateDict(cfg bornConfig) (map[string]*matrix.Matrix, serialization.Header, error) {
	if err := m.initialized(); err != nil {
		return nil, serialization.Header{}, err
	}

	dict := make(map[string]*matrix.Matrix)
	for _, n := range m.Named() {
		dict[n.Name] = n.Matrix
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, serialization.Header{}, fmt.Errorf("encode config: %w", err)
	}
	header := serialization.Header{
		ID:        m.id,
		ModelType: string(m.options.Type),
		Config:    raw,
	}

	if rms, ok := m.optimizer.(*optim.RMSProp); ok {
		if state := rms.StateDict(); len(state) > 0 {
			for name, c := range state {
				dict[optimizerPrefix+name] = c
			}
			header.CheckpointMeta = &serialization.CheckpointMeta{
				Iterations:    rms.Steps(),
				OptimizerType: "rmsprop",
				OptimizerConfig: map[string]any{
					"learning_rate": rms.GetLR(),
					"decay_rate":    m.options.DecayRate,
					"smooth_eps":    m.options.SmoothEps,
					"regc":          m.options.Regc,
					"clipval":       m.options.ClipVal,
				},
			}
		}
	}
	return dict, header, nil
}

// Save writes the model in .born format.
func (m *Model) Save(w io.Writer) error {
	dict, header, err := m.stateDict(bornConfig{Options: m.options})
	if err != nil {
		return err
	}
	return serialization.WriteTo(w, dict, header)
}

// SaveFile writes the model in .born format to path.
func (m *Model) SaveFile(path string) error {
	dict, header, err := m.stateDict(bornConfig{Options: m.options})
	if err != nil {
		return err
	}
	return serialization.WriteFile(path, dict, header)
}

// Load reads a model written by Save.
func Load(r io.Reader, logger *logrus.Logger) (*Model, error) {
	reader, err := serialization.NewReader(r, serialization.ReaderOptions{})
	if err != nil {
		return nil, err
	}
	m, _, err := fromBorn(reader, logger)
	return m, err
}

// LoadFile reads a model written by SaveFile.
func LoadFile(path string, logger *logrus.Logger) (*Model, error) {
	reader, err := serialization.OpenFile(path, serialization.ReaderOptions{})
	if err != nil {
		return nil, err
	}
	m, _, err := fromBorn(reader, logger)
	return m, err
}

func fromBorn(reader *serialization.BornReader, logger *logrus.Logger) (*Model, bornConfig, error) {
	header := reader.Header()

	var cfg bornConfig
	if len(header.Config) > 0 {
		if err := json.Unmarshal(header.Config, &cfg); err != nil {
			return nil, bornConfig{}, fmt.Errorf("decode config: %w", err)
		}
	}
	if header.ModelType != "" {
		cfg.Options.Type = CellType(header.ModelType)
	}

	m, err := NewModel(cfg.Options, logger)
	if err != nil {
		return nil, bornConfig{}, err
	}
	if header.ID != "" {
		m.id = header.ID
	}

	dict, err := reader.ReadStateDict()
	if err != nil {
		return nil, bornConfig{}, err
	}
	if err := m.loadNamed(dict); err != nil {
		return nil, bornConfig{}, err
	}

	if rms, ok := m.optimizer.(*optim.RMSProp); ok && reader.HasOptimizerState() {
		state := make(map[string]*matrix.Matrix)
		for name, c := range dict {
			if key, found := strings.CutPrefix(name, optimizerPrefix); found {
				state[key] = c
			}
		}
		if err := rms.LoadStateDict(state); err != nil {
			return nil, bornConfig{}, fmt.Errorf("restore optimizer: %w", err)
		}
	}
	return m, cfg, nil
}
