package recurrent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/born-ml/recurrent/internal/generate"
	"github.com/born-ml/recurrent/internal/serialization"
	"github.com/born-ml/recurrent/internal/tokenizer"
)

// Pair is an input/output training example.
type Pair struct {
	Input  string `json:"input" yaml:"input"`
	Output string `json:"output" yaml:"output"`
}

// TextModel trains and runs a Model over strings. A Segmenter splits text
// into symbols and a Vocabulary maps symbols to tokens. Without a given
// vocabulary, the first training call builds one from its data and sizes
// the model to it.
type TextModel struct {
	options   Options
	segmenter tokenizer.Segmenter
	vocab     *tokenizer.Vocabulary
	model     *Model
	logger    *logrus.Logger
}

// TextResult is one streamed piece of generated text.
type TextResult struct {
	Text   string
	Done   bool
	Reason string
	Err    error
}

// NewTextModel creates an untrained text model. A nil segmenter splits
// text into runes.
func NewTextModel(options Options, segmenter tokenizer.Segmenter, logger *logrus.Logger) *TextModel {
	if segmenter == nil {
		segmenter = tokenizer.RuneSegmenter{}
	}
	return &TextModel{
		options:   options,
		segmenter: segmenter,
		logger:    logger,
	}
}

// SetVocabulary fixes the symbol table instead of building it from the
// training data. The model is rebuilt on the next training call.
func (t *TextModel) SetVocabulary(v *tokenizer.Vocabulary) {
	t.vocab = v
	t.model = nil
}

// Vocabulary returns the symbol table, nil before training.
func (t *TextModel) Vocabulary() *tokenizer.Vocabulary { return t.vocab }

// Segmenter returns the text segmenter.
func (t *TextModel) Segmenter() tokenizer.Segmenter { return t.segmenter }

// Model returns the underlying model, nil before training.
func (t *TextModel) Model() *Model { return t.model }

func (t *TextModel) split(text string) ([]string, error) {
	symbols, err := t.segmenter.Split(text)
	if err != nil {
		return nil, fmt.Errorf("segment %q: %w", text, err)
	}
	return symbols, nil
}

// Train fits the model to texts.
func (t *TextModel) Train(ctx context.Context, texts []string, opts TrainOptions) (TrainStatus, error) {
	segmented := make([][]string, len(texts))
	for i, text := range texts {
		symbols, err := t.split(text)
		if err != nil {
			return TrainStatus{}, err
		}
		segmented[i] = symbols
	}
	if t.vocab == nil {
		t.vocab = tokenizer.NewVocabulary(segmented...)
	}

	data := make([][]int, len(segmented))
	for i, symbols := range segmented {
		indices, err := t.vocab.Encode(symbols)
		if err != nil {
			return TrainStatus{}, fmt.Errorf("text %d: %w", i, err)
		}
		data[i] = indices
	}
	return t.train(ctx, data, opts)
}

// TrainPairs fits the model to map each input to its output. The
// vocabulary gets the StopInput and StartOutput symbols.
func (t *TextModel) TrainPairs(ctx context.Context, pairs []Pair, opts TrainOptions) (TrainStatus, error) {
	inputs := make([][]string, len(pairs))
	outputs := make([][]string, len(pairs))
	for i, p := range pairs {
		var err error
		if inputs[i], err = t.split(p.Input); err != nil {
			return TrainStatus{}, err
		}
		if outputs[i], err = t.split(p.Output); err != nil {
			return TrainStatus{}, err
		}
	}
	if t.vocab == nil {
		t.vocab = tokenizer.NewVocabulary(append(inputs, outputs...)...)
		t.vocab.AddInputOutput()
	}

	data := make([][]int, len(pairs))
	for i := range pairs {
		indices, err := t.vocab.EncodeInputOutput(inputs[i], outputs[i])
		if err != nil {
			return TrainStatus{}, fmt.Errorf("pair %d: %w", i, err)
		}
		data[i] = indices
	}
	return t.train(ctx, data, opts)
}

func (t *TextModel) train(ctx context.Context, data [][]int, opts TrainOptions) (TrainStatus, error) {
	if err := t.ensureModel(); err != nil {
		return TrainStatus{}, err
	}
	return t.model.Train(ctx, data, opts)
}

// ensureModel builds the model sized to the vocabulary unless one of that
// size exists.
func (t *TextModel) ensureModel() error {
	size := t.vocab.Size()
	if size == 0 {
		return fmt.Errorf("%w: empty vocabulary", ErrUninitialized)
	}
	if t.model != nil && t.model.options.InputRange == size && t.model.options.OutputSize == size {
		return nil
	}

	options := t.options
	options.InputSize = size
	options.InputRange = size
	options.OutputSize = size
	m, err := NewModel(options, t.logger)
	if err != nil {
		return err
	}
	t.model = m
	return nil
}

func (t *TextModel) encodeInput(input string) ([]int, error) {
	if t.model == nil || t.vocab == nil {
		return nil, ErrUninitialized
	}
	symbols, err := t.split(input)
	if err != nil {
		return nil, err
	}
	if t.vocab.HasInputOutput() {
		return t.vocab.EncodeInputOutput(symbols, nil)
	}
	return t.vocab.Encode(symbols)
}

// decode joins the symbols of tokens, leaving out special symbols.
func (t *TextModel) decode(tokens []int) (string, error) {
	kept := tokens[:0:0]
	for _, token := range tokens {
		if !t.vocab.IsSpecial(token) {
			kept = append(kept, token)
		}
	}
	symbols, err := t.vocab.Decode(kept)
	if err != nil {
		return "", err
	}
	return t.segmenter.Join(symbols), nil
}

// Run continues input and returns the generated text.
func (t *TextModel) Run(ctx context.Context, input string, opts RunOptions) (string, error) {
	indices, err := t.encodeInput(input)
	if err != nil {
		return "", err
	}
	out, err := t.model.Run(ctx, indices, opts)
	if err != nil {
		return "", err
	}
	return t.decode(out)
}

// RunStream is Run delivering text as it is generated.
func (t *TextModel) RunStream(ctx context.Context, input string, opts RunOptions) (<-chan TextResult, error) {
	indices, err := t.encodeInput(input)
	if err != nil {
		return nil, err
	}
	tokens, err := t.model.RunStream(ctx, indices, opts)
	if err != nil {
		return nil, err
	}

	out := make(chan TextResult, 1)
	go func() {
		defer close(out)
		for res := range tokens {
			piece := textResult(res)
			if !res.Done && res.Error == nil {
				if t.vocab.IsSpecial(res.TokenID) {
					continue
				}
				piece.Text, piece.Err = t.decode([]int{res.TokenID})
			}
			select {
			case out <- piece:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func textResult(res generate.GenerateResult) TextResult {
	return TextResult{Done: res.Done, Reason: res.Reason, Err: res.Error}
}

// textSnapshot is the JSON form of a TextModel.
type textSnapshot struct {
	Model      *Snapshot             `json:"model"`
	Vocabulary *tokenizer.Vocabulary `json:"vocabulary"`
	Segmenter  string                `json:"segmenter"`
}

// MarshalJSON writes the model, vocabulary and segmenter name.
func (t *TextModel) MarshalJSON() ([]byte, error) {
	if t.model == nil {
		return nil, ErrUninitialized
	}
	s, err := t.model.Snapshot()
	if err != nil {
		return nil, err
	}
	return json.Marshal(textSnapshot{Model: s, Vocabulary: t.vocab, Segmenter: t.segmenter.Name()})
}

// TextFromJSON rebuilds a TextModel from the output of MarshalJSON.
func TextFromJSON(data []byte, logger *logrus.Logger) (*TextModel, error) {
	var s textSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Model == nil || s.Vocabulary == nil {
		return nil, fmt.Errorf("%w: snapshot without model or vocabulary", ErrUninitialized)
	}

	m, err := FromSnapshot(s.Model, logger)
	if err != nil {
		return nil, err
	}
	return newTextModelFrom(m, s.Vocabulary, s.Segmenter, logger)
}

func newTextModelFrom(m *Model, vocab *tokenizer.Vocabulary, segmenter string, logger *logrus.Logger) (*TextModel, error) {
	seg, err := segmenterByName(segmenter)
	if err != nil {
		return nil, err
	}
	if vocab.Size() != m.options.OutputSize {
		return nil, fmt.Errorf("%w: vocabulary of %d symbols for output size %d",
			ErrInvalidOptions, vocab.Size(), m.options.OutputSize)
	}
	return &TextModel{
		options:   m.Options(),
		segmenter: seg,
		vocab:     vocab,
		model:     m,
		logger:    logger,
	}, nil
}

// segmenterByName resolves a stored segmenter name: a known name, a
// tiktoken model name, or a regular expression.
func segmenterByName(name string) (tokenizer.Segmenter, error) {
	if seg, err := tokenizer.SegmenterByName(name); err == nil {
		return seg, nil
	}
	if seg, err := tokenizer.NewTikTokenForModel(name); err == nil {
		return seg, nil
	}
	return tokenizer.NewRegexSegmenter(name)
}

func (t *TextModel) bornConfig() bornConfig {
	return bornConfig{Options: t.model.options, Vocabulary: t.vocab, Segmenter: t.segmenter.Name()}
}

// Save writes the model and its vocabulary in .born format.
func (t *TextModel) Save(w io.Writer) error {
	if t.model == nil {
		return ErrUninitialized
	}
	dict, header, err := t.model.stateDict(t.bornConfig())
	if err != nil {
		return err
	}
	return serialization.WriteTo(w, dict, header)
}

// SaveFile writes the model and its vocabulary in .born format to path.
func (t *TextModel) SaveFile(path string) error {
	if t.model == nil {
		return ErrUninitialized
	}
	dict, header, err := t.model.stateDict(t.bornConfig())
	if err != nil {
		return err
	}
	return serialization.WriteFile(path, dict, header)
}

// LoadText reads a TextModel written by Save.
func LoadText(r io.Reader, logger *logrus.Logger) (*TextModel, error) {
	reader, err := serialization.NewReader(r, serialization.ReaderOptions{})
	if err != nil {
		return nil, err
	}
	return textFromBorn(reader, logger)
}

// LoadTextFile reads a TextModel written by SaveFile.
func LoadTextFile(path string, logger *logrus.Logger) (*TextModel, error) {
	reader, err := serialization.OpenFile(path, serialization.ReaderOptions{})
	if err != nil {
		return nil, err
	}
	return textFromBorn(reader, logger)
}

func textFromBorn(reader *serialization.BornReader, logger *logrus.Logger) (*TextModel, error) {
	m, cfg, err := fromBorn(reader, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Vocabulary == nil {
		return nil, fmt.Errorf("%w: snapshot has no vocabulary", ErrUninitialized)
	}
	return newTextModelFrom(m, cfg.Vocabulary, cfg.Segmenter, logger)
}
