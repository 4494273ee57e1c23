// Package config loads the YAML configuration of the recurrent CLI.
//
// A file only needs the fields it changes; everything else keeps the
// defaults of Default:
//
//	model:
//	  type: lstm
//	  hidden_sizes: [40, 40]
//	train:
//	  iterations: 2000
//	  timeout: 30s
//	generate:
//	  sample: true
//	  temperature: 0.8
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/recurrent/internal/generate"
	"github.com/born-ml/recurrent/internal/recurrent"
	"github.com/born-ml/recurrent/internal/tokenizer"
)

// ErrInvalid is returned for a configuration that fails validation.
var ErrInvalid = errors.New("invalid configuration")

// Vocabulary sources.
const (
	VocabularyFromData  = "data"
	VocabularyPrintable = "printable"
)

// Config is the full CLI configuration.
type Config struct {
	Model    recurrent.Options      `yaml:"model"`
	Train    recurrent.TrainOptions `yaml:"train"`
	Generate Generate               `yaml:"generate"`
	Text     Text                   `yaml:"text"`
	Log      Log                    `yaml:"log"`
}

// Generate configures inference.
type Generate struct {
	MaxLength         int     `yaml:"max_length"`
	Sample            bool    `yaml:"sample"`
	Temperature       float64 `yaml:"temperature"`
	TopK              int     `yaml:"top_k"`
	TopP              float64 `yaml:"top_p"`
	RepetitionPenalty float64 `yaml:"repetition_penalty"`
	Seed              int64   `yaml:"seed"` // -1 draws from the model's source
}

// Text configures how strings become tokens.
type Text struct {
	// Segmenter is "runes", "words", a tiktoken encoding or a regular
	// expression.
	Segmenter string `yaml:"segmenter"`

	// Vocabulary is "data" to collect symbols from the training text or
	// "printable" for printable ASCII and newline.
	Vocabulary string `yaml:"vocabulary"`
}

// Log configures the logger.
type Log struct {
	Level  string `yaml:"level"`  // logrus level name
	Format string `yaml:"format"` // "text" or "json"
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Model: recurrent.DefaultOptions(),
		Train: recurrent.DefaultTrainOptions(),
		Generate: Generate{
			MaxLength: recurrent.DefaultOptions().MaxPredictionLength,
			Seed:      -1,
		},
		Text: Text{
			Segmenter:  tokenizer.SegmenterRunes,
			Vocabulary: VocabularyFromData,
		},
		Log: Log{
			Level:  logrus.InfoLevel.String(),
			Format: "text",
		},
	}
}

// Load reads the configuration at path over the defaults and validates it.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// fields are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	if err := c.Train.Validate(); err != nil {
		return fmt.Errorf("train: %w", err)
	}

	g := c.Generate
	switch {
	case g.MaxLength < 0:
		return fmt.Errorf("%w: generate.max_length %d", ErrInvalid, g.MaxLength)
	case g.Temperature < 0:
		return fmt.Errorf("%w: generate.temperature %g", ErrInvalid, g.Temperature)
	case g.TopK < 0:
		return fmt.Errorf("%w: generate.top_k %d", ErrInvalid, g.TopK)
	case g.TopP < 0 || g.TopP > 1:
		return fmt.Errorf("%w: generate.top_p %g outside [0, 1]", ErrInvalid, g.TopP)
	}

	if c.Text.Vocabulary != VocabularyFromData && c.Text.Vocabulary != VocabularyPrintable {
		return fmt.Errorf("%w: text.vocabulary %q", ErrInvalid, c.Text.Vocabulary)
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrInvalid, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("%w: log.format %q", ErrInvalid, c.Log.Format)
	}
	return nil
}

// RunOptions converts the generate section.
func (g Generate) RunOptions() recurrent.RunOptions {
	if !g.Sample {
		return recurrent.RunOptions{MaxLength: g.MaxLength}
	}

	s := generate.DefaultSamplingConfig()
	s.Temperature = g.Temperature
	if s.Temperature == 0 {
		s.Temperature = 1
	}
	s.TopK = g.TopK
	if g.TopP > 0 {
		s.TopP = g.TopP
	}
	if g.RepetitionPenalty > 0 {
		s.RepeatPenalty = g.RepetitionPenalty
	}
	s.Seed = g.Seed
	return recurrent.RunOptions{MaxLength: g.MaxLength, Sample: true, Sampling: &s}
}

// NewSegmenter returns the configured segmenter. A name that is neither
// built in nor a tiktoken encoding is compiled as a regular expression.
func (t Text) NewSegmenter() (tokenizer.Segmenter, error) {
	if seg, err := tokenizer.SegmenterByName(t.Segmenter); err == nil {
		return seg, nil
	}
	return tokenizer.NewRegexSegmenter(t.Segmenter)
}

// NewLogger returns a logger writing to w at the configured level and
// format.
func (l Log) NewLogger(w io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(level)
	if l.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}
