package recurrent

import (
	"context"
	"fmt"

	"github.com/born-ml/recurrent/internal/autodiff"
	"github.com/born-ml/recurrent/internal/generate"
	"github.com/born-ml/recurrent/internal/matrix"
)

// predictor adapts a Model to generate.Stepper. Tokens are embedding rows,
// so the sentinel is 0 and token t is t+1.
type predictor struct {
	m *Model
}

func (p predictor) Step(position, token int) (*matrix.Matrix, error) {
	if token < 0 || token >= p.m.input.Rows {
		return nil, fmt.Errorf("%w: token %d outside embedding of %d rows", matrix.ErrIndexOutOfRange, token, p.m.input.Rows)
	}
	if err := p.m.bindTo(position + 1); err != nil {
		return nil, err
	}
	return p.m.equations[position].Run(autodiff.Context{InputRow: token})
}

// Run feeds input after the START sentinel and then generates tokens, each
// fed back as the next input, until the model predicts END or the maximum
// length is reached. Predictions made while input is being fed are
// ignored. It returns the generated tokens.
func (m *Model) Run(ctx context.Context, input []int, opts RunOptions) ([]int, error) {
	gen, prompt, config, err := m.prepareRun(input, opts)
	if err != nil {
		return nil, err
	}

	out, err := gen.Generate(ctx, prompt, config)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i]--
	}
	return out, nil
}

// RunStream is Run delivering tokens as they are generated. The last result
// has Done set or carries an Error.
func (m *Model) RunStream(ctx context.Context, input []int, opts RunOptions) (<-chan generate.GenerateResult, error) {
	gen, prompt, config, err := m.prepareRun(input, opts)
	if err != nil {
		return nil, err
	}

	results, err := gen.GenerateStream(ctx, prompt, config)
	if err != nil {
		return nil, err
	}

	out := make(chan generate.GenerateResult, 1)
	go func() {
		defer close(out)
		for res := range results {
			if !res.Done {
				res.TokenID--
			}
			select {
			case out <- res:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (m *Model) prepareRun(input []int, opts RunOptions) (*generate.Generator, []int, generate.GenerateConfig, error) {
	if err := m.initialized(); err != nil {
		return nil, nil, generate.GenerateConfig{}, err
	}

	maxLength := opts.MaxLength
	if maxLength == 0 {
		maxLength = m.options.MaxPredictionLength
	}
	if maxLength < 0 {
		return nil, nil, generate.GenerateConfig{}, fmt.Errorf("%w: max length %d", ErrInvalidOptions, maxLength)
	}

	prompt := make([]int, len(input)+1)
	for i, token := range input {
		if token < 0 || token >= m.options.InputRange {
			return nil, nil, generate.GenerateConfig{}, fmt.Errorf("%w: token %d at position %d outside [0, %d)",
				matrix.ErrIndexOutOfRange, token, i, m.options.InputRange)
		}
		prompt[i+1] = token + 1
	}

	cfg := opts.sampling()
	sampler := generate.NewSamplerWithSource(cfg, m.src)
	if cfg.Seed >= 0 {
		sampler = generate.NewSampler(cfg)
	}

	config := generate.GenerateConfig{
		MaxTokens:  maxLength,
		StopTokens: []int{0},
	}
	return generate.NewGenerator(predictor{m}, sampler), prompt, config, nil
}
