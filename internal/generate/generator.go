package generate

import (
	"context"
	"errors"
	"fmt"

	"github.com/born-ml/recurrent/internal/matrix"
)

// ErrEmptyPrompt is returned when generation starts without any token to
// feed the model.
var ErrEmptyPrompt = errors.New("empty prompt")

// Stop reasons reported in GenerateResult.
const (
	ReasonStopToken = "stop_token"
	ReasonMaxTokens = "max_tokens"
)

// GenerateConfig configures generation.
//
//nolint:revive // GenerateConfig is clearer than Config
type GenerateConfig struct {
	// MaxTokens is the maximum number of tokens to generate after the prompt.
	MaxTokens int

	// StopTokens are token IDs that end generation. They are not emitted.
	StopTokens []int
}

// DefaultGenerateConfig returns sensible defaults for generation.
func DefaultGenerateConfig() GenerateConfig {
	return GenerateConfig{
		MaxTokens: 100,
	}
}

// GenerateResult is a single result from streaming generation.
//
//nolint:revive // GenerateResult is clearer than Result
type GenerateResult struct {
	TokenID int    // Generated token, valid unless Done
	Done    bool   // Is generation complete
	Reason  string // Stop reason when Done
	Error   error  // Error if any
}

// Stepper is a model that advances one position at a time.
//
// Step feeds token at position and returns the raw logits predicting the
// token at position+1. Positions start at 0 and grow by one per call.
type Stepper interface {
	Step(position, token int) (*matrix.Matrix, error)
}

// Generator runs the autoregressive loop of a Stepper.
type Generator struct {
	model   Stepper
	sampler *Sampler
}

// NewGenerator creates a generator over model, choosing tokens with sampler.
func NewGenerator(model Stepper, sampler *Sampler) *Generator {
	return &Generator{
		model:   model,
		sampler: sampler,
	}
}

// Generate feeds prompt through the model, ignoring its predictions, then
// samples and feeds back new tokens until a stop token or MaxTokens.
// It returns the generated tokens without the prompt.
func (g *Generator) Generate(ctx context.Context, prompt []int, config GenerateConfig) ([]int, error) {
	generated := make([]int, 0, config.MaxTokens)
	err := g.generate(ctx, prompt, config, func(res GenerateResult) bool {
		if !res.Done {
			generated = append(generated, res.TokenID)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return generated, nil
}

// GenerateStream runs Generate in a goroutine and returns a channel of
// results. The last result has Done set or carries an Error. Cancelling ctx
// stops generation and closes the channel.
func (g *Generator) GenerateStream(ctx context.Context, prompt []int, config GenerateConfig) (<-chan GenerateResult, error) {
	if len(prompt) == 0 {
		return nil, ErrEmptyPrompt
	}

	ch := make(chan GenerateResult, 1)

	go func() {
		defer close(ch)

		send := func(res GenerateResult) bool {
			select {
			case ch <- res:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if err := g.generate(ctx, prompt, config, send); err != nil {
			send(GenerateResult{Done: true, Error: err})
		}
	}()

	return ch, nil
}

// generate is the core generation loop.
func (g *Generator) generate(
	ctx context.Context,
	prompt []int,
	config GenerateConfig,
	callback func(GenerateResult) bool,
) error {
	if len(prompt) == 0 {
		return ErrEmptyPrompt
	}

	// Prefill: only the prediction after the last prompt token matters.
	var logits *matrix.Matrix
	for position, token := range prompt {
		var err error
		if logits, err = g.model.Step(position, token); err != nil {
			return fmt.Errorf("prompt position %d: %w", position, err)
		}
	}

	history := append([]int(nil), prompt...) // For repetition penalty

	for n := 0; n < config.MaxTokens; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if n > 0 {
			position := len(history) - 1
			var err error
			if logits, err = g.model.Step(position, history[position]); err != nil {
				return fmt.Errorf("position %d: %w", position, err)
			}
		}

		next, err := g.sampler.Sample(logits, history)
		if err != nil {
			return err
		}
		if isStopToken(next, config.StopTokens) {
			callback(GenerateResult{Done: true, Reason: ReasonStopToken})
			return nil
		}

		if !callback(GenerateResult{TokenID: next}) {
			return nil
		}
		history = append(history, next)
	}

	callback(GenerateResult{Done: true, Reason: ReasonMaxTokens})
	return nil
}

func isStopToken(token int, stop []int) bool {
	for _, s := range stop {
		if token == s {
			return true
		}
	}
	return false
}
