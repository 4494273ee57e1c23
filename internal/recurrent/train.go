package recurrent

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// Perplexity converts an error in bits per prediction to perplexity.
func Perplexity(bits float64) float64 {
	return math.Exp2(bits)
}

// Train fits the model to data, one TrainPattern per sequence per
// iteration, until the mean error drops below opts.ErrorThresh or
// opts.Iterations passes are done.
//
// Training also stops, without error, once opts.Timeout has elapsed; it
// stops with ctx's error when ctx is done. Both are checked once per
// iteration. A non-finite error fails with ErrDivergence.
func (m *Model) Train(ctx context.Context, data [][]int, opts TrainOptions) (TrainStatus, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return TrainStatus{}, err
	}
	if len(data) == 0 {
		return TrainStatus{}, ErrEmptyDataset
	}
	if opts.Reinitialize {
		if err := m.Initialize(); err != nil {
			return TrainStatus{}, err
		}
	}
	if err := m.initialized(); err != nil {
		return TrainStatus{}, err
	}
	for i, seq := range data {
		if err := m.checkSequence(seq); err != nil {
			return TrainStatus{}, fmt.Errorf("sequence %d: %w", i, err)
		}
	}
	if opts.LearningRate > 0 {
		m.optimizer.SetLR(opts.LearningRate)
	}

	var deadline time.Time
	if opts.Timeout > 0 {
		deadline = time.Now().Add(opts.Timeout)
	}

	status := TrainStatus{Error: 1}
	for status.Iterations < opts.Iterations && status.Error > opts.ErrorThresh {
		if err := ctx.Err(); err != nil {
			return status, err
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			m.logger.WithFields(logrus.Fields{
				"iterations": status.Iterations,
				"error":      status.Error,
				"timeout":    opts.Timeout,
			}).Info("training timed out")
			break
		}

		var sum float64
		for _, seq := range data {
			e, err := m.TrainPattern(seq)
			if err != nil {
				return status, err
			}
			sum += e
		}
		status.Error = sum / float64(len(data))
		status.Iterations++

		if math.IsNaN(status.Error) || math.IsInf(status.Error, 0) {
			return status, fmt.Errorf("%w: iteration %d", ErrDivergence, status.Iterations)
		}

		if opts.Log && status.Iterations%opts.LogPeriod == 0 {
			m.logger.WithFields(logrus.Fields{
				"iterations": status.Iterations,
				"error":      status.Error,
			}).Info("training")
		}
		if opts.Callback != nil && status.Iterations%opts.CallbackPeriod == 0 {
			opts.Callback(status)
		}
	}

	return status, nil
}
