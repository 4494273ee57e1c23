package recurrent

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/recurrent/internal/matrix"
	"github.com/born-ml/recurrent/internal/optim"
	"github.com/born-ml/recurrent/internal/serialization"
)

func trainedModel(t *testing.T, cell CellType) *Model {
	t.Helper()
	m := newSmall(t, cell)
	_, err := m.Train(context.Background(), [][]int{{1, 2, 3}, {2, 0}}, TrainOptions{
		Iterations:  40,
		ErrorThresh: 1e-9,
	})
	require.NoError(t, err)
	return m
}

func assertSameParams(t *testing.T, want, got *Model) {
	t.Helper()
	wantNamed, gotNamed := want.Named(), got.Named()
	require.Len(t, gotNamed, len(wantNamed))
	for i, n := range wantNamed {
		assert.Equal(t, n.Name, gotNamed[i].Name)
		assert.Equal(t, n.Matrix.Weights, gotNamed[i].Matrix.Weights, n.Name)
	}
}

func assertSameRun(t *testing.T, want, got *Model) {
	t.Helper()
	ctx := context.Background()
	for _, input := range [][]int{nil, {1}, {2, 0}} {
		a, err := want.Run(ctx, input, RunOptions{MaxLength: 6})
		require.NoError(t, err)
		b, err := got.Run(ctx, input, RunOptions{MaxLength: 6})
		require.NoError(t, err)
		assert.Equal(t, a, b, "input %v", input)
	}
}

func TestJSON_RoundTrip(t *testing.T) {
	for _, cell := range []CellType{CellRNN, CellLSTM} {
		t.Run(string(cell), func(t *testing.T) {
			m := trainedModel(t, cell)

			data, err := json.Marshal(m)
			require.NoError(t, err)

			loaded, err := FromJSON(data, quietLogger())
			require.NoError(t, err)

			assert.Equal(t, m.ID(), loaded.ID())
			assert.Equal(t, m.Options(), loaded.Options())
			assertSameParams(t, m, loaded)
			assertSameRun(t, m, loaded)

			for _, p := range loaded.Params() {
				for _, d := range p.Deltas {
					require.Zero(t, d)
				}
			}
		})
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	m := newSmall(t, CellRNN)
	s, err := m.Snapshot()
	require.NoError(t, err)

	s.Input.Weights[0] = 1234
	s.HiddenLayers[0]["weight"].Weights[0] = 1234
	assert.NotEqual(t, 1234.0, m.input.Weights[0])
	assert.NotEqual(t, 1234.0, m.Layers()[0].Params()[0].Weights[0])
}

func TestFromSnapshot_Mismatch(t *testing.T) {
	m := newSmall(t, CellRNN)

	t.Run("missing parameter", func(t *testing.T) {
		s, err := m.Snapshot()
		require.NoError(t, err)
		delete(s.HiddenLayers[0], "transition")

		_, err = FromSnapshot(s, quietLogger())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "hidden.0.transition")
	})

	t.Run("wrong shape", func(t *testing.T) {
		s, err := m.Snapshot()
		require.NoError(t, err)
		s.Output = matrix.New(2, 1)

		_, err = FromSnapshot(s, quietLogger())
		require.ErrorIs(t, err, matrix.ErrShapeMismatch)
	})

	t.Run("layer count", func(t *testing.T) {
		s, err := m.Snapshot()
		require.NoError(t, err)
		s.HiddenLayers = append(s.HiddenLayers, s.HiddenLayers[0])

		_, err = FromSnapshot(s, quietLogger())
		require.ErrorIs(t, err, matrix.ErrShapeMismatch)
	})

	t.Run("bad json", func(t *testing.T) {
		_, err := FromJSON([]byte("{"), quietLogger())
		require.Error(t, err)
	})
}

func TestBorn_RoundTrip(t *testing.T) {
	m := trainedModel(t, CellLSTM)

	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))

	loaded, err := Load(bytes.NewReader(buf.Bytes()), quietLogger())
	require.NoError(t, err)

	assert.Equal(t, m.ID(), loaded.ID())
	assert.Equal(t, m.Options(), loaded.Options())
	assertSameParams(t, m, loaded)
	assertSameRun(t, m, loaded)
}

func TestBorn_OptimizerState(t *testing.T) {
	m := trainedModel(t, CellRNN)
	path := filepath.Join(t.TempDir(), "model.born")
	require.NoError(t, m.SaveFile(path))

	reader, err := serialization.OpenFile(path, serialization.ReaderOptions{})
	require.NoError(t, err)
	assert.True(t, reader.HasOptimizerState())
	header := reader.Header()
	assert.Equal(t, "rnn", header.ModelType)
	require.NotNil(t, header.CheckpointMeta)
	assert.Equal(t, "rmsprop", header.CheckpointMeta.OptimizerType)
	assert.Equal(t, 80, header.CheckpointMeta.Iterations)
	assert.Contains(t, reader.TensorNames(), "optim.cache.0")

	loaded, err := LoadFile(path, quietLogger())
	require.NoError(t, err)

	want := m.Optimizer().(*optim.RMSProp).StateDict()
	got := loaded.Optimizer().(*optim.RMSProp).StateDict()
	require.Len(t, got, len(want))
	for name, c := range want {
		assert.Equal(t, c.Weights, got[name].Weights, name)
	}

	// Training resumes identically from the restored state.
	seq := []int{1, 2, 3}
	_, err = m.TrainPattern(seq)
	require.NoError(t, err)
	_, err = loaded.TrainPattern(seq)
	require.NoError(t, err)
	assertSameParams(t, m, loaded)
}

func TestBorn_FreshModelHasNoOptimizerState(t *testing.T) {
	m := newSmall(t, CellRNN)

	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))

	reader, err := serialization.NewReader(bytes.NewReader(buf.Bytes()), serialization.ReaderOptions{})
	require.NoError(t, err)
	assert.False(t, reader.HasOptimizerState())
	assert.Nil(t, reader.Header().CheckpointMeta)
}

func TestBorn_Corrupted(t *testing.T) {
	m := newSmall(t, CellRNN)

	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))
	data := buf.Bytes()
	data[len(data)-1] ^= 0xff

	_, err := Load(bytes.NewReader(data), quietLogger())
	require.ErrorIs(t, err, serialization.ErrChecksumMismatch)
}
