package dataset

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
	"git.home.luguber.info/inful/synthdata/internal/sampling"
	"git.home.luguber.info/inful/synthdata/internal/stats"
)

func TestSeriesWithAnomalies(t *testing.T) {
	o := DefaultSeriesOptions()
	values, idx, err := SeriesWithAnomalies(o, sampling.NewSource(1))
	require.NoError(t, err)
	assert.Len(t, values, 1000)
	assert.Len(t, idx, 20)
	assert.IsIncreasing(t, idx)
}

func TestSeriesWithoutAnomalies(t *testing.T) {
	o := DefaultSeriesOptions()
	o.Fraction = 0
	values, idx, err := SeriesWithAnomalies(o, sampling.NewSource(1))
	require.NoError(t, err)
	assert.Len(t, values, 1000)
	assert.Empty(t, idx)
}

func TestSeriesAnomaliesStayInBounds(t *testing.T) {
	o := SeriesOptions{Size: 200, Fraction: 0.1, Scale: 1, Loc: 0, Sigma: 1}
	src := sampling.NewSource(3)

	// Same seed again to recover the clean draw.
	clean := sampling.NewSource(3).Normal(200, 0, 1)
	s := stats.Summarize(clean)

	values, idx, err := SeriesWithAnomalies(o, src)
	require.NoError(t, err)
	for _, i := range idx {
		assert.GreaterOrEqual(t, values[i], s.Min-s.Range())
		assert.LessOrEqual(t, values[i], s.Max+s.Range())
	}
}

func TestSeriesOptionsValidation(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*SeriesOptions)
	}{
		{"zero size", func(o *SeriesOptions) { o.Size = 0 }},
		{"fraction one", func(o *SeriesOptions) { o.Fraction = 1 }},
		{"negative fraction", func(o *SeriesOptions) { o.Fraction = -0.1 }},
		{"negative sigma", func(o *SeriesOptions) { o.Sigma = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultSeriesOptions()
			tt.mod(&o)
			_, _, err := SeriesWithAnomalies(o, sampling.NewSource(1))
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
		})
	}
}

func TestGenerate(t *testing.T) {
	o := DefaultCollectionOptions()
	o.N = 50
	o.ProbAnomalous = 0.5
	o.Series.Size = 100

	c, err := Generate(o, sampling.NewSource(21))
	require.NoError(t, err)
	require.Equal(t, 50, c.Len())
	assert.Equal(t, 5000, c.Points())

	for i, s := range c.Samples {
		assert.Equal(t, strconv.Itoa(i), s.ID)
		if s.Anomalous() {
			assert.Len(t, s.AnomalyIndices, 2)
		} else {
			assert.Empty(t, s.AnomalyIndices)
		}
	}
	normal, anomalous := c.Counts()
	assert.Equal(t, 50, normal+anomalous)
	assert.Positive(t, normal)
	assert.Positive(t, anomalous)
}

func TestGenerateZeroProbabilityIsAllNormal(t *testing.T) {
	o := DefaultCollectionOptions()
	o.ProbAnomalous = 0
	o.Series.Size = 10
	c, err := Generate(o, sampling.NewSource(2))
	require.NoError(t, err)
	_, anomalous := c.Counts()
	assert.Zero(t, anomalous)
}

func TestGenerateRejectsCertainAnomaly(t *testing.T) {
	o := DefaultCollectionOptions()
	o.ProbAnomalous = 1.0
	_, err := Generate(o, sampling.NewSource(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dataset.prob_anomalous")
}

func TestGenerateParallelIgnoresWorkerCount(t *testing.T) {
	o := DefaultCollectionOptions()
	o.N = 40
	o.ProbAnomalous = 0.3
	o.Series.Size = 64

	one, err := GenerateParallel(context.Background(), o, sampling.NewSource(77), 1)
	require.NoError(t, err)
	many, err := GenerateParallel(context.Background(), o, sampling.NewSource(77), 8)
	require.NoError(t, err)
	assert.Equal(t, one, many)
}

func TestGenerateParallelCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := GenerateParallel(ctx, DefaultCollectionOptions(), sampling.NewSource(1), 2)
	require.ErrorIs(t, err, context.Canceled)
}
