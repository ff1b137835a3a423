package recipe

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/synthdata/internal/export"
	"git.home.luguber.info/inful/synthdata/internal/sampling"
	"git.home.luguber.info/inful/synthdata/internal/timeseries"
)

func TestExecuteSeries(t *testing.T) {
	r, err := Decode([]byte(seriesYAML))
	require.NoError(t, err)

	res, err := Execute(context.Background(), r, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), res.Seed)
	require.Len(t, res.Frames, 3)
	assert.Equal(t, 144, res.Points())
	assert.Equal(t, 7, res.Anomalies)
	require.Len(t, res.Stages, 3)
	assert.Equal(t, "drifted", res.Stages[2].Stage)
	require.NotNil(t, res.Params)
	require.NotNil(t, res.Params.DriftAt)

	out, err := res.Encode(export.FormatCSV)
	require.NoError(t, err)
	recs, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, recs, 145)
	assert.Equal(t, []string{"time", "normal_data", "anomaly_data", "drifted_data"}, recs[0])
}

func TestExecuteIsDeterministic(t *testing.T) {
	r, err := Decode([]byte(seriesYAML))
	require.NoError(t, err)

	a, err := Execute(context.Background(), r, nil)
	require.NoError(t, err)
	b, err := Execute(context.Background(), r, nil)
	require.NoError(t, err)
	assert.Equal(t, a.Frames, b.Frames)
}

func TestExecuteDefaultSeries(t *testing.T) {
	res, err := Execute(context.Background(), Recipe{Name: "plain", Kind: KindSeries}, sampling.NewSource(1))
	require.NoError(t, err)
	require.Len(t, res.Frames, 1)
	assert.Equal(t, "normal_data", res.Frames[0].Column)
	assert.Zero(t, res.Anomalies)
}

func TestExecutePattern(t *testing.T) {
	r := Recipe{Name: "p", Kind: KindPattern, Seed: 3, Pattern: &PatternRecipe{Length: 80}}
	res, err := Execute(context.Background(), r, nil)
	require.NoError(t, err)
	assert.Len(t, res.Series, 80)
	assert.Equal(t, 80, res.Points())

	png, err := res.Plot("png")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestExecuteDataset(t *testing.T) {
	prob := 0.5
	r := Recipe{Name: "d", Kind: KindDataset, Seed: 9, Dataset: &DatasetRecipe{N: 12, Size: 50, ProbAnomalous: &prob, Workers: 3}}
	res, err := Execute(context.Background(), r, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Collection)
	assert.Equal(t, 600, res.Points())
	_, anomalous := res.Collection.Counts()
	assert.Equal(t, anomalous, res.Anomalies)

	_, err = res.Plot("png")
	require.Error(t, err)

	out, err := res.Encode(export.FormatNDJSON)
	require.NoError(t, err)
	assert.Equal(t, 12, bytes.Count(out, []byte("\n")))
}

func TestExecuteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Execute(ctx, Recipe{Name: "x", Kind: KindSeries}, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestExecuteReportsFailingStage(t *testing.T) {
	r := Recipe{
		Name: "late-drift",
		Kind: KindSeries,
		Seed: 5,
		Series: &SeriesRecipe{
			Drift: &DriftRecipe{PctMean: 10, At: "2030-01-01 00:00:00"},
		},
	}
	_, err := Execute(context.Background(), r, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, timeseries.ErrInvalidChangePoint)
	assert.Equal(t, "drifted", StageOf(err))
	assert.Empty(t, StageOf(assert.AnError))
}
