package timeseries

import (
	stderrors "errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
	"git.home.luguber.info/inful/synthdata/internal/sampling"
	"git.home.luguber.info/inful/synthdata/internal/stats"
)

func newTestGenerator(t *testing.T, seed uint64) *Generator {
	t.Helper()
	g, err := NewGenerator(DefaultTimeline(), sampling.NewSource(seed))
	require.NoError(t, err)
	return g
}

func TestNormalProcess(t *testing.T) {
	g := newTestGenerator(t, 1)

	f, err := g.NormalProcess(5, 2)
	require.NoError(t, err)
	assert.Equal(t, "normal_data", f.Column)
	assert.Equal(t, 144, f.Len())
	assert.Len(t, f.Time, 144)
	assert.True(t, g.Has(StageNormal))
	assert.False(t, g.Has(StageAnomaly))

	s := stats.Summarize(f.Values)
	assert.InDelta(t, 5, s.Mean, 1)
}

func TestNormalProcessRejectsNegativeScale(t *testing.T) {
	g := newTestGenerator(t, 1)
	_, err := g.NormalProcess(0, -1)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestGeneratorIsDeterministic(t *testing.T) {
	run := func() []float64 {
		g := newTestGenerator(t, 99)
		_, err := g.NormalProcess(0, 1)
		require.NoError(t, err)
		f, err := g.Anomalize(AnomalyOptions{Fraction: 0.1, Scale: 2})
		require.NoError(t, err)
		return f.Values
	}
	assert.Equal(t, run(), run())
}

func TestStagesRequireNormalProcess(t *testing.T) {
	g := newTestGenerator(t, 1)

	_, err := g.Anomalize(AnomalyOptions{Fraction: 0.1, Scale: 1})
	assert.True(t, stderrors.Is(err, ErrNotInitialized))

	_, err = g.ChunkAnomalize(ChunkOptions{Chunks: 2, Fraction: 0.1, Scale: 1})
	assert.True(t, stderrors.Is(err, ErrNotInitialized))

	_, err = g.Drift(DriftOptions{PctMean: 10})
	assert.True(t, stderrors.Is(err, ErrNotInitialized))

	_, err = g.Frame(StageDrifted)
	assert.True(t, stderrors.Is(err, ErrNotInitialized))
}

func TestAnomalize(t *testing.T) {
	g := newTestGenerator(t, 3)
	normal, err := g.NormalProcess(0, 1)
	require.NoError(t, err)

	f, err := g.Anomalize(AnomalyOptions{Fraction: 0.1, Scale: 3})
	require.NoError(t, err)
	assert.Equal(t, "anomaly_data", f.Column)
	assert.Equal(t, normal.Len(), f.Len())

	idx := g.AnomalyIndices()
	assert.Len(t, idx, 14)
	changed := stats.Diff(normal.Values, f.Values)
	assert.Subset(t, idx, changed)
	assert.Equal(t, normal.Values, g.Values(StageNormal), "normal stage must stay untouched")

	r := stats.Summarize(normal.Values).Range()
	for _, i := range idx {
		assert.LessOrEqual(t, math.Abs(f.Values[i]), 3*r)
	}
}

func TestAnomalizeOneSided(t *testing.T) {
	g := newTestGenerator(t, 4)
	normal, err := g.NormalProcess(10, 1)
	require.NoError(t, err)
	s := stats.Summarize(normal.Values)

	f, err := g.Anomalize(AnomalyOptions{Fraction: 0.2, Scale: 2, OneSided: true})
	require.NoError(t, err)
	lo, hi := 10+s.Min, 10+2*s.Range()
	if lo > hi {
		lo, hi = hi, lo
	}
	for _, i := range g.AnomalyIndices() {
		assert.GreaterOrEqual(t, f.Values[i], lo)
		assert.LessOrEqual(t, f.Values[i], hi)
	}
}

func TestAnomalizeValidation(t *testing.T) {
	g := newTestGenerator(t, 1)
	_, err := g.NormalProcess(0, 1)
	require.NoError(t, err)

	for _, opts := range []AnomalyOptions{
		{Fraction: 0, Scale: 1},
		{Fraction: 1, Scale: 1},
		{Fraction: -0.1, Scale: 1},
	} {
		_, err := g.Anomalize(opts)
		assert.True(t, stderrors.Is(err, ErrInvalidFraction), "fraction %v", opts.Fraction)
	}
	_, err = g.Anomalize(AnomalyOptions{Fraction: 0.1, Scale: 0})
	assert.True(t, stderrors.Is(err, ErrInvalidScale))
}

func TestChunkAnomalize(t *testing.T) {
	g := newTestGenerator(t, 5)
	_, err := g.NormalProcess(0, 1)
	require.NoError(t, err)

	// 144 points, 10% -> 14 anomalies over 4 chunks of 36: 4,4,3,3.
	f, err := g.ChunkAnomalize(ChunkOptions{Chunks: 4, Fraction: 0.1, Scale: 2})
	require.NoError(t, err)
	assert.Equal(t, 144, f.Len())
	assert.True(t, g.Has(StageAnomaly))

	idx := g.AnomalyIndices()
	require.Len(t, idx, 14)

	perChunk := map[int][]int{}
	for _, i := range idx {
		perChunk[i/36] = append(perChunk[i/36], i)
	}
	assert.Len(t, perChunk[0], 4)
	assert.Len(t, perChunk[1], 4)
	assert.Len(t, perChunk[2], 3)
	assert.Len(t, perChunk[3], 3)

	for c, run := range perChunk {
		for j := 1; j < len(run); j++ {
			assert.Equal(t, run[j-1]+1, run[j], "chunk %d must be contiguous", c)
		}
		mid := c*36 + 18
		assert.LessOrEqual(t, run[0], mid)
		assert.GreaterOrEqual(t, run[len(run)-1], mid-1)
	}
}

func TestChunkAnomalizeLeavesTrailingRemainder(t *testing.T) {
	tl, err := ParseTimeline("2021-01-01 00:00:00", "2021-01-01 00:10:00", 1)
	require.NoError(t, err)
	g, err := NewGenerator(tl, sampling.NewSource(8))
	require.NoError(t, err)
	normal, err := g.NormalProcess(0, 1)
	require.NoError(t, err)

	// 10 points, 3 chunks of 3, index 9 is the remainder.
	f, err := g.ChunkAnomalize(ChunkOptions{Chunks: 3, Fraction: 0.9, Scale: 1})
	require.NoError(t, err)
	assert.Equal(t, 10, f.Len())
	assert.Equal(t, normal.Values[9], f.Values[9])
	assert.Len(t, g.AnomalyIndices(), 9)
}

func TestChunkAnomalizeValidation(t *testing.T) {
	g := newTestGenerator(t, 1)
	_, err := g.NormalProcess(0, 1)
	require.NoError(t, err)

	_, err = g.ChunkAnomalize(ChunkOptions{Chunks: 0, Fraction: 0.1, Scale: 1})
	assert.True(t, stderrors.Is(err, ErrInvalidChunks))
	_, err = g.ChunkAnomalize(ChunkOptions{Chunks: 1000, Fraction: 0.1, Scale: 1})
	assert.True(t, stderrors.Is(err, ErrInvalidChunks))
}

func TestDriftMeanShift(t *testing.T) {
	g := newTestGenerator(t, 11)
	normal, err := g.NormalProcess(100, 1)
	require.NoError(t, err)

	f, err := g.Drift(DriftOptions{PctMean: 20})
	require.NoError(t, err)
	assert.Equal(t, "drifted_data", f.Column)
	assert.Equal(t, 72, g.DriftIndex())

	assert.Equal(t, normal.Values[:72], f.Values[:72])
	before := stats.Mean(normal.Values[72:])
	after := stats.Mean(f.Values[72:])
	assert.InDelta(t, before*1.2, after, 1e-9)
	for i := 72; i < f.Len(); i++ {
		assert.InDelta(t, normal.Values[i]+before*0.2, f.Values[i], 1e-9)
	}
}

func TestDriftSpreadScalesShift(t *testing.T) {
	g := newTestGenerator(t, 7)
	normal, err := g.NormalProcess(10, 1)
	require.NoError(t, err)

	f, err := g.Drift(DriftOptions{PctMean: 20, PctSpread: 50})
	require.NoError(t, err)
	m := stats.Mean(normal.Values[72:])
	for i := 72; i < f.Len(); i++ {
		assert.InDelta(t, normal.Values[i]+m*0.2*1.5, f.Values[i], 1e-9)
	}
	sBefore := stats.Summarize(normal.Values[72:])
	sAfter := stats.Summarize(f.Values[72:])
	assert.InDelta(t, sBefore.StdDev, sAfter.StdDev, 1e-9)
}

func TestDriftWidenTail(t *testing.T) {
	g := newTestGenerator(t, 12)
	normal, err := g.NormalProcess(0, 1)
	require.NoError(t, err)

	f, err := g.Drift(DriftOptions{PctSpread: 100, WidenTail: true})
	require.NoError(t, err)
	sBefore := stats.Summarize(normal.Values[72:])
	sAfter := stats.Summarize(f.Values[72:])
	assert.InDelta(t, sBefore.Mean, sAfter.Mean, 1e-9)
	assert.InDelta(t, 2*sBefore.StdDev, sAfter.StdDev, 1e-9)
}

func TestDriftUsesAnomalyStage(t *testing.T) {
	g := newTestGenerator(t, 13)
	_, err := g.NormalProcess(0, 1)
	require.NoError(t, err)
	anom, err := g.Anomalize(AnomalyOptions{Fraction: 0.1, Scale: 2})
	require.NoError(t, err)

	f, err := g.Drift(DriftOptions{PctMean: 0})
	require.NoError(t, err)
	assert.InDeltaSlice(t, anom.Values, f.Values, 1e-9)
}

func TestDriftChangePoint(t *testing.T) {
	g := newTestGenerator(t, 14)
	_, err := g.NormalProcess(50, 1)
	require.NoError(t, err)

	at := time.Date(2021, 1, 1, 6, 0, 0, 0, time.UTC)
	_, err = g.Drift(DriftOptions{PctMean: 10, At: &at})
	require.NoError(t, err)
	assert.Equal(t, 36, g.DriftIndex())
	require.NotNil(t, g.Params().DriftAt)
	assert.Equal(t, at, *g.Params().DriftAt)

	outside := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = g.Drift(DriftOptions{PctMean: 10, At: &outside})
	assert.True(t, stderrors.Is(err, ErrInvalidChangePoint))

	end := g.Timeline().End
	f, err := g.Drift(DriftOptions{PctMean: 10, At: &end})
	require.NoError(t, err)
	assert.Equal(t, g.Values(StageNormal), f.Values, "drift at the end changes nothing")
}

func TestNormalProcessResetsLaterStages(t *testing.T) {
	g := newTestGenerator(t, 15)
	_, err := g.NormalProcess(0, 1)
	require.NoError(t, err)
	_, err = g.Anomalize(AnomalyOptions{Fraction: 0.1, Scale: 1})
	require.NoError(t, err)
	_, err = g.Drift(DriftOptions{PctMean: 5})
	require.NoError(t, err)

	_, err = g.NormalProcess(1, 1)
	require.NoError(t, err)
	assert.False(t, g.Has(StageAnomaly))
	assert.False(t, g.Has(StageDrifted))
	assert.Equal(t, -1, g.DriftIndex())
}

func TestGeneratorString(t *testing.T) {
	g := newTestGenerator(t, 1)
	out := g.String()
	assert.True(t, strings.HasPrefix(out, "Parameters\n"))
	assert.Contains(t, out, "Start time: 2021-01-01 00:00:00")
	assert.Contains(t, out, "End time: 2021-01-02 00:00:00")
	assert.Contains(t, out, "Process time (minutes): 10")
}
