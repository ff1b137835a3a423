package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/synthdata/internal/foundation/errors"
	"git.home.luguber.info/inful/synthdata/internal/sampling"
)

func TestShapesWithoutNoise(t *testing.T) {
	src := sampling.NewSource(1)

	bell := Bell(src, 4, 8, 0)
	assert.InDeltaSlice(t, []float64{0, 2, 4, 6}, bell, 1e-12)

	funnel := Funnel(src, 4, 8, 0)
	assert.InDeltaSlice(t, []float64{6, 4, 2, 0}, funnel, 1e-12)

	cyl := Cylinder(src, 3, 2.5, 0)
	assert.InDeltaSlice(t, []float64{2.5, 2.5, 2.5}, cyl, 1e-12)
}

func TestParseShape(t *testing.T) {
	k, err := ParseShape(" Bell ")
	require.NoError(t, err)
	assert.Equal(t, ShapeBell, k)

	_, err = ParseShape("triangle")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))

	_, err = ParseShape("")
	require.Error(t, err)

	ks, err := ParseShapes([]string{"funnel", "FUNNEL", "cylinder"})
	require.NoError(t, err)
	assert.Equal(t, []ShapeKind{ShapeFunnel, ShapeCylinder}, ks)
}

func TestGenerateDefaults(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		data, segs, err := Generate(DefaultOptions(), sampling.NewSource(seed))
		require.NoError(t, err)
		require.Len(t, data, 100)

		prevEnd := 0
		for _, s := range segs {
			assert.GreaterOrEqual(t, s.Length, 1)
			assert.GreaterOrEqual(t, s.Start, prevEnd, "segments must not overlap")
			assert.Less(t, s.End(), 100)
			assert.Contains(t, AllShapes, s.Shape)
			prevEnd = s.End()
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	a, sa, err := Generate(DefaultOptions(), sampling.NewSource(5))
	require.NoError(t, err)
	b, sb, err := Generate(DefaultOptions(), sampling.NewSource(5))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, sa, sb)
}

func TestGenerateCylinderPlateau(t *testing.T) {
	opts := DefaultOptions()
	opts.Length = 500
	opts.DefaultVariance = 0
	opts.VarianceAmplitude = 0
	opts.AvgAmplitude = 3
	opts.Shapes = []ShapeKind{ShapeCylinder}
	opts.IncludeNegatives = false

	data, segs, err := Generate(opts, sampling.NewSource(9))
	require.NoError(t, err)
	require.NotEmpty(t, segs)

	covered := 0
	for _, s := range segs {
		assert.False(t, s.Negated)
		for i := s.Start; i < s.End(); i++ {
			assert.InDelta(t, 3, data[i], 1e-12)
		}
		covered += s.Length
	}
	assert.Equal(t, covered, 500-countZeros(data))
}

func countZeros(v []float64) int {
	n := 0
	for _, x := range v {
		if x == 0 {
			n++
		}
	}
	return n
}

func TestGenerateValidation(t *testing.T) {
	opts := DefaultOptions()
	opts.Length = 0
	opts.DefaultVariance = -1
	opts.Shapes = nil

	_, _, err := Generate(opts, sampling.NewSource(1))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	assert.Contains(t, err.Error(), "pattern.length")
	assert.Contains(t, err.Error(), "pattern.default_variance")
	assert.Contains(t, err.Error(), "pattern.shapes")
}
