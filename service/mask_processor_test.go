package service

import (
	"testing"

	"github.com/TIANLI0/TissueKit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPolygons(t *testing.T) {
	mp := NewMaskProcessor(0)

	polygons, err := mp.ExtractPolygons(rectMask(20, 20, 2, 6, 3, 7))
	require.NoError(t, err)
	require.Len(t, polygons, 1)
	assert.ElementsMatch(t, model.Polygon{{X: 3, Y: 2}, {X: 3, Y: 6}, {X: 7, Y: 6}, {X: 7, Y: 2}}, polygons[0])
}

func TestExtractPolygons_SeparateRegions(t *testing.T) {
	m := rectMask(30, 30, 1, 5, 1, 5)
	for r := 15; r <= 25; r++ {
		for c := 10; c <= 20; c++ {
			m.Set(r, c, true)
		}
	}

	polygons, err := NewMaskProcessor(1).ExtractPolygons(m)
	require.NoError(t, err)
	assert.Len(t, polygons, 2)
	for _, p := range polygons {
		assert.GreaterOrEqual(t, len(p), 3)
	}
}

func TestExtractPolygons_Empty(t *testing.T) {
	mp := NewMaskProcessor(1)

	polygons, err := mp.ExtractPolygons(model.NewBinaryMask(10, 10))
	require.NoError(t, err)
	assert.NotNil(t, polygons)
	assert.Empty(t, polygons)

	polygons, err = mp.ExtractPolygons(model.BinaryMask{})
	require.NoError(t, err)
	assert.Empty(t, polygons)
}

func TestMaskMatRoundTrip(t *testing.T) {
	mp := NewMaskProcessor(0)
	m := maskFromRows("#..#", ".##.", "....")

	mat, err := mp.ToMat(m)
	require.NoError(t, err)
	defer mat.Close()
	assert.Equal(t, uint8(255), mat.GetUCharAt(0, 0))
	assert.Equal(t, uint8(0), mat.GetUCharAt(0, 1))

	got, err := mp.FromMat(mat)
	require.NoError(t, err)
	assert.True(t, m.Equal(got))

	_, err = mp.ToMat(model.BinaryMask{Rows: 2, Cols: 2, Pix: []uint8{1}})
	assert.ErrorIs(t, err, ErrMaskShapeMismatch)
}
