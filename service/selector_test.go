package service

import (
	"testing"

	"github.com/TIANLI0/TissueKit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box(x0, y0, x1, y1 float64) model.BoundingBox {
	return model.BoundingBox{XMin: x0, YMin: y0, XMax: x1, YMax: y1}
}

func TestSelectBest(t *testing.T) {
	detections := model.Detections{
		0: {{BBox: box(0, 0, 10, 10), Confidence: 0.6}},
		1: {
			{BBox: box(5, 5, 20, 20), Confidence: 0.9},
			{BBox: box(1, 1, 2, 2), Confidence: 0.3},
		},
	}

	got, err := SelectBest(detections)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ClassID)
	assert.Equal(t, 0.9, got.Confidence)
	assert.Equal(t, box(5, 5, 20, 20), got.BBox)
}

func TestSelectBest_TieKeepsFirst(t *testing.T) {
	detections := model.Detections{
		3: {{BBox: box(30, 30, 40, 40), Confidence: 0.8}},
		1: {
			{BBox: box(0, 0, 1, 1), Confidence: 0.8},
			{BBox: box(2, 2, 3, 3), Confidence: 0.8},
		},
	}

	for i := 0; i < 20; i++ {
		got, err := SelectBest(detections)
		require.NoError(t, err)
		assert.Equal(t, 1, got.ClassID)
		assert.Equal(t, box(0, 0, 1, 1), got.BBox)
	}
}

func TestSelectBest_Empty(t *testing.T) {
	_, err := SelectBest(model.Detections{})
	assert.ErrorIs(t, err, ErrNoDetection)

	_, err = SelectBest(nil)
	assert.ErrorIs(t, err, ErrNoDetection)

	_, err = SelectBest(model.Detections{0: {}, 2: nil})
	assert.ErrorIs(t, err, ErrNoDetection)
}

func TestBestMask(t *testing.T) {
	a := maskFromRows("#.")
	b := maskFromRows(".#")
	c := maskFromRows("##")

	got, err := BestMask([]model.MaskCandidate{{Mask: a, Score: 0.2}, {Mask: b, Score: 0.7}, {Mask: c, Score: 0.7}})
	require.NoError(t, err)
	assert.True(t, got.Equal(b))

	_, err = BestMask(nil)
	assert.ErrorIs(t, err, ErrNoDetection)
}
