package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/TIANLI0/TissueKit/config"
	"github.com/TIANLI0/TissueKit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRows = 20
	testCols = 30
)

func testImage() ImageInput {
	return ImageInput{Data: []byte("fake"), ContentType: "image/png", Rows: testRows, Cols: testCols}
}

func staticDetector(d model.Detections) Detector {
	return DetectorFunc(func(context.Context, ImageInput) (model.Detections, error) {
		return d, nil
	})
}

// boxSegmenter fills the requested box, recording every call.
type boxSegmenter struct {
	mu    sync.Mutex
	calls []model.BoundingBox
}

func (s *boxSegmenter) Segment(_ context.Context, img ImageInput, bbox model.BoundingBox) ([]model.MaskCandidate, error) {
	s.mu.Lock()
	s.calls = append(s.calls, bbox)
	s.mu.Unlock()

	m := rectMask(img.Rows, img.Cols, int(bbox.YMin), int(bbox.YMax)-1, int(bbox.XMin), int(bbox.XMax)-1)
	return []model.MaskCandidate{
		{Mask: model.NewBinaryMask(img.Rows, img.Cols), Score: 0.1},
		{Mask: m, Score: 0.9},
	}, nil
}

func newTestAnalysis(capsules, tissues Detector, seg Segmenter) *AnalysisService {
	return NewAnalysisService(&config.AnalysisConfig{
		MaxConcurrent: 1,
		QueueTimeout:  1,
		GridWidthCM:   1,
		GridHeightCM:  1,
	}, capsules, tissues, seg)
}

func TestAnalyze(t *testing.T) {
	capsules := staticDetector(model.Detections{
		0: {{BBox: box(0, 0, 16, 4), Confidence: 0.95}},
		1: {{BBox: box(0, 0, 4, 4), Confidence: 0.40}},
	})
	tissues := staticDetector(model.Detections{
		2: {{BBox: box(20, 10, 30, 20), Confidence: 0.7}},
		1: {
			{BBox: box(0, 10, 6, 14), Confidence: 0.8},
			{BBox: box(10, 0, 14, 8), Confidence: 0.6},
		},
	})
	seg := &boxSegmenter{}

	res, err := newTestAnalysis(capsules, tissues, seg).Analyze(context.Background(), testImage())
	require.NoError(t, err)

	// 16 px wide long capsule
	assert.InDelta(t, 2.0, res.PixelsPerCM, 1e-9)
	require.Len(t, res.Records, 3)
	assert.Len(t, seg.calls, 4)
	assert.Equal(t, box(0, 0, 16, 4), seg.calls[0])

	wantClasses := []int{1, 1, 2}
	for i, r := range res.Records {
		assert.Equal(t, wantClasses[i], r.Metadata.Class)
		assert.Equal(t, r.Metadata.BBox, r.Metadata.GridSegments.Metadata.BoundingBox)
		assert.Equal(t, 2.0, r.Metadata.GridSegments.Metadata.CMToPixels)
		assert.NotEmpty(t, r.Metadata.GridSegments.HorizontalSegments)
	}
	assert.Equal(t, 0.8, res.Records[0].Metadata.Confidence)
	assert.Equal(t, box(10, 0, 14, 8), res.Records[1].Metadata.BBox)

	stored, err := DecompressBundle(res.Bundle)
	require.NoError(t, err)
	assert.Equal(t, res.Records, stored)

	mask, _, err := DecodeMaskWithMetadata(stored[2], testRows, testCols)
	require.NoError(t, err)
	assert.True(t, mask.Equal(rectMask(testRows, testCols, 10, 19, 20, 29)))
}

func TestAnalyze_NoTissue(t *testing.T) {
	capsules := staticDetector(model.Detections{1: {{BBox: box(0, 0, 8, 2), Confidence: 0.9}}})

	res, err := newTestAnalysis(capsules, staticDetector(model.Detections{}), &boxSegmenter{}).
		Analyze(context.Background(), testImage())
	require.NoError(t, err)
	assert.Empty(t, res.Records)

	stored, err := DecompressBundle(res.Bundle)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestAnalyze_Failures(t *testing.T) {
	capsule := staticDetector(model.Detections{0: {{BBox: box(0, 0, 16, 4), Confidence: 0.9}}})
	tissue := staticDetector(model.Detections{0: {{BBox: box(0, 0, 10, 10), Confidence: 0.9}}})
	detectErr := errors.New("sidecar down")

	tests := []struct {
		name     string
		capsules Detector
		tissues  Detector
		seg      Segmenter
		wantErr  error
	}{
		{
			name:     "no capsule",
			capsules: staticDetector(model.Detections{}),
			tissues:  tissue,
			seg:      &boxSegmenter{},
			wantErr:  ErrNoDetection,
		},
		{
			name:     "empty capsule mask",
			capsules: capsule,
			tissues:  tissue,
			seg: SegmenterFunc(func(_ context.Context, img ImageInput, _ model.BoundingBox) ([]model.MaskCandidate, error) {
				return []model.MaskCandidate{{Mask: model.NewBinaryMask(img.Rows, img.Cols), Score: 1}}, nil
			}),
			wantErr: ErrCalibration,
		},
		{
			name:     "no mask candidates",
			capsules: capsule,
			tissues:  tissue,
			seg: SegmenterFunc(func(context.Context, ImageInput, model.BoundingBox) ([]model.MaskCandidate, error) {
				return nil, nil
			}),
			wantErr: ErrNoDetection,
		},
		{
			name:     "mask of wrong shape",
			capsules: capsule,
			tissues:  tissue,
			seg: SegmenterFunc(func(context.Context, ImageInput, model.BoundingBox) ([]model.MaskCandidate, error) {
				return []model.MaskCandidate{{Mask: rectMask(5, 5, 0, 4, 0, 4), Score: 1}}, nil
			}),
			wantErr: ErrMaskShapeMismatch,
		},
		{
			name:     "tissue detector error",
			capsules: capsule,
			tissues: DetectorFunc(func(context.Context, ImageInput) (model.Detections, error) {
				return nil, detectErr
			}),
			seg:     &boxSegmenter{},
			wantErr: detectErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newTestAnalysis(tt.capsules, tt.tissues, tt.seg).Analyze(context.Background(), testImage())
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAnalyze_QueueFull(t *testing.T) {
	s := NewAnalysisService(&config.AnalysisConfig{MaxConcurrent: 1, QueueTimeout: 0, GridWidthCM: 1, GridHeightCM: 1},
		staticDetector(model.Detections{}), staticDetector(model.Detections{}), &boxSegmenter{})
	s.semaphore <- struct{}{}

	_, err := s.Analyze(context.Background(), testImage())
	require.Error(t, err)
	assert.False(t, IsAnalysisError(err))
}
