package service

import (
	"testing"

	"github.com/TIANLI0/TissueKit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedImage(t *testing.T, id int64, records []model.MetadataWithMask) *model.ImageRecord {
	t.Helper()

	bundle, err := CompressBundle(records)
	require.NoError(t, err)
	return &model.ImageRecord{ID: id, Filename: "slide.png", Height: 3, Width: 4, Bundle: bundle}
}

func TestRetrieve(t *testing.T) {
	s := NewRetrievalService(NewMaskProcessor(0), 64)
	img := storedImage(t, 7, sampleRecords(t))

	got := s.Retrieve(img)
	assert.Empty(t, got.Error)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, [2]int{3, 4}, got.ImageShape)
	require.Len(t, got.Records, 2)
	assert.Equal(t, 2, got.Records[0].Class)
	assert.NotEmpty(t, got.Records[0].Polygons)
	assert.Len(t, got.Records[0].GridSegments.HorizontalSegments, 16)
}

func TestRetrieve_IsolatesFailures(t *testing.T) {
	s := NewRetrievalService(NewMaskProcessor(0), 64)

	bad := &model.ImageRecord{ID: 1, Filename: "broken.png", Height: 3, Width: 4, Bundle: "not a bundle"}
	got := s.Retrieve(bad)
	assert.NotEmpty(t, got.Error)
	assert.NotNil(t, got.Records)
	assert.Empty(t, got.Records)
	assert.Equal(t, "broken.png", got.Filename)

	// a bundle recorded against a larger image than the stored shape
	mismatched := storedImage(t, 2, []model.MetadataWithMask{{RLE: model.EncodedMask{0, 100}}})
	got = s.Retrieve(mismatched)
	assert.Contains(t, got.Error, ErrMaskShapeMismatch.Error())
}

func TestRetrievalGrid(t *testing.T) {
	s := NewRetrievalService(NewMaskProcessor(0), 64)
	records := sampleRecords(t)
	img := storedImage(t, 3, records)

	g, err := s.Grid(img, 0)
	require.NoError(t, err)
	assert.Equal(t, records[0].Metadata.GridSegments, *g)

	_, err = s.Grid(img, 2)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	_, err = s.Grid(img, -1)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	_, err = s.Grid(&model.ImageRecord{Bundle: "???"}, 0)
	assert.ErrorIs(t, err, ErrCodec)
}
