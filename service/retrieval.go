package service

import (
	"errors"
	"fmt"

	"github.com/TIANLI0/TissueKit/model"
	"github.com/TIANLI0/TissueKit/utils"
	"go.uber.org/zap"
)

// ErrRecordNotFound the bundle has no record at the requested index
var ErrRecordNotFound = errors.New("record not found")

// RetrievalService turns stored bundles back into client-ready grids and polygons
type RetrievalService struct {
	masks          *MaskProcessor
	previewMaxSize int
}

func NewRetrievalService(masks *MaskProcessor, previewMaxSize int) *RetrievalService {
	return &RetrievalService{
		masks:          masks,
		previewMaxSize: previewMaxSize,
	}
}

// Records decodes the bundle of img and converts every mask to polygons.
// Masks are dropped once their polygons are extracted.
func (s *RetrievalService) Records(img *model.ImageRecord) ([]model.RecordView, error) {
	records, err := DecompressBundle(img.Bundle)
	if err != nil {
		return nil, err
	}

	views := make([]model.RecordView, 0, len(records))
	for i, r := range records {
		mask, meta, err := DecodeMaskWithMetadata(r, img.Height, img.Width)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		polygons, err := s.masks.ExtractPolygons(mask)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		views = append(views, model.RecordView{
			Class:        meta.Class,
			Confidence:   meta.Confidence,
			BBox:         meta.BBox,
			GridSegments: meta.GridSegments,
			Polygons:     polygons,
		})
	}
	return views, nil
}

// Retrieve builds the client view of one image. Decode failures are reported
// on the item rather than returned, so one bad bundle does not sink a batch.
func (s *RetrievalService) Retrieve(img *model.ImageRecord) model.ImageAnalysis {
	out := model.ImageAnalysis{
		ID:         img.ID,
		Filename:   img.Filename,
		ImageShape: [2]int{img.Height, img.Width},
		Records:    []model.RecordView{},
	}

	records, err := s.Records(img)
	if err != nil {
		utils.Logger.Warn("failed to decode analysis bundle",
			zap.Int64("image_id", img.ID),
			zap.String("filename", img.Filename),
			zap.Error(err))
		out.Error = err.Error()
	} else {
		out.Records = records
	}

	if len(img.Data) > 0 {
		preview, err := PreviewJPEG(img.Data, s.previewMaxSize)
		if err != nil {
			utils.Logger.Warn("failed to build preview", zap.Int64("image_id", img.ID), zap.Error(err))
		} else {
			out.Preview = preview
		}
	}
	return out
}

// Grid returns the stored overlay of record index of img.
func (s *RetrievalService) Grid(img *model.ImageRecord, index int) (*model.GridOverlay, error) {
	records, err := DecompressBundle(img.Bundle)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(records) {
		return nil, fmt.Errorf("%w: index %d of %d", ErrRecordNotFound, index, len(records))
	}
	grid := records[index].Metadata.GridSegments
	return &grid, nil
}
