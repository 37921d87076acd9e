package service

import (
	"context"

	"github.com/TIANLI0/TissueKit/model"
)

// ImageInput an uploaded image as handed to the model collaborators
type ImageInput struct {
	Data        []byte
	ContentType string
	Rows        int
	Cols        int
}

// Detector produces class id → boxes for an image.
type Detector interface {
	Detect(ctx context.Context, img ImageInput) (model.Detections, error)
}

// Segmenter proposes masks for one box of an image.
type Segmenter interface {
	Segment(ctx context.Context, img ImageInput, bbox model.BoundingBox) ([]model.MaskCandidate, error)
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(ctx context.Context, img ImageInput) (model.Detections, error)

func (f DetectorFunc) Detect(ctx context.Context, img ImageInput) (model.Detections, error) {
	return f(ctx, img)
}

// SegmenterFunc adapts a function to Segmenter.
type SegmenterFunc func(ctx context.Context, img ImageInput, bbox model.BoundingBox) ([]model.MaskCandidate, error)

func (f SegmenterFunc) Segment(ctx context.Context, img ImageInput, bbox model.BoundingBox) ([]model.MaskCandidate, error) {
	return f(ctx, img, bbox)
}
