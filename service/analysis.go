package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/TIANLI0/TissueKit/config"
	"github.com/TIANLI0/TissueKit/model"
	"github.com/TIANLI0/TissueKit/utils"
	"go.uber.org/zap"
)

// AnalysisService runs the upload pipeline: calibrate on the reference capsule,
// then grid, segment and encode every tissue detection into one bundle.
type AnalysisService struct {
	capsules     Detector
	tissues      Detector
	segmenter    Segmenter
	gridSize     model.GridSize
	semaphore    chan struct{}
	queueTimeout time.Duration
}

func NewAnalysisService(cfg *config.AnalysisConfig, capsules, tissues Detector, segmenter Segmenter) *AnalysisService {
	return &AnalysisService{
		capsules:     capsules,
		tissues:      tissues,
		segmenter:    segmenter,
		gridSize:     model.GridSize{WidthCM: cfg.GridWidthCM, HeightCM: cfg.GridHeightCM},
		semaphore:    make(chan struct{}, max(1, cfg.MaxConcurrent)),
		queueTimeout: time.Duration(cfg.QueueTimeout) * time.Second,
	}
}

// AnalysisResult the bundle plus the records it was built from
type AnalysisResult struct {
	PixelsPerCM float64
	Records     []model.MetadataWithMask
	Bundle      model.CompressedBundle
}

// Analyze runs the whole pipeline for one image. Any failure aborts the image.
func (s *AnalysisService) Analyze(ctx context.Context, img ImageInput) (*AnalysisResult, error) {
	queueCtx, cancel := context.WithTimeout(ctx, s.queueTimeout)
	defer cancel()

	select {
	case s.semaphore <- struct{}{}:
		defer func() { <-s.semaphore }()
	case <-queueCtx.Done():
		return nil, fmt.Errorf("analysis queue is full, retry later")
	}

	startTime := time.Now()

	pixelsPerCM, err := s.calibrate(ctx, img)
	if err != nil {
		return nil, err
	}

	tissues, err := s.tissues.Detect(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("tissue detection: %w", err)
	}

	classes := make([]int, 0, len(tissues))
	for cls := range tissues {
		classes = append(classes, cls)
	}
	sort.Ints(classes)

	records := make([]model.MetadataWithMask, 0, tissues.Len())
	for _, cls := range classes {
		for _, box := range tissues[cls] {
			record, err := s.analyzeRegion(ctx, img, cls, box, pixelsPerCM)
			if err != nil {
				return nil, fmt.Errorf("tissue class %d at %v: %w", cls, box.BBox, err)
			}
			records = append(records, record)
		}
	}

	bundle, err := CompressBundle(records)
	if err != nil {
		return nil, err
	}

	utils.Logger.Info("image analyzed",
		zap.Int("rows", img.Rows),
		zap.Int("cols", img.Cols),
		zap.Float64("pixels_per_cm", pixelsPerCM),
		zap.Int("records", len(records)),
		zap.Int("bundle_bytes", len(bundle)),
		zap.Duration("duration", time.Since(startTime)))

	return &AnalysisResult{
		PixelsPerCM: pixelsPerCM,
		Records:     records,
		Bundle:      bundle,
	}, nil
}

func (s *AnalysisService) calibrate(ctx context.Context, img ImageInput) (float64, error) {
	capsules, err := s.capsules.Detect(ctx, img)
	if err != nil {
		return 0, fmt.Errorf("capsule detection: %w", err)
	}
	best, err := SelectBest(capsules)
	if err != nil {
		return 0, fmt.Errorf("capsule: %w", err)
	}

	mask, err := s.segment(ctx, img, best.BBox)
	if err != nil {
		return 0, fmt.Errorf("capsule: %w", err)
	}

	pixelsPerCM, err := PixelsPerCM(mask, best.ClassID)
	if err != nil {
		return 0, err
	}

	utils.Logger.Debug("scale calibrated",
		zap.Int("capsule_class", best.ClassID),
		zap.Float64("confidence", best.Confidence),
		zap.Float64("pixels_per_cm", pixelsPerCM))
	return pixelsPerCM, nil
}

func (s *AnalysisService) analyzeRegion(ctx context.Context, img ImageInput, cls int, box model.ScoredBox, pixelsPerCM float64) (model.MetadataWithMask, error) {
	grid, err := GenerateGrid(box.BBox, pixelsPerCM, s.gridSize)
	if err != nil {
		return model.MetadataWithMask{}, err
	}

	mask, err := s.segment(ctx, img, box.BBox)
	if err != nil {
		return model.MetadataWithMask{}, err
	}

	return EncodeMaskWithMetadata(mask, model.AnalysisRecord{
		Class:        cls,
		Confidence:   box.Confidence,
		BBox:         box.BBox,
		GridSegments: *grid,
	}), nil
}

func (s *AnalysisService) segment(ctx context.Context, img ImageInput, bbox model.BoundingBox) (model.BinaryMask, error) {
	candidates, err := s.segmenter.Segment(ctx, img, bbox)
	if err != nil {
		return model.BinaryMask{}, fmt.Errorf("segmentation: %w", err)
	}
	mask, err := BestMask(candidates)
	if err != nil {
		return model.BinaryMask{}, err
	}
	if mask.Rows != img.Rows || mask.Cols != img.Cols || len(mask.Pix) != mask.Rows*mask.Cols {
		return model.BinaryMask{}, fmt.Errorf("%w: mask %dx%d for image %dx%d",
			ErrMaskShapeMismatch, mask.Rows, mask.Cols, img.Rows, img.Cols)
	}
	return mask, nil
}
