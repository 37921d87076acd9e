package service

import (
	"context"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/TIANLI0/TissueKit/model"
	"github.com/TIANLI0/TissueKit/utils"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// GrabCutSegmenter is a local Segmenter seeded with the detection box, used
// when no segmentation sidecar is configured.
type GrabCutSegmenter struct {
	iterations int
	kernelSize int
	masks      *MaskProcessor
}

func NewGrabCutSegmenter(iterations int, masks *MaskProcessor) *GrabCutSegmenter {
	return &GrabCutSegmenter{
		iterations: max(1, iterations),
		kernelSize: 5,
		masks:      masks,
	}
}

// Segment proposes the raw GrabCut foreground and a morphologically cleaned
// version of it, each scored by how much of the box it fills.
func (s *GrabCutSegmenter) Segment(ctx context.Context, img ImageInput, bbox model.BoundingBox) ([]model.MaskCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	startTime := time.Now()

	src, err := gocv.IMDecode(img.Data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	defer src.Close()
	if src.Empty() {
		return nil, fmt.Errorf("failed to read image")
	}

	rect := clampRect(bbox, src.Cols(), src.Rows())
	if rect.Dx() < 2 || rect.Dy() < 2 {
		return nil, nil
	}

	mask := gocv.NewMat()
	defer mask.Close()
	bgdModel := gocv.NewMat()
	defer bgdModel.Close()
	fgdModel := gocv.NewMat()
	defer fgdModel.Close()

	gocv.GrabCut(src, &mask, rect, &bgdModel, &fgdModel, s.iterations, gocv.GCInitWithRect)

	fgMask := s.masks.ExtractForeground(&mask)
	defer fgMask.Close()
	optimized := s.masks.MorphologyOptimize(&fgMask, s.kernelSize)
	defer optimized.Close()

	candidates := make([]model.MaskCandidate, 0, 2)
	for _, m := range []gocv.Mat{optimized, fgMask} {
		bm, err := s.masks.FromMat(m)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, model.MaskCandidate{
			Mask:  bm,
			Score: boxFill(m, rect),
		})
	}

	utils.Logger.Debug("grabcut segmented",
		zap.Any("rect", rect),
		zap.Float64("score", candidates[0].Score),
		zap.Duration("duration", time.Since(startTime)))
	return candidates, nil
}

func clampRect(b model.BoundingBox, width, height int) image.Rectangle {
	r := image.Rect(
		int(math.Floor(b.XMin)), int(math.Floor(b.YMin)),
		int(math.Ceil(b.XMax)), int(math.Ceil(b.YMax)),
	)
	return r.Intersect(image.Rect(0, 0, width, height))
}

// boxFill share of the box covered by foreground, clamped to [0.05, 0.95]
func boxFill(mask gocv.Mat, rect image.Rectangle) float64 {
	region := mask.Region(rect)
	defer region.Close()

	fill := float64(gocv.CountNonZero(region)) / float64(rect.Dx()*rect.Dy())
	return math.Min(0.95, math.Max(0.05, fill))
}
