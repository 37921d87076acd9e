package service

import (
	"fmt"
	"math"

	"github.com/TIANLI0/TissueKit/model"
	"github.com/TIANLI0/TissueKit/utils"
)

// MaxGridCells bounds the number of cells a single overlay may tile.
const MaxGridCells = 1 << 20

// GenerateGrid tiles bbox with cells of size.WidthCM × size.HeightCM centimeters
// at cmToPixels pixels per centimeter.
//
// Segments are emitted in raster order from (x_min, y_min): for every cell the
// top edge goes to the horizontal list and the left edge to the vertical list,
// both clipped to the box. A closing bottom row at the final y and a closing
// right column at x_max finish the grid.
func GenerateGrid(bbox model.BoundingBox, cmToPixels float64, size model.GridSize) (*model.GridOverlay, error) {
	cellWidth := cmToPixels * size.WidthCM
	cellHeight := cmToPixels * size.HeightCM

	if !positiveFinite(cellWidth) || !positiveFinite(cellHeight) {
		return nil, fmt.Errorf("%w: cell %gx%g px (scale %g, size %gx%g cm)",
			ErrInvalidGridSize, cellWidth, cellHeight, cmToPixels, size.WidthCM, size.HeightCM)
	}
	if !bbox.Valid() || !finite(bbox.XMin, bbox.YMin, bbox.XMax, bbox.YMax) {
		return nil, fmt.Errorf("%w: bounding box %v", ErrInvalidGridSize, bbox)
	}

	// a step below one ulp of the coordinates would never advance the sweep
	if !advances(bbox.XMin, bbox.XMax, cellWidth) || !advances(bbox.YMin, bbox.YMax, cellHeight) {
		return nil, fmt.Errorf("%w: cell %gx%g px too small for box %v",
			ErrInvalidGridSize, cellWidth, cellHeight, bbox)
	}

	cols := math.Ceil(bbox.Width() / cellWidth)
	rows := math.Ceil(bbox.Height() / cellHeight)
	if (cols+1)*(rows+1) > MaxGridCells {
		return nil, fmt.Errorf("%w: %gx%g cells exceeds limit %d", ErrInvalidGridSize, cols, rows, MaxGridCells)
	}

	horizontal := make([]model.GridSegment, 0, int((cols)*(rows+1)))
	vertical := make([]model.GridSegment, 0, int((cols+1)*(rows)))

	currentY := bbox.YMin
	for currentY < bbox.YMax {
		currentX := bbox.XMin
		for currentX < bbox.XMax {
			horizontal = append(horizontal, model.GridSegment{
				ID:     utils.NewSegmentID(),
				XStart: currentX,
				YStart: currentY,
				XEnd:   math.Min(currentX+cellWidth, bbox.XMax),
				YEnd:   currentY,
			})
			vertical = append(vertical, model.GridSegment{
				ID:     utils.NewSegmentID(),
				XStart: currentX,
				YStart: currentY,
				XEnd:   currentX,
				YEnd:   math.Min(currentY+cellHeight, bbox.YMax),
			})
			currentX += cellWidth
		}
		currentY += cellHeight
	}

	// bottom border along the last row boundary
	for currentX := bbox.XMin; currentX < bbox.XMax; currentX += cellWidth {
		horizontal = append(horizontal, model.GridSegment{
			ID:     utils.NewSegmentID(),
			XStart: currentX,
			YStart: currentY,
			XEnd:   math.Min(currentX+cellWidth, bbox.XMax),
			YEnd:   currentY,
		})
	}

	// right border
	for y := bbox.YMin; y < bbox.YMax; y += cellHeight {
		vertical = append(vertical, model.GridSegment{
			ID:     utils.NewSegmentID(),
			XStart: bbox.XMax,
			YStart: y,
			XEnd:   bbox.XMax,
			YEnd:   math.Min(y+cellHeight, bbox.YMax),
		})
	}

	return &model.GridOverlay{
		HorizontalSegments: horizontal,
		VerticalSegments:   vertical,
		Metadata: model.GridMetadata{
			BoundingBox: bbox,
			CMToPixels:  cmToPixels,
			GridSizeCM:  size,
		},
	}, nil
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// advances reports whether step is at least one ulp everywhere in [lo, hi].
func advances(lo, hi, step float64) bool {
	edge := math.Max(math.Abs(lo), math.Abs(hi))
	return math.Nextafter(edge, math.Inf(1))-edge <= step
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
