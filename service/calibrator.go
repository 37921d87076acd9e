package service

import (
	"fmt"

	"github.com/TIANLI0/TissueKit/model"
)

// Known physical lengths of the reference capsule in its two visual states.
const (
	capsuleLongCM  = 8.0
	capsuleShortCM = 4.0
)

// ReferenceLengthCM returns the physical length of the reference object for classID.
func ReferenceLengthCM(classID int) float64 {
	if classID == 0 {
		return capsuleLongCM
	}
	return capsuleShortCM
}

// PixelsPerCM derives the image scale from the reference object's mask.
func PixelsPerCM(mask model.BinaryMask, classID int) (float64, error) {
	rowMin, rowMax := -1, -1
	colMin, colMax := mask.Cols, -1

	for r := 0; r < mask.Rows; r++ {
		row := mask.Pix[r*mask.Cols : (r+1)*mask.Cols]
		for c, v := range row {
			if v == 0 {
				continue
			}
			if rowMin < 0 {
				rowMin = r
			}
			rowMax = r
			if c < colMin {
				colMin = c
			}
			if c > colMax {
				colMax = c
			}
		}
	}

	if rowMin < 0 || colMax < 0 {
		return 0, fmt.Errorf("%w: reference mask %dx%d has no foreground", ErrCalibration, mask.Rows, mask.Cols)
	}

	width := colMax - colMin + 1
	height := rowMax - rowMin + 1
	return float64(max(width, height)) / ReferenceLengthCM(classID), nil
}
