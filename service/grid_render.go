package service

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/TIANLI0/TissueKit/model"
	"gocv.io/x/gocv"
)

var gridLineColor = color.RGBA{R: 0, G: 0, B: 0, A: 255}

// RenderGrid draws the overlay's segments onto the encoded image and returns a PNG.
func RenderGrid(imageData []byte, grid model.GridOverlay) ([]byte, error) {
	img, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("failed to read image")
	}

	for _, segs := range [][]model.GridSegment{grid.HorizontalSegments, grid.VerticalSegments} {
		for _, s := range segs {
			gocv.Line(&img, toPixel(s.XStart, s.YStart), toPixel(s.XEnd, s.YEnd), gridLineColor, 1)
		}
	}

	data, err := gocv.IMEncode(".png", img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode grid preview: %w", err)
	}
	defer data.Close()

	return append([]byte(nil), data.GetBytes()...), nil
}

func toPixel(x, y float64) image.Point {
	return image.Point{X: int(math.Round(x)), Y: int(math.Round(y))}
}
