package model

import (
	"encoding/json"
	"fmt"
)

// BoundingBox axis-aligned pixel-space box, serialized as [x_min, y_min, x_max, y_max]
type BoundingBox struct {
	XMin float64
	YMin float64
	XMax float64
	YMax float64
}

// Valid reports whether the box has non-negative extent on both axes.
func (b BoundingBox) Valid() bool {
	return b.XMin <= b.XMax && b.YMin <= b.YMax
}

func (b BoundingBox) Width() float64  { return b.XMax - b.XMin }
func (b BoundingBox) Height() float64 { return b.YMax - b.YMin }

func (b BoundingBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.XMin, b.YMin, b.XMax, b.YMax})
}

func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	var v []float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if len(v) != 4 {
		return fmt.Errorf("bounding box needs 4 values, got %d", len(v))
	}
	*b = BoundingBox{XMin: v[0], YMin: v[1], XMax: v[2], YMax: v[3]}
	return nil
}

// GridSize cell width/height in centimeters, serialized as [width, height]
type GridSize struct {
	WidthCM  float64
	HeightCM float64
}

func (s GridSize) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{s.WidthCM, s.HeightCM})
}

func (s *GridSize) UnmarshalJSON(data []byte) error {
	var v []float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if len(v) != 2 {
		return fmt.Errorf("grid size needs 2 values, got %d", len(v))
	}
	*s = GridSize{WidthCM: v[0], HeightCM: v[1]}
	return nil
}

// Point polygon vertex in pixel coordinates
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Polygon external contour of one foreground region
type Polygon []Point
