package model

// Detection a single detector hit
type Detection struct {
	ClassID    int         `json:"class"`
	Confidence float64     `json:"confidence"`
	BBox       BoundingBox `json:"bbox"`
}

// ScoredBox box plus confidence as reported under one class
type ScoredBox struct {
	BBox       BoundingBox `json:"bbox"`
	Confidence float64     `json:"confidence"`
}

// Detections class id to boxes in detector order
type Detections map[int][]ScoredBox

// Len counts boxes across all classes.
func (d Detections) Len() int {
	n := 0
	for _, boxes := range d {
		n += len(boxes)
	}
	return n
}
