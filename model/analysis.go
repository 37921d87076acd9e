package model

// AnalysisRecord one detected and segmented tissue region
type AnalysisRecord struct {
	Class        int         `json:"class"`
	Confidence   float64     `json:"confidence"`
	BBox         BoundingBox `json:"bbox"`
	GridSegments GridOverlay `json:"grid_segments"`
}

// MetadataWithMask stored unit of a bundle
type MetadataWithMask struct {
	RLE      EncodedMask    `json:"rle"`
	Metadata AnalysisRecord `json:"metadata"`
}

// CompressedBundle base64(zlib(json)) of all records of one image
type CompressedBundle string

// RecordView record as sent to clients, mask replaced by polygons
type RecordView struct {
	Class        int         `json:"class"`
	Confidence   float64     `json:"confidence"`
	BBox         BoundingBox `json:"bbox"`
	GridSegments GridOverlay `json:"grid_segments"`
	Polygons     []Polygon   `json:"polygons"`
}

// ImageAnalysis retrieval output for one stored image
type ImageAnalysis struct {
	ID         int64        `json:"id"`
	Filename   string       `json:"filename"`
	ImageShape [2]int       `json:"image_shape"`
	Preview    string       `json:"preview,omitempty"`
	Records    []RecordView `json:"records"`
	Error      string       `json:"error,omitempty"`
}
