package model

import "fmt"

// SegmentType which list of an overlay a segment belongs to
type SegmentType string

const (
	Horizontal SegmentType = "horizontal"
	Vertical   SegmentType = "vertical"
)

// ParseSegmentType validates a segment type coming from a request.
func ParseSegmentType(s string) (SegmentType, error) {
	switch SegmentType(s) {
	case Horizontal, Vertical:
		return SegmentType(s), nil
	}
	return "", fmt.Errorf("unknown segment type %q", s)
}

// GridSegment axis-aligned line segment of a grid overlay
type GridSegment struct {
	ID     string  `json:"id"`
	XStart float64 `json:"x_start"`
	YStart float64 `json:"y_start"`
	XEnd   float64 `json:"x_end"`
	YEnd   float64 `json:"y_end"`
}

// GridMetadata the inputs a grid was generated from
type GridMetadata struct {
	BoundingBox BoundingBox `json:"bounding_box"`
	CMToPixels  float64     `json:"cm_to_pixels"`
	GridSizeCM  GridSize    `json:"grid_size_cm"`
}

type segmentRef struct {
	typ SegmentType
	idx int
}

// GridOverlay owns its horizontal and vertical segments. The id index is built
// lazily, so an overlay must not be shared between goroutines while edited.
type GridOverlay struct {
	HorizontalSegments []GridSegment `json:"horizontal_segments"`
	VerticalSegments   []GridSegment `json:"vertical_segments"`
	Metadata           GridMetadata  `json:"metadata"`

	index map[string]segmentRef
}

func (g *GridOverlay) list(t SegmentType) []GridSegment {
	switch t {
	case Horizontal:
		return g.HorizontalSegments
	case Vertical:
		return g.VerticalSegments
	}
	return nil
}

func (g *GridOverlay) reindex() {
	g.index = make(map[string]segmentRef, len(g.HorizontalSegments)+len(g.VerticalSegments))
	for i, s := range g.HorizontalSegments {
		g.index[s.ID] = segmentRef{typ: Horizontal, idx: i}
	}
	for i, s := range g.VerticalSegments {
		g.index[s.ID] = segmentRef{typ: Vertical, idx: i}
	}
}

// Lookup returns the segment with id in the list of type t, or nil.
// The returned pointer aliases the overlay's storage.
func (g *GridOverlay) Lookup(t SegmentType, id string) *GridSegment {
	segs := g.list(t)
	ref, ok := g.index[id]
	if !ok || ref.typ != t || ref.idx >= len(segs) || segs[ref.idx].ID != id {
		// index missing or stale after an external append/decode
		g.reindex()
		ref, ok = g.index[id]
		if !ok || ref.typ != t {
			return nil
		}
	}
	return &segs[ref.idx]
}

// Clone deep-copies the segment lists.
func (g GridOverlay) Clone() GridOverlay {
	c := GridOverlay{Metadata: g.Metadata}
	if g.HorizontalSegments != nil {
		c.HorizontalSegments = append(make([]GridSegment, 0, len(g.HorizontalSegments)), g.HorizontalSegments...)
	}
	if g.VerticalSegments != nil {
		c.VerticalSegments = append(make([]GridSegment, 0, len(g.VerticalSegments)), g.VerticalSegments...)
	}
	return c
}
