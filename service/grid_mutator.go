package service

import (
	"fmt"
	"math"

	"github.com/TIANLI0/TissueKit/model"
)

// Direction anchor side for a resize
type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
)

// ApplyMove shifts the perpendicular coordinate of segment id by offset in place.
// It reports false, leaving g untouched, when no such segment exists.
func ApplyMove(g *model.GridOverlay, t model.SegmentType, id string, offset float64) (bool, error) {
	if t != model.Horizontal && t != model.Vertical {
		return false, fmt.Errorf("%w: segment type %q", ErrInvalidEdit, t)
	}
	if math.IsNaN(offset) || math.IsInf(offset, 0) {
		return false, fmt.Errorf("%w: offset %g", ErrInvalidEdit, offset)
	}

	seg := g.Lookup(t, id)
	if seg == nil {
		return false, nil
	}
	if t == model.Horizontal {
		seg.YStart += offset
		seg.YEnd += offset
	} else {
		seg.XStart += offset
		seg.XEnd += offset
	}
	return true, nil
}

// ApplyResize sets the length of segment id in place, keeping the end opposite
// to dir fixed. Horizontal segments accept left/right, vertical ones up/down.
func ApplyResize(g *model.GridOverlay, t model.SegmentType, id string, newLength float64, dir Direction) (bool, error) {
	switch {
	case t == model.Horizontal && (dir == DirectionLeft || dir == DirectionRight):
	case t == model.Vertical && (dir == DirectionUp || dir == DirectionDown):
	default:
		return false, fmt.Errorf("%w: direction %q for %q segment", ErrInvalidEdit, dir, t)
	}
	if newLength < 0 || math.IsNaN(newLength) || math.IsInf(newLength, 0) {
		return false, fmt.Errorf("%w: length %g", ErrInvalidEdit, newLength)
	}

	seg := g.Lookup(t, id)
	if seg == nil {
		return false, nil
	}
	switch dir {
	case DirectionRight:
		seg.XEnd = seg.XStart + newLength
	case DirectionLeft:
		seg.XStart = seg.XEnd - newLength
	case DirectionDown:
		seg.YEnd = seg.YStart + newLength
	case DirectionUp:
		seg.YStart = seg.YEnd - newLength
	}
	return true, nil
}

// MoveSegment returns a copy of g with segment id moved. When nothing matches
// the original overlay is returned with false.
func MoveSegment(g model.GridOverlay, t model.SegmentType, id string, offset float64) (model.GridOverlay, bool, error) {
	c := g.Clone()
	ok, err := ApplyMove(&c, t, id, offset)
	if err != nil || !ok {
		return g, false, err
	}
	return c, true, nil
}

// ResizeSegment returns a copy of g with segment id resized.
func ResizeSegment(g model.GridOverlay, t model.SegmentType, id string, newLength float64, dir Direction) (model.GridOverlay, bool, error) {
	c := g.Clone()
	ok, err := ApplyResize(&c, t, id, newLength, dir)
	if err != nil || !ok {
		return g, false, err
	}
	return c, true, nil
}
