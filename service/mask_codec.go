package service

import (
	"fmt"
	"math"

	"github.com/TIANLI0/TissueKit/model"
)

// EncodeRLE encodes a mask as flat (start, length) pairs of foreground runs.
//
// Index 0 and len(mask) count as boundaries, so masks that start or end on
// foreground still produce an even-length list of foreground runs.
func EncodeRLE(mask model.BinaryMask) model.EncodedMask {
	rle := make(model.EncodedMask, 0)
	n := len(mask.Pix)
	start := -1
	for i := 0; i < n; i++ {
		fg := mask.Pix[i] != 0
		switch {
		case fg && start < 0:
			start = i
		case !fg && start >= 0:
			rle = append(rle, start, i-start)
			start = -1
		}
	}
	if start >= 0 {
		rle = append(rle, start, n-start)
	}
	return rle
}

// MaxMaskPixels caps rows×cols of a decoded mask.
const MaxMaskPixels = 1 << 28

// DecodeRLE rebuilds a rows×cols mask from a run list.
func DecodeRLE(rle model.EncodedMask, rows, cols int) (model.BinaryMask, error) {
	if len(rle)%2 != 0 {
		return model.BinaryMask{}, fmt.Errorf("%w: run list has odd length %d", ErrCodec, len(rle))
	}
	if rows < 0 || cols < 0 {
		return model.BinaryMask{}, fmt.Errorf("%w: negative shape %dx%d", ErrMaskShapeMismatch, rows, cols)
	}
	if cols != 0 && (rows > math.MaxInt/cols || rows*cols > MaxMaskPixels) {
		return model.BinaryMask{}, fmt.Errorf("%w: shape %dx%d exceeds %d pixels", ErrMaskShapeMismatch, rows, cols, MaxMaskPixels)
	}

	mask := model.NewBinaryMask(rows, cols)
	size := len(mask.Pix)
	for i := 0; i < len(rle); i += 2 {
		start, length := rle[i], rle[i+1]
		if start < 0 || length < 0 {
			return model.BinaryMask{}, fmt.Errorf("%w: negative run (%d, %d)", ErrCodec, start, length)
		}
		if start > size || length > size-start {
			return model.BinaryMask{}, fmt.Errorf("%w: run (%d, %d) exceeds %dx%d",
				ErrMaskShapeMismatch, start, length, rows, cols)
		}
		for j := start; j < start+length; j++ {
			mask.Pix[j] = 1
		}
	}
	return mask, nil
}
