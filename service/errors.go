package service

import "errors"

var (
	// ErrCalibration the reference mask has no foreground pixels
	ErrCalibration = errors.New("calibration failed")
	// ErrNoDetection the detector or segmenter reported nothing
	ErrNoDetection = errors.New("no detection")
	// ErrInvalidGridSize cell dimensions are not strictly positive
	ErrInvalidGridSize = errors.New("invalid grid size")
	// ErrCodec malformed bundle or run list
	ErrCodec = errors.New("codec error")
	// ErrMaskShapeMismatch run data exceeds the target shape
	ErrMaskShapeMismatch = errors.New("mask shape mismatch")
	// ErrInvalidEdit unknown segment type or direction
	ErrInvalidEdit = errors.New("invalid grid edit")
)

// IsAnalysisError reports whether err is one of the deterministic pipeline failures.
func IsAnalysisError(err error) bool {
	return errors.Is(err, ErrCalibration) ||
		errors.Is(err, ErrNoDetection) ||
		errors.Is(err, ErrInvalidGridSize) ||
		errors.Is(err, ErrCodec) ||
		errors.Is(err, ErrMaskShapeMismatch)
}
