package service

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// DecodeImageShape returns (rows, cols) of an encoded image.
func DecodeImageShape(data []byte) (int, int, error) {
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return 0, 0, fmt.Errorf("failed to read image")
	}
	return img.Rows(), img.Cols(), nil
}

// PreviewJPEG scales the image to fit maxSize×maxSize and returns it as base64 JPEG.
func PreviewJPEG(data []byte, maxSize int) (string, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	b := src.Bounds()
	if maxSize > 0 && (b.Dx() > maxSize || b.Dy() > maxSize) {
		src = imaging.Fit(src, maxSize, maxSize, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, src, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return "", fmt.Errorf("failed to encode preview: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
