package service

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/TIANLI0/TissueKit/model"
	"github.com/klauspost/compress/zlib"
)

// MaxBundleBytes caps the inflated JSON size of a single bundle.
const MaxBundleBytes = 256 << 20

// EncodeMaskWithMetadata pairs the RLE of mask with its record.
func EncodeMaskWithMetadata(mask model.BinaryMask, record model.AnalysisRecord) model.MetadataWithMask {
	return model.MetadataWithMask{
		RLE:      EncodeRLE(mask),
		Metadata: record,
	}
}

// DecodeMaskWithMetadata reverses EncodeMaskWithMetadata for an image of rows×cols pixels.
func DecodeMaskWithMetadata(m model.MetadataWithMask, rows, cols int) (model.BinaryMask, model.AnalysisRecord, error) {
	mask, err := DecodeRLE(m.RLE, rows, cols)
	if err != nil {
		return model.BinaryMask{}, model.AnalysisRecord{}, err
	}
	return mask, m.Metadata, nil
}

// CompressBundle serializes records as JSON, zlib-compresses and base64-encodes them.
func CompressBundle(records []model.MetadataWithMask) (model.CompressedBundle, error) {
	if records == nil {
		records = []model.MetadataWithMask{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("failed to marshal records: %w", err)
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return "", fmt.Errorf("failed to compress records: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to compress records: %w", err)
	}

	return model.CompressedBundle(base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

// DecompressBundle is the inverse of CompressBundle and preserves record order.
func DecompressBundle(bundle model.CompressedBundle) ([]model.MetadataWithMask, error) {
	compressed, err := base64.StdEncoding.DecodeString(string(bundle))
	if err != nil {
		return nil, fmt.Errorf("%w: bad base64: %v", ErrCodec, err)
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: bad zlib header: %v", ErrCodec, err)
	}
	defer zr.Close()

	data, err := io.ReadAll(io.LimitReader(zr, MaxBundleBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: corrupt stream: %v", ErrCodec, err)
	}
	if len(data) > MaxBundleBytes {
		return nil, fmt.Errorf("%w: bundle exceeds %d bytes", ErrCodec, MaxBundleBytes)
	}

	var records []model.MetadataWithMask
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: bad payload: %v", ErrCodec, err)
	}
	if records == nil {
		return nil, fmt.Errorf("%w: payload is not a record list", ErrCodec)
	}
	return records, nil
}
