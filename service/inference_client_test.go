package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/TIANLI0/TissueKit/config"
	"github.com/TIANLI0/TissueKit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSidecar(t *testing.T, handler http.HandlerFunc) *InferenceClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewInferenceClient(&config.InferenceConfig{BaseURL: srv.URL + "/", Timeout: 5 * time.Second}, NewMaskProcessor(0))
}

func TestInferenceDetector(t *testing.T) {
	var gotPath string
	var gotReq detectRequest
	client := newSidecar(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_, _ = w.Write([]byte(`{"detections": [
			{"class": 1, "confidence": 0.4, "bbox": [0, 0, 5, 5]},
			{"class": 0, "confidence": 0.9, "bbox": [1, 2, 3, 4]},
			{"class": 1, "confidence": 0.7, "bbox": [6, 6, 9, 9]}
		]}`))
	})

	got, err := client.Detector("capsules").Detect(context.Background(), testImage())
	require.NoError(t, err)

	assert.Equal(t, "/detect/capsules", gotPath)
	assert.Equal(t, "image/png", gotReq.MimeType)
	assert.NotEmpty(t, gotReq.Image)
	assert.Equal(t, model.Detections{
		0: {{BBox: box(1, 2, 3, 4), Confidence: 0.9}},
		1: {{BBox: box(0, 0, 5, 5), Confidence: 0.4}, {BBox: box(6, 6, 9, 9), Confidence: 0.7}},
	}, got)
}

func TestInferenceSegment(t *testing.T) {
	client := newSidecar(t, func(w http.ResponseWriter, r *http.Request) {
		var req segmentRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, "/segment", r.URL.Path)
		assert.Equal(t, box(2, 3, 8, 9), req.BBox)
		_, _ = w.Write([]byte(`{"masks": [{"rle": [0, 4, 30, 2], "shape": [20, 30], "score": 0.8}]}`))
	})

	got, err := client.Segment(context.Background(), testImage(), box(2, 3, 8, 9))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0.8, got[0].Score)
	assert.Equal(t, model.EncodedMask{0, 4, 30, 2}, EncodeRLE(got[0].Mask))
}

func TestInferenceSegment_ShapeMismatch(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"smaller than image", `{"masks": [{"rle": [0, 4], "shape": [10, 10], "score": 0.8}]}`},
		{"huge shape", `{"masks": [{"rle": [], "shape": [4294967296, 4294967296], "score": 0.8}]}`},
		{"transposed", `{"masks": [{"rle": [0, 4], "shape": [30, 20], "score": 0.8}]}`},
		{"three dimensions", `{"masks": [{"rle": [0, 4], "shape": [20, 30, 3], "score": 0.8}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newSidecar(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Segment(context.Background(), testImage(), box(0, 0, 5, 5))
			assert.ErrorIs(t, err, ErrMaskShapeMismatch)
		})
	}
}

func TestInference_HTTPError(t *testing.T) {
	client := newSidecar(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	})

	_, err := client.Detector("tissue").Detect(context.Background(), testImage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.False(t, IsAnalysisError(err))
}
