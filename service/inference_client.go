package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/TIANLI0/TissueKit/config"
	"github.com/TIANLI0/TissueKit/model"
	"github.com/TIANLI0/TissueKit/utils"
	"go.uber.org/zap"
)

// InferenceClient talks to the detector/segmenter sidecar over HTTP JSON
type InferenceClient struct {
	baseURL string
	httpc   *http.Client
	masks   *MaskProcessor
}

func NewInferenceClient(cfg *config.InferenceConfig, masks *MaskProcessor) *InferenceClient {
	return &InferenceClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpc:   &http.Client{Timeout: cfg.Timeout},
		masks:   masks,
	}
}

type detectRequest struct {
	Image    string `json:"image"`
	MimeType string `json:"mime_type,omitempty"`
}

type detectResponse struct {
	Detections []model.Detection `json:"detections"`
}

type segmentRequest struct {
	Image    string            `json:"image"`
	MimeType string            `json:"mime_type,omitempty"`
	BBox     model.BoundingBox `json:"bbox"`
}

type segmentMask struct {
	RLE   model.EncodedMask `json:"rle,omitempty"`
	Shape []int             `json:"shape,omitempty"`
	PNG   string            `json:"png,omitempty"`
	Score float64           `json:"score"`
}

type segmentResponse struct {
	Masks []segmentMask `json:"masks"`
}

// Detector returns a Detector bound to the named detection model.
func (c *InferenceClient) Detector(modelName string) Detector {
	return DetectorFunc(func(ctx context.Context, img ImageInput) (model.Detections, error) {
		var out detectResponse
		req := detectRequest{
			Image:    base64.StdEncoding.EncodeToString(img.Data),
			MimeType: img.ContentType,
		}
		if err := c.post(ctx, "/detect/"+modelName, req, &out); err != nil {
			return nil, err
		}

		// group by class keeping detector order within a class
		detections := make(model.Detections)
		for _, d := range out.Detections {
			detections[d.ClassID] = append(detections[d.ClassID], model.ScoredBox{BBox: d.BBox, Confidence: d.Confidence})
		}

		utils.Logger.Debug("detector responded",
			zap.String("model", modelName),
			zap.Int("classes", len(detections)),
			zap.Int("boxes", len(out.Detections)))
		return detections, nil
	})
}

// Segment implements Segmenter.
func (c *InferenceClient) Segment(ctx context.Context, img ImageInput, bbox model.BoundingBox) ([]model.MaskCandidate, error) {
	var out segmentResponse
	req := segmentRequest{
		Image:    base64.StdEncoding.EncodeToString(img.Data),
		MimeType: img.ContentType,
		BBox:     bbox,
	}
	if err := c.post(ctx, "/segment", req, &out); err != nil {
		return nil, err
	}

	candidates := make([]model.MaskCandidate, 0, len(out.Masks))
	for i, m := range out.Masks {
		mask, err := c.decodeMask(m, img)
		if err != nil {
			return nil, fmt.Errorf("segment mask %d: %w", i, err)
		}
		if mask.Rows != img.Rows || mask.Cols != img.Cols {
			return nil, fmt.Errorf("%w: segment mask %d is %dx%d, image is %dx%d",
				ErrMaskShapeMismatch, i, mask.Rows, mask.Cols, img.Rows, img.Cols)
		}
		candidates = append(candidates, model.MaskCandidate{Mask: mask, Score: m.Score})
	}
	return candidates, nil
}

func (c *InferenceClient) decodeMask(m segmentMask, img ImageInput) (model.BinaryMask, error) {
	if m.PNG != "" {
		raw, err := base64.StdEncoding.DecodeString(m.PNG)
		if err != nil {
			return model.BinaryMask{}, fmt.Errorf("bad mask base64: %w", err)
		}
		return c.masks.DecodePNG(raw)
	}

	switch {
	case len(m.Shape) == 0:
	case len(m.Shape) != 2:
		return model.BinaryMask{}, fmt.Errorf("%w: mask shape %v", ErrMaskShapeMismatch, m.Shape)
	case m.Shape[0] != img.Rows || m.Shape[1] != img.Cols:
		return model.BinaryMask{}, fmt.Errorf("%w: mask shape %dx%d, image is %dx%d",
			ErrMaskShapeMismatch, m.Shape[0], m.Shape[1], img.Rows, img.Cols)
	}
	return DecodeRLE(m.RLE, img.Rows, img.Cols)
}

func (c *InferenceClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("inference %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		x, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("inference %s %d: %s", path, resp.StatusCode, string(x))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("inference %s: bad response: %w", path, err)
	}
	return nil
}
