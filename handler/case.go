package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/TIANLI0/TissueKit/config"
	"github.com/TIANLI0/TissueKit/middleware"
	"github.com/TIANLI0/TissueKit/model"
	"github.com/TIANLI0/TissueKit/service"
	"github.com/TIANLI0/TissueKit/store"
	"github.com/TIANLI0/TissueKit/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CaseStore case persistence
type CaseStore interface {
	FindByName(ctx context.Context, name string) (*model.Case, error)
	Create(ctx context.Context, name string) (*model.Case, bool, error)
	GetOrCreate(ctx context.Context, name string) (*model.Case, error)
}

// ImageStore image persistence
type ImageStore interface {
	Insert(ctx context.Context, img *model.ImageRecord) error
	Get(ctx context.Context, id int64) (*model.ImageRecord, error)
	ListByCase(ctx context.Context, caseID int64) ([]model.ImageRecord, error)
}

// Analyzer runs the upload pipeline
type Analyzer interface {
	Analyze(ctx context.Context, img service.ImageInput) (*service.AnalysisResult, error)
}

// Retriever builds the client view of a stored image
type Retriever interface {
	Retrieve(img *model.ImageRecord) model.ImageAnalysis
}

// AnalysisCache caches retrieval output per image
type AnalysisCache interface {
	GetImageAnalysis(ctx context.Context, imageID int64) (*model.ImageAnalysis, error)
	SetImageAnalysis(ctx context.Context, imageID int64, result *model.ImageAnalysis) error
}

type CaseHandler struct {
	cfg         *config.UploadConfig
	cases       CaseStore
	images      ImageStore
	analyzer    Analyzer
	retriever   Retriever
	cache       AnalysisCache
	decodeShape func(data []byte) (int, int, error)
}

func NewCaseHandler(cfg *config.UploadConfig, cases CaseStore, images ImageStore, analyzer Analyzer,
	retriever Retriever, cache AnalysisCache) *CaseHandler {
	return &CaseHandler{
		cfg:         cfg,
		cases:       cases,
		images:      images,
		analyzer:    analyzer,
		retriever:   retriever,
		cache:       cache,
		decodeShape: service.DecodeImageShape,
	}
}

type createCaseRequest struct {
	CaseName string `json:"caseName" binding:"required"`
}

// CreateCase creates an empty case.
func (h *CaseHandler) CreateCase(c *gin.Context) {
	var req createCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "caseName is required", err)
		return
	}

	created, ok, err := h.cases.Create(c.Request.Context(), req.CaseName)
	if err != nil {
		internalError(c, "failed to create case", err)
		return
	}
	if !ok {
		badRequest(c, "Case already exists", nil)
		return
	}

	utils.Logger.Info("case created",
		zap.String("case_name", created.CaseName),
		zap.Int64("case_id", created.ID),
		zap.String("created_by", middleware.Username(c)))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Case created successfully",
		"case_id": created.ID,
	})
}

// UploadImage analyzes an uploaded image and stores it with its bundle under
// the case, creating the case when needed.
func (h *CaseHandler) UploadImage(c *gin.Context) {
	caseName := c.Param("case_name")

	file, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "please upload an image file", err)
		return
	}

	if file.Size > h.cfg.MaxSize {
		badRequest(c, fmt.Sprintf("file exceeds size limit (%d MB)", h.cfg.MaxSize/(1024*1024)), nil)
		return
	}

	contentType := file.Header.Get("Content-Type")
	if !h.isAllowedType(contentType) {
		badRequest(c, "unsupported file type "+contentType, nil)
		return
	}

	f, err := file.Open()
	if err != nil {
		internalError(c, "failed to read upload", err)
		return
	}
	data, err := io.ReadAll(io.LimitReader(f, h.cfg.MaxSize+1))
	f.Close()
	if err != nil {
		internalError(c, "failed to read upload", err)
		return
	}

	rows, cols, err := h.decodeShape(data)
	if err != nil {
		badRequest(c, "Failed to process image. Please upload a valid image file.", err)
		return
	}

	ctx := c.Request.Context()
	uploader := middleware.Username(c)
	utils.Logger.Info("image uploaded",
		zap.String("case_name", caseName),
		zap.String("filename", file.Filename),
		zap.String("sha256", utils.BytesSHA256(data)),
		zap.Int("rows", rows),
		zap.Int("cols", cols),
		zap.String("uploaded_by", uploader))

	result, err := h.analyzer.Analyze(ctx, service.ImageInput{
		Data:        data,
		ContentType: contentType,
		Rows:        rows,
		Cols:        cols,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if service.IsAnalysisError(err) {
			status = http.StatusUnprocessableEntity
		}
		writeError(c, status, "Failed to process image", err)
		return
	}

	cs, err := h.cases.GetOrCreate(ctx, caseName)
	if err != nil {
		internalError(c, "failed to load case", err)
		return
	}

	record := &model.ImageRecord{
		CaseID:      cs.ID,
		Filename:    file.Filename,
		ContentType: contentType,
		Height:      rows,
		Width:       cols,
		Data:        data,
		UploadedAt:  time.Now().UTC(),
		UploadedBy:  uploader,
		Bundle:      result.Bundle,
	}
	if err := h.images.Insert(ctx, record); err != nil {
		internalError(c, "failed to store image", err)
		return
	}

	utils.Logger.Info("image stored",
		zap.Int64("image_id", record.ID),
		zap.Int64("case_id", cs.ID),
		zap.Int("records", len(result.Records)))
	c.JSON(http.StatusOK, model.UploadResponse{
		Success: true,
		Message: fmt.Sprintf("Image uploaded and associated with case '%s'", caseName),
		CaseID:  cs.ID,
		ImageID: record.ID,
		Records: len(result.Records),
	})
}

// ListImages returns grids and polygons for every image of a case. An image
// whose bundle cannot be decoded carries an error instead of failing the list.
func (h *CaseHandler) ListImages(c *gin.Context) {
	caseName := c.Param("case_name")
	ctx := c.Request.Context()

	cs, err := h.cases.FindByName(ctx, caseName)
	if errors.Is(err, store.ErrNotFound) {
		notFound(c, fmt.Sprintf("Case '%s' not found", caseName))
		return
	}
	if err != nil {
		internalError(c, "Error fetching case", err)
		return
	}

	images, err := h.images.ListByCase(ctx, cs.ID)
	if err != nil {
		internalError(c, "Error fetching images", err)
		return
	}

	out := make([]model.ImageAnalysis, 0, len(images))
	for i := range images {
		out = append(out, h.analysisFor(ctx, &images[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *CaseHandler) analysisFor(ctx context.Context, img *model.ImageRecord) model.ImageAnalysis {
	cached, err := h.cache.GetImageAnalysis(ctx, img.ID)
	if err != nil {
		utils.Logger.Warn("failed to get cache", zap.Int64("image_id", img.ID), zap.Error(err))
	}
	if cached != nil {
		return *cached
	}

	result := h.retriever.Retrieve(img)
	if err := h.cache.SetImageAnalysis(ctx, img.ID, &result); err != nil {
		utils.Logger.Warn("failed to set cache", zap.Int64("image_id", img.ID), zap.Error(err))
	}
	return result
}

func (h *CaseHandler) isAllowedType(contentType string) bool {
	for _, allowed := range h.cfg.AllowedTypes {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}
