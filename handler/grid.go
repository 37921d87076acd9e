package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/TIANLI0/TissueKit/model"
	"github.com/TIANLI0/TissueKit/service"
	"github.com/TIANLI0/TissueKit/store"
	"github.com/TIANLI0/TissueKit/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GridSessions holds overlays being edited, keyed by image and record index
type GridSessions interface {
	GetGridSession(ctx context.Context, imageID int64, index int) (*model.GridOverlay, error)
	SetGridSession(ctx context.Context, imageID int64, index int, grid *model.GridOverlay) error
	DeleteGridSession(ctx context.Context, imageID int64, index int) error
}

// GridSource reads the stored overlay of a record
type GridSource interface {
	Grid(img *model.ImageRecord, index int) (*model.GridOverlay, error)
}

// ImageGetter loads one stored image
type ImageGetter interface {
	Get(ctx context.Context, id int64) (*model.ImageRecord, error)
}

// GridHandler serves interactive grid edits. Edits live in the session store
// only; the stored bundle is never rewritten.
type GridHandler struct {
	images   ImageGetter
	sessions GridSessions
	source   GridSource
	render   func(imageData []byte, grid model.GridOverlay) ([]byte, error)
}

func NewGridHandler(images ImageGetter, sessions GridSessions, source GridSource) *GridHandler {
	return &GridHandler{
		images:   images,
		sessions: sessions,
		source:   source,
		render:   service.RenderGrid,
	}
}

type moveRequest struct {
	SegmentID   string   `json:"segment_id" binding:"required"`
	SegmentType string   `json:"segment_type" binding:"required"`
	Offset      *float64 `json:"offset" binding:"required"`
}

type resizeRequest struct {
	SegmentID   string   `json:"segment_id" binding:"required"`
	SegmentType string   `json:"segment_type" binding:"required"`
	NewLength   *float64 `json:"new_length" binding:"required"`
	Direction   string   `json:"direction" binding:"required"`
}

type gridTarget struct {
	image  *model.ImageRecord
	index  int
	grid   model.GridOverlay
	edited bool
}

// load resolves :id and :index to the current overlay, preferring an edit
// session over the stored bundle. It writes the error response itself.
func (h *GridHandler) load(c *gin.Context) (*gridTarget, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid image id", err)
		return nil, false
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "invalid record index", err)
		return nil, false
	}

	ctx := c.Request.Context()
	img, err := h.images.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		notFound(c, "image not found")
		return nil, false
	}
	if err != nil {
		internalError(c, "failed to load image", err)
		return nil, false
	}

	t := &gridTarget{image: img, index: index}

	session, err := h.sessions.GetGridSession(ctx, id, index)
	if err != nil {
		utils.Logger.Warn("failed to read grid session",
			zap.Int64("image_id", id), zap.Int("index", index), zap.Error(err))
	}
	if session != nil {
		t.grid, t.edited = *session, true
		return t, true
	}

	grid, err := h.source.Grid(img, index)
	switch {
	case errors.Is(err, service.ErrRecordNotFound):
		notFound(c, err.Error())
		return nil, false
	case service.IsAnalysisError(err):
		writeError(c, http.StatusUnprocessableEntity, "stored analysis cannot be decoded", err)
		return nil, false
	case err != nil:
		internalError(c, "failed to load grid", err)
		return nil, false
	}
	t.grid = *grid
	return t, true
}

// Get returns the current overlay of a record.
func (h *GridHandler) Get(c *gin.Context) {
	t, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, model.GridResponse{Success: true, Edited: t.edited, Grid: t.grid})
}

// Move shifts one segment perpendicular to its orientation.
func (h *GridHandler) Move(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid move request", err)
		return
	}
	segType, err := model.ParseSegmentType(req.SegmentType)
	if err != nil {
		badRequest(c, "invalid move request", err)
		return
	}

	t, ok := h.load(c)
	if !ok {
		return
	}

	grid, found, err := service.MoveSegment(t.grid, segType, req.SegmentID, *req.Offset)
	h.finishEdit(c, t, grid, found, err)
}

// Resize sets one segment's length keeping the end opposite to direction fixed.
func (h *GridHandler) Resize(c *gin.Context) {
	var req resizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid resize request", err)
		return
	}
	segType, err := model.ParseSegmentType(req.SegmentType)
	if err != nil {
		badRequest(c, "invalid resize request", err)
		return
	}

	t, ok := h.load(c)
	if !ok {
		return
	}

	grid, found, err := service.ResizeSegment(t.grid, segType, req.SegmentID, *req.NewLength, service.Direction(req.Direction))
	h.finishEdit(c, t, grid, found, err)
}

func (h *GridHandler) finishEdit(c *gin.Context, t *gridTarget, grid model.GridOverlay, found bool, err error) {
	if errors.Is(err, service.ErrInvalidEdit) {
		badRequest(c, "invalid grid edit", err)
		return
	}
	if err != nil {
		internalError(c, "failed to edit grid", err)
		return
	}
	if !found {
		notFound(c, "segment not found")
		return
	}

	if err := h.sessions.SetGridSession(c.Request.Context(), t.image.ID, t.index, &grid); err != nil {
		internalError(c, "failed to save grid session", err)
		return
	}
	c.JSON(http.StatusOK, model.GridResponse{Success: true, Edited: true, Grid: grid})
}

// Reset drops the edit session so the stored overlay is served again.
func (h *GridHandler) Reset(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid image id", err)
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "invalid record index", err)
		return
	}
	if err := h.sessions.DeleteGridSession(c.Request.Context(), id, index); err != nil {
		internalError(c, "failed to reset grid session", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Preview renders the current overlay onto the image as PNG.
func (h *GridHandler) Preview(c *gin.Context) {
	t, ok := h.load(c)
	if !ok {
		return
	}
	png, err := h.render(t.image.Data, t.grid)
	if err != nil {
		internalError(c, "failed to render grid", err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
