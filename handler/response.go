package handler

import (
	"net/http"

	"github.com/TIANLI0/TissueKit/model"
	"github.com/gin-gonic/gin"
)

func badRequest(c *gin.Context, message string, err error) {
	writeError(c, http.StatusBadRequest, message, err)
}

func notFound(c *gin.Context, message string) {
	writeError(c, http.StatusNotFound, message, nil)
}

func internalError(c *gin.Context, message string, err error) {
	writeError(c, http.StatusInternalServerError, message, err)
}

func writeError(c *gin.Context, status int, message string, err error) {
	resp := model.ErrorResponse{Success: false, Message: message}
	if err != nil {
		resp.Error = err.Error()
		_ = c.Error(err)
	}
	c.JSON(status, resp)
}
