package handler

import (
	"net/http"

	"propdesk/internal/services"
	"propdesk/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type EnhanceHandler struct{}

func NewEnhanceHandler() *EnhanceHandler {
	return &EnhanceHandler{}
}

func (h *EnhanceHandler) Enhance(c *gin.Context) {
	var req httpdto.EnhanceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == nil {
		badRequest(c, "text is required")
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.EnhanceResponse{
		EnhancedText: services.EnhanceText(*req.Text),
	}))
}
