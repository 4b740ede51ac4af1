package handler

import (
	"net/http"

	"propdesk/internal/domain/project"
	"propdesk/internal/services"
	"propdesk/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type ProjectHandler struct {
	service      *services.ProjectService
	orchestrator *services.AttachmentOrchestrator
	quota        int
}

func NewProjectHandler(service *services.ProjectService, orchestrator *services.AttachmentOrchestrator, quota int) *ProjectHandler {
	return &ProjectHandler{service: service, orchestrator: orchestrator, quota: quota}
}

func (h *ProjectHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	items, err := h.service.ListByOwner(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{
		"projects": lo.Map(items, func(p project.Project, _ int) httpdto.ProjectSummary { return httpdto.NewProjectSummary(p) }),
		"total":    len(items),
	}))
}

func (h *ProjectHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req httpdto.SaveProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	p, err := h.service.Save(c.Request.Context(), userID, services.ProjectInput{
		ProjectName: req.ProjectName,
		Fields:      req.Fields,
		Budget:      req.Budget,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.NewProjectResponse(p)))
}

func (h *ProjectHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := idParam(c, c.Param("id"), "project id", false)
	if !ok {
		return
	}
	p, err := h.service.Get(c.Request.Context(), userID, projectID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewProjectResponse(p)))
}

func (h *ProjectHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := idParam(c, c.Param("id"), "project id", false)
	if !ok {
		return
	}
	var req httpdto.SaveProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	p, err := h.service.Save(c.Request.Context(), userID, services.ProjectInput{
		ID:          projectID,
		ProjectName: req.ProjectName,
		Fields:      req.Fields,
		Budget:      req.Budget,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewProjectResponse(p)))
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := idParam(c, c.Param("id"), "project id", false)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), userID, projectID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *ProjectHandler) Submit(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := idParam(c, c.Param("id"), "project id", false)
	if !ok {
		return
	}
	p, err := h.service.Submit(c.Request.Context(), userID, projectID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewProjectResponse(p)))
}

func (h *ProjectHandler) GetBudget(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := idParam(c, c.Param("id"), "project id", false)
	if !ok {
		return
	}
	rows, err := h.service.GetBudget(c.Request.Context(), userID, projectID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewBudgetResponse(rows)))
}

func (h *ProjectHandler) SaveBudget(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := idParam(c, c.Param("id"), "project id", false)
	if !ok {
		return
	}
	var req httpdto.SaveBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	rows, err := h.service.SaveBudget(c.Request.Context(), userID, projectID, req.Rows)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.NewBudgetResponse(rows)))
}

func (h *ProjectHandler) ListAttachments(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := idParam(c, c.Param("id"), "project id", false)
	if !ok {
		return
	}
	view, err := h.orchestrator.LoadView(c.Request.Context(), userID, projectID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.AttachmentListResponse{
		ProjectID: view.ProjectID(),
		Items:     view.Items(),
		Total:     view.Len(),
		Quota:     h.quota,
	}))
}
