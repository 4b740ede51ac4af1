package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"propdesk/internal/services"
	"propdesk/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// multipartOverhead is added to the body limit for form fields and part headers.
const multipartOverhead = 1 << 20

type AttachmentHandler struct {
	orchestrator *services.AttachmentOrchestrator
	projects     *services.ProjectService
	quota        int
	maxBytes     int64
}

func NewAttachmentHandler(orchestrator *services.AttachmentOrchestrator, projects *services.ProjectService, quota int, maxBytes int64) *AttachmentHandler {
	return &AttachmentHandler{orchestrator: orchestrator, projects: projects, quota: quota, maxBytes: maxBytes}
}

// Upload accepts a multipart form with repeated "files" parts. project_id is
// optional; without it the form is saved as a draft first, using
// project_name when present.
func (h *AttachmentHandler) Upload(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if h.maxBytes > 0 && h.quota > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(h.quota)*h.maxBytes+multipartOverhead)
	}
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, httpdto.NewErrorResponse("request body too large", "TOO_LARGE"))
			return
		}
		badRequest(c, "invalid multipart form")
		return
	}
	projectID, ok := idParam(c, formValue(form, "project_id"), "project_id", true)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	view, err := h.orchestrator.LoadView(ctx, userID, projectID)
	if err != nil {
		writeError(c, err)
		return
	}

	req := services.UploadRequest{
		OwnerID:   userID,
		ProjectID: projectID,
		Files:     lo.Map(form.File["files"], func(fh *multipart.FileHeader, _ int) services.FileUpload { return fileUpload(fh) }),
	}
	if name := formValue(form, "project_name"); name != "" {
		req.SaveDraft = h.projects.DraftSaver(services.ProjectInput{ProjectName: name})
	} else {
		req.SaveDraft = h.projects.CreateDraft
	}

	result, err := h.orchestrator.Upload(ctx, view, req)
	res := httpdto.UploadAttachmentsResponse{
		UploadResult: result,
		Items:        view.Items(),
		Total:        view.Len(),
		Quota:        h.quota,
		Complete:     err == nil && len(result.FailedFiles) == 0 && result.Warning == "",
	}
	if err != nil {
		status := services.HTTPStatus(err)
		c.JSON(status, httpdto.Response[httpdto.UploadAttachmentsResponse]{
			Success: false,
			Data:    res,
			Error:   err.Error(),
			Code:    errorCode(status),
		})
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(res))
}

func (h *AttachmentHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	attachmentID, ok := idParam(c, c.Param("id"), "attachment id", false)
	if !ok {
		return
	}
	projectID, ok := idParam(c, c.Query("project_id"), "project_id", false)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	view, err := h.orchestrator.LoadView(ctx, userID, projectID)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.orchestrator.Delete(ctx, view, attachmentID, userID); err != nil {
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

func (h *AttachmentHandler) Download(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	attachmentID, ok := idParam(c, c.Param("id"), "attachment id", false)
	if !ok {
		return
	}
	url, err := h.orchestrator.Download(c.Request.Context(), userID, attachmentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.DownloadResponse{URL: url}))
}

func fileUpload(fh *multipart.FileHeader) services.FileUpload {
	return services.FileUpload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}
