package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roadwatch-api/internal/dto"
	"github.com/noah-isme/roadwatch-api/internal/models"
	"github.com/noah-isme/roadwatch-api/internal/policy"
	"github.com/noah-isme/roadwatch-api/internal/service"
	appErrors "github.com/noah-isme/roadwatch-api/pkg/errors"
	"github.com/noah-isme/roadwatch-api/pkg/export"
	"github.com/noah-isme/roadwatch-api/pkg/response"
)

type accidentService interface {
	Create(ctx context.Context, reporterID string, req dto.CreateAccidentRequest, photo *dto.PhotoUpload) (*service.CreateResult, error)
	Verify(ctx context.Context, actor policy.Actor, accidentID, status string) (*models.AccidentDetail, error)
	Delete(ctx context.Context, actor policy.Actor, accidentID string) error
	List(ctx context.Context, filter models.AccidentFilter) ([]models.AccidentDetail, *response.Pagination, error)
	Get(ctx context.Context, id string) (*models.AccidentDetail, []models.CommentDetail, error)
	Export(ctx context.Context, actor policy.Actor, format export.Format, filter models.AccidentFilter) ([]byte, error)
}

// AccidentHandler serves accident report endpoints.
type AccidentHandler struct {
	service   accidentService
	photoBase string
}

// NewAccidentHandler creates a handler. photoBase is the public URL prefix of stored photos.
func NewAccidentHandler(svc accidentService, photoBase string) *AccidentHandler {
	return &AccidentHandler{service: svc, photoBase: strings.TrimRight(photoBase, "/")}
}

// List godoc
// @Summary List accident reports
// @Tags Accidents
// @Produce json
// @Param status query string false "not_confirmed, confirmed or false_report"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /accidents [get]
func (h *AccidentHandler) List(c *gin.Context) {
	filter := accidentFilter(c)
	filter.Page, filter.PageSize = pageQuery(c)

	items, page, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	views := make([]dto.AccidentView, 0, len(items))
	for i := range items {
		views = append(views, dto.NewAccidentView(&items[i], h.photoBase))
	}
	response.JSON(c, http.StatusOK, views, page)
}

// Get godoc
// @Summary Get an accident report with its comments
// @Tags Accidents
// @Produce json
// @Param id path string true "Accident ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /accidents/{id} [get]
func (h *AccidentHandler) Get(c *gin.Context) {
	detail, comments, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	view := dto.NewAccidentView(detail, h.photoBase)
	view.Comments = dto.NewCommentViews(comments)
	response.OK(c, view)
}

// Create godoc
// @Summary Report an accident
// @Description Accepts JSON, or multipart/form-data with an optional photo file.
// @Tags Accidents
// @Accept json
// @Accept mpfd
// @Produce json
// @Param payload body dto.CreateAccidentRequest true "Report payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Security BearerAuth
// @Router /accidents [post]
func (h *AccidentHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req dto.CreateAccidentRequest
	var photo *dto.PhotoUpload
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid accident payload"))
			return
		}
		file, err := c.FormFile("photo")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid photo upload"))
			return
		default:
			content, err := file.Open()
			if err != nil {
				response.Error(c, appErrors.Internal(err, "failed to read photo"))
				return
			}
			defer content.Close()
			photo = &dto.PhotoUpload{Filename: file.Filename, Size: file.Size, Content: content}
		}
	} else if !bindJSON(c, &req, "accident") {
		return
	}

	res, err := h.service.Create(c.Request.Context(), actor.ID, req, photo)
	if err != nil {
		response.Error(c, err)
		return
	}
	view := dto.NewAccidentView(res.Accident, h.photoBase)
	view.Awards = dto.NewPointsAwardViews(res.Awards)
	response.Created(c, view)
}

// Verify godoc
// @Summary Confirm or reject a report
// @Tags Accidents
// @Accept json
// @Produce json
// @Param id path string true "Accident ID"
// @Param payload body dto.VerifyAccidentRequest true "New status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /accidents/{id}/status [put]
func (h *AccidentHandler) Verify(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.VerifyAccidentRequest
	if !bindJSON(c, &req, "verification") {
		return
	}
	detail, err := h.service.Verify(c.Request.Context(), actor, c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewAccidentView(detail, h.photoBase))
}

// Delete godoc
// @Summary Delete a report
// @Tags Accidents
// @Param id path string true "Accident ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /accidents/{id} [delete]
func (h *AccidentHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export accident reports
// @Tags Admin
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param status query string false "Status filter"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/accidents/export [get]
func (h *AccidentHandler) Export(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	body, err := h.service.Export(c.Request.Context(), actor, format, accidentFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := "accidents-" + time.Now().UTC().Format("20060102") + "." + string(format)
	response.Attachment(c, filename, format.ContentType(), body)
}

func accidentFilter(c *gin.Context) models.AccidentFilter {
	var filter models.AccidentFilter
	if raw := c.Query("status"); raw != "" {
		status := models.AccidentStatus(raw)
		filter.Status = &status
	}
	return filter
}
