package handler

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-viewer/internal/dto"
	"github.com/noah-isme/sma-timetable-viewer/internal/middleware"
	"github.com/noah-isme/sma-timetable-viewer/internal/models"
	"github.com/noah-isme/sma-timetable-viewer/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-viewer/pkg/errors"
	"github.com/noah-isme/sma-timetable-viewer/pkg/response"
)

const defaultMaxUploadBytes int64 = 10 << 20

type timetableService interface {
	Submit(ctx context.Context, problem json.RawMessage, actor *models.JWTClaims) (*dto.JobSubmissionResponse, error)
	SubmitCSV(ctx context.Context, upload dto.CSVUpload, actor *models.JWTClaims) (*dto.JobSubmissionResponse, error)
	Fetch(req dto.FetchSolutionRequest) (*dto.JobSubmissionResponse, error)
	JobStatus(ctx context.Context, jobID string) (*models.JobInfo, error)
	PollStatus() dto.PollStatus
	CancelPoll() dto.PollStatus
	Summary() (*dto.SolutionSummary, error)
	Diagnostics() (*dto.ConstraintDiagnostics, error)
	Grid(className string) (*dto.ClassGrid, error)
	Export(className string, query dto.ExportQuery) (*service.ExportResult, error)
	Snapshots(ctx context.Context, limit int) ([]models.SolutionSnapshot, error)
	Snapshot(ctx context.Context, jobID string) (*dto.SnapshotView, bool, error)
	PurgeSnapshotCache(ctx context.Context) error
}

// TimetableHandler exposes solver job and solution presentation endpoints.
type TimetableHandler struct {
	service   timetableService
	maxUpload int64
}

// NewTimetableHandler builds a handler. maxUpload caps CSV request bodies.
func NewTimetableHandler(service timetableService, maxUpload int64) *TimetableHandler {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	return &TimetableHandler{service: service, maxUpload: maxUpload}
}

// Submit godoc
// @Summary Submit a timetable problem
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body object true "Solver problem document"
// @Success 202 {object} response.Envelope
// @Router /timetable/jobs [post]
func (h *TimetableHandler) Submit(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid problem payload"))
		return
	}
	result, err := h.service.Submit(c.Request.Context(), json.RawMessage(body), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, result)
}

// SubmitCSV godoc
// @Summary Submit a timetable problem as CSV files
// @Tags Timetable
// @Accept mpfd
// @Produce json
// @Param roomsCsv formData file true "Rooms CSV"
// @Param teachersCsv formData file true "Teachers CSV"
// @Param lunchGroupsCsv formData file true "Lunch groups CSV"
// @Param lessonsCsv formData file true "Lessons CSV"
// @Param classCount formData int true "Number of classes"
// @Success 202 {object} response.Envelope
// @Router /timetable/jobs/from-csv [post]
func (h *TimetableHandler) SubmitCSV(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	var form dto.SubmitCSVRequest
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "classCount must be a positive integer"))
		return
	}

	upload := dto.CSVUpload{ClassCount: form.ClassCount}
	for _, part := range []struct {
		field string
		dest  *dto.CSVFile
	}{
		{"roomsCsv", &upload.Rooms},
		{"teachersCsv", &upload.Teachers},
		{"lunchGroupsCsv", &upload.LunchGroups},
		{"lessonsCsv", &upload.Lessons},
	} {
		header, err := c.FormFile(part.field)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, part.field+" is required"))
			return
		}
		file, err := readUpload(header)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read "+part.field))
			return
		}
		*part.dest = file
	}

	result, err := h.service.SubmitCSV(c.Request.Context(), upload, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, result)
}

// Fetch godoc
// @Summary Load the solution of an existing job
// @Tags Timetable
// @Produce json
// @Param jobId path string true "Solver job ID"
// @Success 200 {object} response.Envelope
// @Router /timetable/jobs/{jobId}/fetch [post]
func (h *TimetableHandler) Fetch(c *gin.Context) {
	result, err := h.service.Fetch(dto.FetchSolutionRequest{JobID: c.Param("jobId")})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// JobStatus godoc
// @Summary Get the solver status of a job
// @Tags Timetable
// @Produce json
// @Param jobId path string true "Solver job ID"
// @Success 200 {object} response.Envelope
// @Router /timetable/jobs/{jobId}/status [get]
func (h *TimetableHandler) JobStatus(c *gin.Context) {
	info, err := h.service.JobStatus(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info, nil)
}

// PollStatus godoc
// @Summary Get the solution poll status
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/poll [get]
func (h *TimetableHandler) PollStatus(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.PollStatus(), nil)
}

// CancelPoll godoc
// @Summary Cancel the active solution poll
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/poll [delete]
func (h *TimetableHandler) CancelPoll(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.CancelPoll(), nil)
}

// Summary godoc
// @Summary Get the loaded solution summary
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/solution [get]
func (h *TimetableHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Diagnostics godoc
// @Summary List hard and soft constraint diagnostics
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/solution/diagnostics [get]
func (h *TimetableHandler) Diagnostics(c *gin.Context) {
	diagnostics, err := h.service.Diagnostics()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, diagnostics, nil)
}

// Grid godoc
// @Summary Get the weekly grid of a class
// @Tags Timetable
// @Produce json
// @Param className path string true "Class name"
// @Success 200 {object} response.Envelope
// @Router /timetable/solution/classes/{className}/grid [get]
func (h *TimetableHandler) Grid(c *gin.Context) {
	grid, err := h.service.Grid(c.Param("className"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, nil)
}

// Export godoc
// @Summary Download the weekly grid of a class
// @Tags Timetable
// @Produce text/csv
// @Produce application/pdf
// @Param className path string true "Class name"
// @Param format query string false "csv or pdf" Enums(csv,pdf)
// @Success 200 {file} file
// @Router /timetable/solution/classes/{className}/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	result, err := h.service.Export(c.Param("className"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Data)
}

// Snapshots godoc
// @Summary List persisted solutions
// @Tags Timetable
// @Produce json
// @Param limit query int false "Maximum rows (1-100)"
// @Success 200 {object} response.Envelope
// @Router /timetable/snapshots [get]
func (h *TimetableHandler) Snapshots(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be an integer"))
			return
		}
		limit = parsed
	}
	items, err := h.service.Snapshots(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"count": len(items)})
}

// Snapshot godoc
// @Summary Get a persisted solution summary
// @Tags Timetable
// @Produce json
// @Param jobId path string true "Solver job ID"
// @Success 200 {object} response.Envelope
// @Router /timetable/snapshots/{jobId} [get]
func (h *TimetableHandler) Snapshot(c *gin.Context) {
	view, hit, err := h.service.Snapshot(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, view, middleware.ExtractMeta(c))
}

// PurgeSnapshotCache godoc
// @Summary Drop cached snapshot summaries
// @Tags Timetable
// @Success 204
// @Router /timetable/snapshots/cache [delete]
func (h *TimetableHandler) PurgeSnapshotCache(c *gin.Context) {
	if err := h.service.PurgeSnapshotCache(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func readUpload(header *multipart.FileHeader) (dto.CSVFile, error) {
	f, err := header.Open()
	if err != nil {
		return dto.CSVFile{}, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return dto.CSVFile{}, err
	}
	return dto.CSVFile{Filename: header.Filename, Content: content}, nil
}
