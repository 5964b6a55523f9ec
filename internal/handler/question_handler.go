package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hsscguru/hssc-guru-backend/internal/config"
	"github.com/hsscguru/hssc-guru-backend/internal/model"
	"github.com/hsscguru/hssc-guru-backend/internal/response"
	"github.com/hsscguru/hssc-guru-backend/internal/service"
	"github.com/hsscguru/hssc-guru-backend/internal/validator"
)

// QuestionHandler handles question bank management, admin only.
type QuestionHandler struct {
	cfg             *config.Config
	questionService *service.QuestionService
	importService   *service.ImportService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(cfg *config.Config, questionService *service.QuestionService, importService *service.ImportService) *QuestionHandler {
	return &QuestionHandler{cfg: cfg, questionService: questionService, importService: importService}
}

// ListQuestions godoc
// GET /api/v1/admin/questions?topic=&page=1&per_page=10
// Lists questions with answers, optionally filtered by topic.
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	page, perPage := paginationParams(c)

	var topic *string
	if t := c.Query("topic"); t != "" {
		topic = &t
	}

	questions, total, err := h.questionService.List(c.Request.Context(), topic, perPage, (page-1)*perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if questions == nil {
		questions = []model.Question{}
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"questions": questions}, buildPagination(page, perPage, total))
}

// AddQuestion godoc
// POST /api/v1/admin/questions
// Adds one question to the bank.
func (h *QuestionHandler) AddQuestion(c *gin.Context) {
	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.questionService.Add(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrCorrectIndexOutOfRange) {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": q})
}

// UploadQuestions godoc
// POST /api/v1/admin/questions/upload
// Imports a CSV question bank. Rejected rows are listed in the report with
// their line numbers; the upload fails only when nothing parses.
func (h *QuestionHandler) UploadQuestions(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadBytes)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
			return
		}
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		response.Fail(c, http.StatusUnsupportedMediaType, response.ErrUnsupportedFile)
		return
	}

	report, err := h.importService.ImportCSV(c.Request.Context(), file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBadHeader):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		case errors.Is(err, service.ErrNoValidRows):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrNoValidRows)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"report": report})
}
