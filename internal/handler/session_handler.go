package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hsscguru/hssc-guru-backend/internal/middleware"
	"github.com/hsscguru/hssc-guru-backend/internal/repository"
	"github.com/hsscguru/hssc-guru-backend/internal/response"
	"github.com/hsscguru/hssc-guru-backend/internal/service"
	"github.com/hsscguru/hssc-guru-backend/internal/session"
	"github.com/hsscguru/hssc-guru-backend/internal/validator"
)

// SessionHandler drives quiz sessions over HTTP: start, snapshot, events,
// and submission.
type SessionHandler struct {
	manager     *session.Manager
	testService *service.TestService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(manager *session.Manager, testService *service.TestService) *SessionHandler {
	return &SessionHandler{manager: manager, testService: testService}
}

// StartSession godoc
// POST /api/v1/tests/:id/session
// Starts a session for the test, or resumes the active one. A saved draft
// restores answers, marks, and remaining time.
func (h *SessionHandler) StartSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := h.sessionParams(c, claims)
	if !ok {
		return
	}

	questions, durationMinutes, err := h.testService.GetSessionQuestions(c.Request.Context(), testID)
	if err != nil {
		if errors.Is(err, repository.ErrTestNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	snap, err := h.manager.Start(c.Request.Context(), claims.UserID, testID, questions, durationMinutes)
	if err != nil {
		if errors.Is(err, session.ErrNoQuestions) {
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrNoQuestions)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": snap})
}

// GetSession godoc
// GET /api/v1/tests/:id/session
// Returns the current snapshot of the active session.
func (h *SessionHandler) GetSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := h.sessionParams(c, claims)
	if !ok {
		return
	}

	snap, err := h.manager.Get(claims.UserID, testID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotActive)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": snap})
}

// ApplyEvent godoc
// POST /api/v1/tests/:id/session/events
// Applies one user action (select, clear, mark, navigate) to the session
// and returns the updated snapshot.
func (h *SessionHandler) ApplyEvent(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := h.sessionParams(c, claims)
	if !ok {
		return
	}

	var ev session.Event
	if fields := validator.Bind(c, &ev); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	snap, err := h.manager.Apply(c.Request.Context(), claims.UserID, testID, ev)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNoSession):
			response.Fail(c, http.StatusNotFound, response.ErrSessionNotActive)
		case errors.Is(err, session.ErrNotRunning):
			response.Fail(c, http.StatusConflict, response.ErrSessionNotActive)
		default:
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": snap})
}

// SubmitSession godoc
// POST /api/v1/tests/:id/session/submit
// Finalizes the session, scores it, and returns the attempt id. A failed
// submission keeps the session alive for retry.
func (h *SessionHandler) SubmitSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := h.sessionParams(c, claims)
	if !ok {
		return
	}

	attemptID, err := h.manager.Submit(c.Request.Context(), claims.UserID, testID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNoSession):
			response.Fail(c, http.StatusNotFound, response.ErrSessionNotActive)
		case errors.Is(err, session.ErrSubmitInFlight):
			response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
		case errors.Is(err, session.ErrAlreadyTerminal):
			response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrSubmitFailed)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt_id": attemptID})
}

func (h *SessionHandler) sessionParams(c *gin.Context, claims *service.Claims) (uuid.UUID, bool) {
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return uuid.Nil, false
	}

	testID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return testID, true
}
