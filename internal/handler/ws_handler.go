package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hsscguru/hssc-guru-backend/internal/middleware"
	"github.com/hsscguru/hssc-guru-backend/internal/session"
	ws "github.com/hsscguru/hssc-guru-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams live session snapshots and accepts session actions over
// WebSocket.
type WSHandler struct {
	manager  *session.Manager
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(manager *session.Manager, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		manager:  manager,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/tests/:id/stream
// Upgrades to WebSocket. The server pushes a snapshot every tick and after
// each applied action; the client sends event, submit, and ping actions.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	testID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid test ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	userID := claims.UserID

	snapshots, cancelWatch, err := h.manager.Watch(userID, testID)
	if err != nil {
		ws.WriteError(conn, "no active session for this test")
		return
	}
	defer cancelWatch()

	wsLog := h.log.With().
		Str("user_id", userID.String()).
		Str("test_id", testID.String()).
		Logger()

	wsLog.Info().Msg("Session stream connected")

	// All writes go through one goroutine: gorilla connections do not
	// allow concurrent writers.
	outbound := make(chan interface{}, 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case snap, ok := <-snapshots:
				if !ok {
					// Session ended.
					return
				}
				ws.WriteTyped(conn, ws.SnapshotResponse{Event: ws.EventSnapshot, Snapshot: snap})
			case v, ok := <-outbound:
				if !ok {
					return
				}
				ws.WriteTyped(conn, v)
			}
		}
	}()

	for {
		var msg ws.Request
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionEvent:
			if _, err := h.manager.Apply(c.Request.Context(), userID, testID, msg.Event); err != nil {
				h.sendError(outbound, writerDone, err.Error())
			}
		case ws.ActionSubmit:
			attemptID, err := h.manager.Submit(c.Request.Context(), userID, testID)
			if err != nil {
				h.sendError(outbound, writerDone, err.Error())
				continue
			}
			h.send(outbound, writerDone, ws.SubmittedResponse{Event: ws.EventSubmitted, AttemptID: attemptID.String()})
		case ws.ActionPing:
			h.send(outbound, writerDone, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			h.sendError(outbound, writerDone, "unknown action: "+string(msg.Action))
		}
	}
}

func (h *WSHandler) send(outbound chan<- interface{}, writerDone <-chan struct{}, v interface{}) {
	select {
	case outbound <- v:
	case <-writerDone:
	}
}

func (h *WSHandler) sendError(outbound chan<- interface{}, writerDone <-chan struct{}, msg string) {
	h.send(outbound, writerDone, ws.ErrorResponse{Event: ws.EventError, Error: msg})
}
