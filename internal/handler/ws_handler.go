package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/apexqbank/apex-backend/internal/middleware"
	"github.com/apexqbank/apex-backend/internal/model"
	"github.com/apexqbank/apex-backend/internal/response"
	"github.com/apexqbank/apex-backend/internal/service"
	ws "github.com/apexqbank/apex-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
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

// WSHandler streams a quiz session: countdown ticks and the submission
// are pushed, learner actions are read from the same socket.
type WSHandler struct {
	quizService *service.QuizService
	log         zerolog.Logger
	upgrader    websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(quizService *service.QuizService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		quizService: quizService,
		log:         log.With().Str("component", "ws_handler").Logger(),
		upgrader:    buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/quiz/sessions/:id/stream
// Upgrades to WebSocket for live countdown and session actions.
func (h *WSHandler) SessionStream(c *gin.Context) {
	userID := middleware.GetLearnerID(c)
	if userID == uuid.Nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	// Ownership is checked before the upgrade so a stranger gets a plain 404.
	initial, err := h.quizService.Get(c.Request.Context(), userID, sessionID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	events, unsubscribe, err := h.quizService.Subscribe(userID, sessionID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	defer unsubscribe()

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	wsLog := h.log.With().
		Str("user_id", userID.String()).
		Str("session_id", sessionID.String()).
		Logger()
	wsLog.Info().Msg("Learner connected")

	_ = ws.WriteTyped(conn, ws.StateResponse{Event: ws.EventState, Session: initial})

	go h.pump(conn, events)

	ctx := context.Background()
	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}
		h.dispatch(ctx, conn, wsLog, userID, sessionID, &msg)
	}
}

// pump forwards session events until the subscription ends.
func (h *WSHandler) pump(conn *ws.Conn, events <-chan service.SessionEvent) {
	for ev := range events {
		var err error
		switch ev.Type {
		case service.SessionEventTick:
			err = ws.WriteTyped(conn, ws.StateResponse{Event: ws.EventTick, Session: ev.View})
		case service.SessionEventSubmitted:
			err = ws.WriteTyped(conn, ws.StateResponse{Event: ws.EventSubmitted, Session: ev.View})
		case service.SessionEventClosed:
			_ = ws.WriteTyped(conn, ws.StateResponse{Event: ws.EventClosed})
			_ = conn.Close()
			return
		}
		if err != nil {
			return
		}
	}
}

func (h *WSHandler) dispatch(ctx context.Context, conn *ws.Conn, wsLog zerolog.Logger, userID, sessionID uuid.UUID, msg *ws.RequestEnvelope) {
	var (
		view *model.SessionView
		err  error
	)

	switch msg.Action {
	case ws.ActionPing:
		_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		return
	case ws.ActionState:
		view, err = h.quizService.Get(ctx, userID, sessionID)
	case ws.ActionAdvance:
		view, err = h.quizService.Advance(ctx, userID, sessionID)
	case ws.ActionRetreat:
		view, err = h.quizService.Retreat(ctx, userID, sessionID)
	case ws.ActionSelect:
		view, err = h.quizService.SelectAnswer(ctx, userID, sessionID, msg.QuestionID, msg.Label)
	case ws.ActionReveal:
		resp, rerr := h.quizService.Reveal(ctx, userID, sessionID, msg.QuestionID)
		if rerr != nil {
			h.writeErr(conn, rerr)
			return
		}
		_ = ws.WriteTyped(conn, ws.RevealedResponse{Event: ws.EventRevealed, Feedback: resp.Feedback, Session: resp.Session})
		return
	case ws.ActionSubmit:
		// The first submission also reaches subscribers as a submitted event.
		view, err = h.quizService.Submit(ctx, userID, sessionID)
	default:
		wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
		_ = ws.WriteError(conn, string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
		return
	}

	if err != nil {
		h.writeErr(conn, err)
		return
	}
	_ = ws.WriteTyped(conn, ws.StateResponse{Event: ws.EventState, Session: view})
}

func (h *WSHandler) writeErr(conn *ws.Conn, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("session action failed")
	}
	_ = ws.WriteError(conn, string(code), response.GetMessage(code))
}
