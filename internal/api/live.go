package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/iso-assessment/internal/models"
	"github.com/terra-clan/iso-assessment/internal/workspace"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Live message types
const (
	liveAnswer    = "answer"
	liveCalculate = "calculate"
	liveProgress  = "progress"
	liveResult    = "result"
	liveStale     = "stale"
	liveError     = "error"
)

// LiveMessage is exchanged over the live assessment websocket
type LiveMessage struct {
	Type       string                    `json:"type"`
	QuestionID string                    `json:"questionId,omitempty"`
	Value      string                    `json:"value,omitempty"`
	Progress   *models.Progress          `json:"progress,omitempty"`
	Result     *models.CalculationResult `json:"result,omitempty"`
	Error      string                    `json:"error,omitempty"`
}

// handleLiveWS streams progress and results while the user answers.
// Messages are handled one at a time, so replies keep request order.
func (s *Server) handleLiveWS(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	userID := id.UserID
	slog.Info("live websocket connected", "user_id", id.MaskedUserID())

	progress := s.workspaces.Progress(ctx, userID)
	if err := s.sendLiveMessage(conn, LiveMessage{Type: liveProgress, Progress: &progress}); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "error", err)
			}
			break
		}

		var msg LiveMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Debug("invalid message format", "error", err)
			if s.sendLiveError(conn, "invalid message format") != nil {
				break
			}
			continue
		}

		if err := s.handleLiveMessage(r, conn, userID, msg); err != nil {
			break
		}
	}

	slog.Info("live websocket disconnected", "user_id", id.MaskedUserID())
}

// handleLiveMessage answers one inbound message; a returned error ends the connection
func (s *Server) handleLiveMessage(r *http.Request, conn *websocket.Conn, userID string, msg LiveMessage) error {
	ctx := r.Context()

	switch msg.Type {
	case liveAnswer:
		progress, err := s.workspaces.SetAnswer(ctx, userID, msg.QuestionID, msg.Value)
		if err != nil {
			return s.sendLiveError(conn, err.Error())
		}
		if err := s.sendLiveMessage(conn, LiveMessage{Type: liveProgress, Progress: &progress}); err != nil {
			return err
		}
		if _, err := s.workspaces.Result(ctx, userID); errors.Is(err, workspace.ErrResultStale) {
			return s.sendLiveMessage(conn, LiveMessage{Type: liveStale})
		}
		return nil

	case liveCalculate:
		return s.sendLiveMessage(conn, LiveMessage{Type: liveResult, Result: s.workspaces.Calculate(ctx, userID)})

	case liveProgress:
		progress := s.workspaces.Progress(ctx, userID)
		return s.sendLiveMessage(conn, LiveMessage{Type: liveProgress, Progress: &progress})

	default:
		return s.sendLiveError(conn, "unknown message type: "+msg.Type)
	}
}

func (s *Server) sendLiveMessage(conn *websocket.Conn, msg LiveMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal live message", "error", err)
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send live message", "error", err)
		return err
	}
	return nil
}

func (s *Server) sendLiveError(conn *websocket.Conn, message string) error {
	return s.sendLiveMessage(conn, LiveMessage{Type: liveError, Error: message})
}
