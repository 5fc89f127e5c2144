package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/iso-assessment/internal/models"
)

// LiveMessage is exchanged over the live assessment channel
type LiveMessage struct {
	Type       string                    `json:"type"`
	QuestionID string                    `json:"questionId,omitempty"`
	Value      string                    `json:"value,omitempty"`
	Progress   *models.Progress          `json:"progress,omitempty"`
	Result     *models.CalculationResult `json:"result,omitempty"`
	Error      string                    `json:"error,omitempty"`
}

// LiveConn is an open live assessment channel
type LiveConn struct {
	conn *websocket.Conn
}

// DialLive opens the live assessment websocket
func (c *Client) DialLive(ctx context.Context) (*LiveConn, error) {
	u, err := url.Parse(c.baseURL + "/api/v1/assessment/live")
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)

	header := http.Header{}
	if token := c.AccessToken(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("failed to dial live channel: %w", err)
	}
	return &LiveConn{conn: conn}, nil
}

// SetAnswer sends an answer; the server replies with progress and,
// when a result was shown, a stale notice
func (l *LiveConn) SetAnswer(questionID, value string) error {
	return l.conn.WriteJSON(LiveMessage{Type: "answer", QuestionID: questionID, Value: value})
}

// Calculate asks for a fresh result
func (l *LiveConn) Calculate() error {
	return l.conn.WriteJSON(LiveMessage{Type: "calculate"})
}

// Next blocks for the next server message
func (l *LiveConn) Next() (*LiveMessage, error) {
	var msg LiveMessage
	if err := l.conn.ReadJSON(&msg); err != nil {
		return nil, fmt.Errorf("failed to read live message: %w", err)
	}
	return &msg, nil
}

// Close closes the channel
func (l *LiveConn) Close() error {
	return l.conn.Close()
}
