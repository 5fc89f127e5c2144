package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/iso-assessment/internal/config"
	"github.com/terra-clan/iso-assessment/internal/identity"
	"github.com/terra-clan/iso-assessment/internal/models"
	"github.com/terra-clan/iso-assessment/internal/storage"
	"github.com/terra-clan/iso-assessment/internal/workspace"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

func testCatalog() *models.Catalog {
	options := make([]models.Option, 0, 6)
	for i, v := range []string{"0", "1", "2", "3", "4", "5"} {
		options = append(options, models.Option{Value: v, Label: "L" + v, Score: i})
	}
	domains := []models.Domain{
		{ID: "d1", Title: "4. Context", Questions: []models.Question{{ID: "q1"}, {ID: "q2"}}},
		{ID: "d2", Title: "A.5 Controls", Questions: []models.Question{{ID: "q3"}}},
	}
	return models.NewCatalog(domains, options)
}

func localServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(config.ServerConfig{}, workspace.NewManager(testCatalog(), nil), identity.LocalProvider{})
}

func tokenServer(t *testing.T) *Server {
	t.Helper()
	provider := identity.NewProvider(config.IdentityConfig{
		Secret:         strings.Repeat("s", 32),
		Issuer:         "test",
		TokenTTL:       time.Hour,
		AllowAnonymous: true,
	})
	manager := workspace.NewManager(testCatalog(), storage.NewMemoryRepository())
	return NewServer(config.ServerConfig{}, manager, provider)
}

func doRequest(t *testing.T, s *Server, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func TestHealthAndReady(t *testing.T) {
	s := localServer(t)

	rec, env := doRequest(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	rec, env = doRequest(t, s, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var ready map[string]interface{}
	decodeData(t, env, &ready)
	assert.Equal(t, false, ready["persistence"])
}

func TestCatalogEndpoints(t *testing.T) {
	s := localServer(t)

	_, env := doRequest(t, s, http.MethodGet, "/api/v1/catalog", "", nil)
	var catalog catalogView
	decodeData(t, env, &catalog)
	assert.Equal(t, 3, catalog.TotalQuestions)
	require.Len(t, catalog.Domains, 2)
	assert.Equal(t, "Context", catalog.Domains[0].ShortTitle)
	assert.Equal(t, "A.5 Controls", catalog.Domains[1].ShortTitle)
	assert.Len(t, catalog.Options, 6)

	rec, _ := doRequest(t, s, http.MethodGet, "/api/v1/catalog/domains/d2", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = doRequest(t, s, http.MethodGet, "/api/v1/catalog/domains/zz", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestLocalMode_CalculateAndSave(t *testing.T) {
	s := localServer(t)

	rec, _ := doRequest(t, s, http.MethodPut, "/api/v1/assessment/answers/q1", "", models.SetAnswerRequest{Value: "5"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = doRequest(t, s, http.MethodPut, "/api/v1/assessment/answers/q2", "", models.SetAnswerRequest{Value: "3"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := doRequest(t, s, http.MethodGet, "/api/v1/assessment/result", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no_result", env.Error.Code)

	_, env = doRequest(t, s, http.MethodPost, "/api/v1/assessment/save", "", nil)
	var saved models.SaveResponse
	decodeData(t, env, &saved)
	assert.False(t, saved.Persisted)
	assert.Equal(t, models.ModeLocal, saved.Mode)
	require.NotNil(t, saved.Result)
	assert.Equal(t, 80, saved.Result.Percentage)
	assert.Equal(t, 4, saved.Result.MaturityLevelNumber)
	assert.True(t, saved.Result.Partial)
	require.Len(t, saved.Result.DomainScores, 1)
	assert.Equal(t, "Context", saved.Result.DomainScores[0].Subject)

	rec, env = doRequest(t, s, http.MethodPost, "/api/v1/assessment/load", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "persistence_disabled", env.Error.Code)
}

func TestSetAnswer_Invalid(t *testing.T) {
	s := localServer(t)

	rec, env := doRequest(t, s, http.MethodPut, "/api/v1/assessment/answers/q1", "", models.SetAnswerRequest{Value: "9"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_value", env.Error.Code)

	rec, env = doRequest(t, s, http.MethodPut, "/api/v1/assessment/answers/nope", "", models.SetAnswerRequest{Value: "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown_question", env.Error.Code)
}

func TestResultGoesStaleOnEdit(t *testing.T) {
	s := localServer(t)

	doRequest(t, s, http.MethodPut, "/api/v1/assessment/answers/q1", "", models.SetAnswerRequest{Value: "2"})
	rec, _ := doRequest(t, s, http.MethodPost, "/api/v1/assessment/calculate", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doRequest(t, s, http.MethodGet, "/api/v1/assessment/result", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	doRequest(t, s, http.MethodPut, "/api/v1/assessment/answers/q3", "", models.SetAnswerRequest{Value: "0"})
	rec, env := doRequest(t, s, http.MethodGet, "/api/v1/assessment/result", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "result_stale", env.Error.Code)

	_, env = doRequest(t, s, http.MethodGet, "/api/v1/assessment/progress", "", nil)
	var progress models.Progress
	decodeData(t, env, &progress)
	assert.Equal(t, 2, progress.AnsweredCount)
	assert.Equal(t, 67, progress.Percentage)

	rec, _ = doRequest(t, s, http.MethodDelete, "/api/v1/assessment/answers", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	_, env = doRequest(t, s, http.MethodGet, "/api/v1/assessment/progress", "", nil)
	decodeData(t, env, &progress)
	assert.Zero(t, progress.AnsweredCount)
}

func signIn(t *testing.T, s *Server, token string) models.SignInResponse {
	t.Helper()
	rec, env := doRequest(t, s, http.MethodPost, "/api/v1/auth/session", "", models.SignInRequest{Token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.SignInResponse
	decodeData(t, env, &resp)
	return resp
}

func TestTokenMode_RequiresToken(t *testing.T) {
	s := tokenServer(t)

	rec, env := doRequest(t, s, http.MethodGet, "/api/v1/catalog", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing_token", env.Error.Code)

	rec, env = doRequest(t, s, http.MethodGet, "/api/v1/catalog", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_token", env.Error.Code)
}

func TestTokenMode_SaveAndLoad(t *testing.T) {
	s := tokenServer(t)

	session := signIn(t, s, "")
	assert.Equal(t, models.ModeAnonymous, session.Mode)
	require.NotEmpty(t, session.AccessToken)
	token := session.AccessToken

	doRequest(t, s, http.MethodPut, "/api/v1/assessment/answers/q1", token, models.SetAnswerRequest{Value: "4"})

	_, env := doRequest(t, s, http.MethodPost, "/api/v1/assessment/save", token, nil)
	var saved models.SaveResponse
	decodeData(t, env, &saved)
	assert.True(t, saved.Persisted)
	assert.Positive(t, saved.Revision)
	assert.Equal(t, 80, saved.Result.Percentage)

	doRequest(t, s, http.MethodPut, "/api/v1/assessment/answers/q1", token, models.SetAnswerRequest{Value: "1"})

	rec, env := doRequest(t, s, http.MethodPost, "/api/v1/assessment/load", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var loaded models.LoadResponse
	decodeData(t, env, &loaded)
	assert.True(t, loaded.Found)
	assert.Equal(t, models.Answers{"q1": "4"}, loaded.Answers)
	assert.Equal(t, saved.Revision, loaded.Revision)
	assert.True(t, loaded.ResultIsStale)

	rec, _ = doRequest(t, s, http.MethodGet, "/api/v1/assessment/result", token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// a second anonymous user starts empty and has nothing stored
	other := signIn(t, s, "").AccessToken
	_, env = doRequest(t, s, http.MethodPost, "/api/v1/assessment/load", other, nil)
	decodeData(t, env, &loaded)
	assert.False(t, loaded.Found)
}

func TestTokenMode_SignInWithToken(t *testing.T) {
	s := tokenServer(t)

	first := signIn(t, s, "")
	again := signIn(t, s, first.AccessToken)
	assert.Equal(t, first.UserID, again.UserID)
	assert.Equal(t, models.ModeToken, again.Mode)

	fallback := signIn(t, s, "not-a-token")
	assert.Equal(t, models.ModeAnonymous, fallback.Mode)
	assert.NotEqual(t, first.UserID, fallback.UserID)
}

func TestLiveWebsocket(t *testing.T) {
	srv := httptest.NewServer(localServer(t).Router())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/assessment/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() LiveMessage {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg LiveMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	msg := read()
	assert.Equal(t, liveProgress, msg.Type)
	assert.Zero(t, msg.Progress.AnsweredCount)

	require.NoError(t, conn.WriteJSON(LiveMessage{Type: liveAnswer, QuestionID: "q1", Value: "5"}))
	msg = read()
	assert.Equal(t, liveProgress, msg.Type)
	assert.Equal(t, 1, msg.Progress.AnsweredCount)

	require.NoError(t, conn.WriteJSON(LiveMessage{Type: liveCalculate}))
	msg = read()
	assert.Equal(t, liveResult, msg.Type)
	require.NotNil(t, msg.Result)
	assert.Equal(t, 100, msg.Result.Percentage)

	require.NoError(t, conn.WriteJSON(LiveMessage{Type: liveAnswer, QuestionID: "q2", Value: "1"}))
	assert.Equal(t, liveProgress, read().Type)
	assert.Equal(t, liveStale, read().Type)

	require.NoError(t, conn.WriteJSON(LiveMessage{Type: liveAnswer, QuestionID: "q2", Value: "x"}))
	msg = read()
	assert.Equal(t, liveError, msg.Type)
	assert.NotEmpty(t, msg.Error)
}

func TestExtractToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x?access_token=abc", nil)
	assert.Equal(t, "abc", extractToken(req))

	req.Header.Set("Authorization", "Bearer xyz")
	assert.Equal(t, "xyz", extractToken(req))
}
