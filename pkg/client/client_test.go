package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/iso-assessment/internal/api"
	"github.com/terra-clan/iso-assessment/internal/catalog"
	"github.com/terra-clan/iso-assessment/internal/config"
	"github.com/terra-clan/iso-assessment/internal/identity"
	"github.com/terra-clan/iso-assessment/internal/storage"
	"github.com/terra-clan/iso-assessment/internal/workspace"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cat, err := catalog.Default()
	require.NoError(t, err)

	provider := identity.NewProvider(config.IdentityConfig{
		Secret:         strings.Repeat("x", 32),
		Issuer:         "client-test",
		TokenTTL:       time.Hour,
		AllowAnonymous: true,
	})
	manager := workspace.NewManager(cat, storage.NewMemoryRepository())

	srv := httptest.NewServer(api.NewServer(config.ServerConfig{}, manager, provider).Router())
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_AssessmentFlow(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	c := NewClient(srv.URL + "/")

	require.NoError(t, c.Health(ctx))

	session, err := c.SignIn(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, session.AccessToken, c.AccessToken())

	cat, err := c.GetCatalog(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, cat.Domains)
	assert.Equal(t, 18, cat.TotalQuestions)

	options, err := c.ListOptions(ctx)
	require.NoError(t, err)
	assert.Len(t, options, 6)

	domain, err := c.GetDomain(ctx, cat.Domains[0].ID)
	require.NoError(t, err)
	assert.Equal(t, cat.Domains[0].ShortTitle, domain.ShortTitle)

	first := cat.Domains[0].Questions[0].ID
	progress, err := c.SetAnswer(ctx, first, "5")
	require.NoError(t, err)
	assert.Equal(t, 1, progress.AnsweredCount)

	_, err = c.GetResult(ctx)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "no_result", apiErr.Code)

	saved, err := c.Save(ctx)
	require.NoError(t, err)
	assert.True(t, saved.Persisted)
	assert.Equal(t, 100, saved.Result.Percentage)

	require.NoError(t, c.ResetAnswers(ctx))
	state, err := c.GetAnswers(ctx)
	require.NoError(t, err)
	assert.Empty(t, state.Answers)

	loaded, err := c.Load(ctx)
	require.NoError(t, err)
	assert.True(t, loaded.Found)
	assert.Equal(t, "5", loaded.Answers[first])

	got, err := c.GetProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AnsweredCount)

	result, err := c.Calculate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Continuous Improvement (Level 5)", result.MaturityLevel)
}

func TestClient_Unauthenticated(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL)

	_, err := c.GetCatalog(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "missing_token", apiErr.Code)
}

func TestClient_Live(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	c := NewClient(srv.URL)

	_, err := c.SignIn(ctx, "")
	require.NoError(t, err)

	live, err := c.DialLive(ctx)
	require.NoError(t, err)
	defer live.Close()

	msg, err := live.Next()
	require.NoError(t, err)
	assert.Equal(t, "progress", msg.Type)

	require.NoError(t, live.SetAnswer("c4_1", "3"))
	msg, err = live.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, msg.Progress.AnsweredCount)

	require.NoError(t, live.Calculate())
	msg, err = live.Next()
	require.NoError(t, err)
	require.NotNil(t, msg.Result)
	assert.Equal(t, 60, msg.Result.Percentage)
}
