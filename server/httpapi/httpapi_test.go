package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesycrew/ashbot/internal/profile"
	"github.com/jonesycrew/ashbot/store"
	"github.com/jonesycrew/ashbot/store/storetest"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	prof := &profile.Profile{Version: "test"}
	st := store.New(storetest.NewMemory(), prof)
	return NewService(prof, st, nil), st
}

func request(t *testing.T, svc *Service, path string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	svc.Register(e)
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	svc, _ := newTestService(t)
	rec := request(t, svc, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"version":"test"`)
}

func TestGamesFeed(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	year := 1999
	_, err := st.CreatePlayedGame(ctx, &store.PlayedGame{
		CanonicalName:        "System Shock 2",
		CompletionStatus:     store.CompletionCompleted,
		TotalEpisodes:        12,
		TotalPlaytimeMinutes: 780,
		ReleaseYear:          &year,
		PlaylistURL:          "https://www.youtube.com/playlist?list=abc",
	})
	require.NoError(t, err)
	_, err = st.CreatePlayedGame(ctx, &store.PlayedGame{
		CanonicalName:    "Alien: Isolation",
		CompletionStatus: store.CompletionInProgress,
	})
	require.NoError(t, err)

	rec := request(t, svc, "/feed/games.rss")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/rss+xml; charset=utf-8", rec.Header().Get(echo.HeaderContentType))

	body := rec.Body.String()
	assert.Contains(t, body, "<rss")
	assert.Contains(t, body, "System Shock 2")
	assert.Contains(t, body, "Alien: Isolation")
	assert.Contains(t, body, "https://www.youtube.com/playlist?list=abc")
	// The entry body is markdown rendered to HTML.
	assert.Contains(t, body, "Episodes: 12")
}

func TestGamesFeedEmptyCatalog(t *testing.T) {
	svc, _ := newTestService(t)
	rec := request(t, svc, "/feed/games.rss")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "<rss"))
}
