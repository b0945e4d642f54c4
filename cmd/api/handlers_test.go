package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vidgrab/vidgrab/internal/logging"
	"github.com/vidgrab/vidgrab/pkg/models"
)

type fakeStore struct {
	downloads []*models.Download
	users     []*models.UserWithStats
	stats     *models.DownloadStats
	err       error

	lastLimit  int
	lastOffset int
}

func (f *fakeStore) ListDownloads(ctx context.Context, limit, offset int) ([]*models.Download, error) {
	f.lastLimit, f.lastOffset = limit, offset
	return f.downloads, f.err
}

func (f *fakeStore) ListUsersWithStats(ctx context.Context, limit, offset int) ([]*models.UserWithStats, error) {
	f.lastLimit, f.lastOffset = limit, offset
	return f.users, f.err
}

func (f *fakeStore) GetStats(ctx context.Context) (*models.DownloadStats, error) {
	return f.stats, f.err
}

type fakeHealth struct {
	err error
}

func (f *fakeHealth) Health(ctx context.Context) error {
	return f.err
}

func newTestAPI(t *testing.T, store *fakeStore, health *fakeHealth) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logging.NewDefaultLogger()
	require.NoError(t, err)

	return setupRouter(&API{store: store, health: health, log: log}, nil)
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	router := newTestAPI(t, &fakeStore{}, &fakeHealth{})

	w := get(router, "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestHealthCheck_DatabaseDown(t *testing.T) {
	router := newTestAPI(t, &fakeStore{}, &fakeHealth{err: errors.New("connection refused")})

	w := get(router, "/health")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unhealthy")
}

func TestListDownloads(t *testing.T) {
	store := &fakeStore{downloads: []*models.Download{
		{ID: "dl-1", VideoTitle: "First", Status: models.DownloadStatusCompleted},
		{ID: "dl-2", VideoTitle: "Second", Status: models.DownloadStatusProcessing},
	}}
	router := newTestAPI(t, store, &fakeHealth{})

	w := get(router, "/api/v1/downloads")

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Downloads []*models.Download `json:"downloads"`
		Limit     int                `json:"limit"`
		Offset    int                `json:"offset"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Downloads, 2)
	assert.Equal(t, defaultPageSize, body.Limit)
	assert.Zero(t, body.Offset)
}

func TestListDownloads_Pagination(t *testing.T) {
	store := &fakeStore{}
	router := newTestAPI(t, store, &fakeHealth{})

	w := get(router, "/api/v1/downloads?limit=5&offset=10")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, store.lastLimit)
	assert.Equal(t, 10, store.lastOffset)
}

func TestListDownloads_LimitCapped(t *testing.T) {
	store := &fakeStore{}
	router := newTestAPI(t, store, &fakeHealth{})

	w := get(router, "/api/v1/downloads?limit=5000")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, maxPageSize, store.lastLimit)
}

func TestListDownloads_StoreError(t *testing.T) {
	router := newTestAPI(t, &fakeStore{err: errors.New("query failed")}, &fakeHealth{})

	w := get(router, "/api/v1/downloads")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestListUsers(t *testing.T) {
	store := &fakeStore{users: []*models.UserWithStats{
		{User: models.User{ID: "u-1", Username: "ada"}, DownloadCount: 3},
	}}
	router := newTestAPI(t, store, &fakeHealth{})

	w := get(router, "/api/v1/users")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ada")
}

func TestGetStats(t *testing.T) {
	store := &fakeStore{stats: &models.DownloadStats{Total: 10, Completed: 7, Failed: 1, Processing: 2}}
	router := newTestAPI(t, store, &fakeHealth{})

	w := get(router, "/api/v1/stats")

	require.Equal(t, http.StatusOK, w.Code)

	var stats models.DownloadStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(10), stats.Total)
	assert.Equal(t, int64(7), stats.Completed)
}
