package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vidgrab/vidgrab/internal/logging"
	"github.com/vidgrab/vidgrab/internal/middleware"
	"github.com/vidgrab/vidgrab/pkg/models"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Store is the read-only slice of the repository the reporting API needs.
type Store interface {
	ListDownloads(ctx context.Context, limit, offset int) ([]*models.Download, error)
	ListUsersWithStats(ctx context.Context, limit, offset int) ([]*models.UserWithStats, error)
	GetStats(ctx context.Context) (*models.DownloadStats, error)
}

// HealthChecker reports whether the backing database is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// API serves the read-only reporting endpoints.
type API struct {
	store  Store
	health HealthChecker
	log    *logging.Logger
}

func setupRouter(api *API, limiter *middleware.RateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(api.log))
	if limiter != nil {
		router.Use(middleware.RateLimit(limiter))
	}

	router.GET("/health", api.healthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/downloads", api.listDownloads)
		v1.GET("/users", api.listUsers)
		v1.GET("/stats", api.getStats)
	}

	return router
}

// Health check endpoint
func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := api.health.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

// List downloads endpoint, newest first.
func (api *API) listDownloads(c *gin.Context) {
	limit, offset := pagination(c)

	downloads, err := api.store.ListDownloads(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"downloads": downloads,
		"limit":     limit,
		"offset":    offset,
	})
}

// List users endpoint with per-user download counts.
func (api *API) listUsers(c *gin.Context) {
	limit, offset := pagination(c)

	users, err := api.store.ListUsersWithStats(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":  users,
		"limit":  limit,
		"offset": offset,
	})
}

// Global stats endpoint
func (api *API) getStats(c *gin.Context) {
	stats, err := api.store.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = defaultPageSize
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
