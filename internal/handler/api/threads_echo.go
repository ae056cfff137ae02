// Package api exposes the HTTP surface for thread generation.
package api

import (
	"errors"
	"net/http"

	"ThreadForge/internal/domain/models"
	"ThreadForge/internal/usecase"
	httputil "ThreadForge/pkg/http"
	"ThreadForge/pkg/logger"
	"ThreadForge/pkg/util"

	"github.com/labstack/echo/v4"
)

// ThreadsHandler serves thread generation and usage endpoints.
type ThreadsHandler struct {
	orchestrator *usecase.Orchestrator
	logger       *logger.Logger
}

func NewThreadsHandler(orchestrator *usecase.Orchestrator, lgr *logger.Logger) *ThreadsHandler {
	return &ThreadsHandler{
		orchestrator: orchestrator,
		logger:       lgr,
	}
}

// RegisterRoutes attaches routes to the Echo instance.
func (h *ThreadsHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/threads", h.generateThread)
	e.GET("/api/threads/:user_id", h.recentThreads)
	e.GET("/api/usage/:user_id", h.usage)
	e.GET("/healthz", h.health)
}

func (h *ThreadsHandler) generateThread(c echo.Context) error {
	var req models.GenerateThreadRequest
	if errs := httputil.ReadAndValidateRequest(c, &req); errs != nil {
		return httputil.BadRequestResponse(c, errs)
	}

	artifact, err := h.orchestrator.Generate(c.Request().Context(), req.UserID, req.Options())
	if err != nil {
		return h.mapError(c, err)
	}

	return httputil.CreatedResponse(c, artifact)
}

func (h *ThreadsHandler) recentThreads(c echo.Context) error {
	userID := c.Param("user_id")
	if userID == "" {
		return httputil.AppErrorResponse(c, httputil.BadRequestError("user_id is required"))
	}
	limit := util.ParseIntDefault(c.QueryParam("limit"), 20)

	artifacts, err := h.orchestrator.RecentThreads(c.Request().Context(), userID, limit)
	if err != nil {
		return h.mapError(c, err)
	}

	return httputil.ListResponse(c, artifacts, int64(len(artifacts)))
}

func (h *ThreadsHandler) usage(c echo.Context) error {
	userID := c.Param("user_id")
	if userID == "" {
		return httputil.AppErrorResponse(c, httputil.BadRequestError("user_id is required"))
	}

	decision, err := h.orchestrator.Usage(c.Request().Context(), userID)
	if err != nil {
		return h.mapError(c, err)
	}

	return httputil.SuccessResponse(c, decision)
}

func (h *ThreadsHandler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ThreadsHandler) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrUsageLimitReached):
		return httputil.AppErrorResponse(c, httputil.QuotaExceededError(err.Error()))
	case errors.Is(err, models.ErrUsageStoreUnavailable):
		return httputil.AppErrorResponse(c, httputil.ServiceUnavailableError("usage tracking is temporarily unavailable"))
	case errors.Is(err, models.ErrModelGatewayUnavailable):
		return httputil.AppErrorResponse(c, httputil.ServiceUnavailableError("generation is temporarily unavailable"))
	default:
		h.logger.Error("request failed", logger.String("path", c.Path()), logger.Error(err))
		return httputil.AppErrorResponse(c, err)
	}
}
