package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/habitvault/habitvault/internal/errors"
	"github.com/habitvault/habitvault/internal/http/dto"
	"github.com/habitvault/habitvault/internal/httputil"
	"github.com/habitvault/habitvault/internal/metrics"
	userDomain "github.com/habitvault/habitvault/internal/user/domain"
	userUsecase "github.com/habitvault/habitvault/internal/user/usecase"
	customValidation "github.com/habitvault/habitvault/internal/validation"
)

// UserHandler handles the session-authenticated data routes: settings, habit
// content, daily entries, and export.
type UserHandler struct {
	users   *userUsecase.UserUseCase
	metrics metrics.BusinessMetrics
	logger  *slog.Logger
}

// NewUserHandler creates a new user data handler.
func NewUserHandler(
	users *userUsecase.UserUseCase,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *UserHandler {
	return &UserHandler{
		users:   users,
		metrics: businessMetrics,
		logger:  logger,
	}
}

// recordOp records one business operation with its duration and outcome.
func recordOp(ctx context.Context, m metrics.BusinessMetrics, domain, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.RecordOperation(ctx, domain, operation, status)
	m.RecordDuration(ctx, domain, operation, time.Since(start), status)
}

// currentUser pulls the authenticated user out of the request context. The
// auth middleware guarantees it is present on these routes.
func currentUser(c *gin.Context, logger *slog.Logger) (userDomain.User, bool) {
	user, ok := GetUser(c.Request.Context())
	if !ok {
		logger.Error("no authenticated user in context")
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
		c.Abort()
	}
	return user, ok
}

// GetSettingsHandler returns the user's settings.
// GET /v1/settings - absent settings read as defaults.
func (h *UserHandler) GetSettingsHandler(c *gin.Context) {
	user, ok := currentUser(c, h.logger)
	if !ok {
		return
	}

	start := time.Now()
	settings, _, err := h.users.GetSettings(c.Request.Context(), user)
	recordOp(c.Request.Context(), h.metrics, "user", "settings_get", start, err)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, settings)
}

// UpdateSettingsHandler replaces the user's settings.
// PUT /v1/settings
func (h *UserHandler) UpdateSettingsHandler(c *gin.Context) {
	user, ok := currentUser(c, h.logger)
	if !ok {
		return
	}

	var req dto.SaveSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	settings := req.ToSettings()

	start := time.Now()
	err := h.users.SaveSettings(c.Request.Context(), user, settings)
	recordOp(c.Request.Context(), h.metrics, "user", "settings_save", start, err)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, settings)
}

// GetContentHandler returns the user's habit configuration.
// GET /v1/content
func (h *UserHandler) GetContentHandler(c *gin.Context) {
	user, ok := currentUser(c, h.logger)
	if !ok {
		return
	}

	start := time.Now()
	content, _, err := h.users.GetContent(c.Request.Context(), user)
	recordOp(c.Request.Context(), h.metrics, "user", "content_get", start, err)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, content)
}

// UpdateContentHandler replaces the user's habit configuration.
// PUT /v1/content
func (h *UserHandler) UpdateContentHandler(c *gin.Context) {
	user, ok := currentUser(c, h.logger)
	if !ok {
		return
	}

	var req dto.SaveContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	content := req.ToContent()

	start := time.Now()
	err := h.users.SaveContent(c.Request.Context(), user, content)
	recordOp(c.Request.Context(), h.metrics, "user", "content_save", start, err)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, content)
}

// SaveEntriesHandler replaces one day's entries.
// PUT /v1/entries/:date
func (h *UserHandler) SaveEntriesHandler(c *gin.Context) {
	user, ok := currentUser(c, h.logger)
	if !ok {
		return
	}

	date := c.Param("date")
	if err := customValidation.EntryDate.Validate(date); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	var req dto.SaveEntriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	entries := req.ToEntries()

	start := time.Now()
	err := h.users.SaveEntries(c.Request.Context(), user, date, entries)
	recordOp(c.Request.Context(), h.metrics, "user", "entries_save", start, err)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"date": date, "entries": entries})
}

// ListEntriesHandler returns the user's full entry history keyed by date.
// GET /v1/entries
func (h *UserHandler) ListEntriesHandler(c *gin.Context) {
	user, ok := currentUser(c, h.logger)
	if !ok {
		return
	}

	start := time.Now()
	entries, err := h.users.ListEntries(c.Request.Context(), user)
	recordOp(c.Request.Context(), h.metrics, "user", "entries_list", start, err)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// ExportHandler returns the user's full readable data bundle.
// GET /v1/export
func (h *UserHandler) ExportHandler(c *gin.Context) {
	user, ok := currentUser(c, h.logger)
	if !ok {
		return
	}

	start := time.Now()
	bundle, err := h.users.ExportData(c.Request.Context(), user)
	recordOp(c.Request.Context(), h.metrics, "user", "export", start, err)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, bundle)
}
