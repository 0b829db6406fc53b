package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/habitvault/habitvault/internal/errors"
	"github.com/habitvault/habitvault/internal/http/dto"
	"github.com/habitvault/habitvault/internal/httputil"
	"github.com/habitvault/habitvault/internal/metrics"
	"github.com/habitvault/habitvault/internal/recovery"
	customValidation "github.com/habitvault/habitvault/internal/validation"
)

// RecoveryHandler handles recovery key creation and account recovery.
type RecoveryHandler struct {
	recovery *recovery.UseCase
	metrics  metrics.BusinessMetrics
	logger   *slog.Logger
}

// NewRecoveryHandler creates a new recovery handler.
func NewRecoveryHandler(
	recoveryUC *recovery.UseCase,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *RecoveryHandler {
	return &RecoveryHandler{
		recovery: recoveryUC,
		metrics:  businessMetrics,
		logger:   logger,
	}
}

// CreateKeyHandler mints a recovery key for the authenticated user.
// POST /v1/recovery-keys - the key appears in this response and nowhere else.
func (h *RecoveryHandler) CreateKeyHandler(c *gin.Context) {
	user, ok := currentUser(c, h.logger)
	if !ok {
		return
	}

	start := time.Now()
	secret, err := h.recovery.CreateKey(c.Request.Context(), user)
	recordOp(c.Request.Context(), h.metrics, "recovery", "create_key", start, err)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.RecoveryKeyResponse{RecoveryKey: secret})
}

// RecoverHandler exchanges a recovery key plus email for the account's data
// export. POST /v1/recover - unauthenticated and rate limited. Every failure
// mode returns the same 404, so a caller probing with stolen material learns
// nothing.
func (h *RecoveryHandler) RecoverHandler(c *gin.Context) {
	var req dto.RecoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	start := time.Now()
	bundle, found, err := h.recovery.Recover(c.Request.Context(), req.RecoveryKey, req.Email)
	recordOp(c.Request.Context(), h.metrics, "recovery", "recover", start, err)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	if !found {
		httputil.HandleErrorGin(c, apperrors.ErrNotFound, h.logger)
		return
	}

	c.JSON(http.StatusOK, bundle)
}
