package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/habitvault/habitvault/internal/crypto/usecase"
	apperrors "github.com/habitvault/habitvault/internal/errors"
	"github.com/habitvault/habitvault/internal/http/dto"
	"github.com/habitvault/habitvault/internal/httputil"
	"github.com/habitvault/habitvault/internal/metrics"
)

// AdminHandler handles operator endpoints guarded by the admin token.
type AdminHandler struct {
	engine  *usecase.Engine
	metrics metrics.BusinessMetrics
	logger  *slog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(
	engine *usecase.Engine,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		engine:  engine,
		metrics: businessMetrics,
		logger:  logger,
	}
}

// RotateHandler rotates a DEK or the signing key in place.
// POST /v1/admin/rotate/:target - KEK rotation is excluded: it requires a new
// environment value and a process restart, which only the CLI path can stage.
func (h *AdminHandler) RotateHandler(c *gin.Context) {
	target, err := usecase.ParseTarget(c.Param("target"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	if target == usecase.TargetKEK {
		httputil.HandleErrorGin(c,
			apperrors.Wrap(apperrors.ErrInvalidInput, "kek rotation is only available via the rotate-kek command"),
			h.logger)
		return
	}

	start := time.Now()
	report, err := h.engine.Rotate(c.Request.Context(), target)
	recordOp(c.Request.Context(), h.metrics, "rotation", "rotate_"+string(target), start, err)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapReportToResponse(report))
}
