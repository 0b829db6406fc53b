package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/habitvault/habitvault/internal/errors"
	"github.com/habitvault/habitvault/internal/http/dto"
	"github.com/habitvault/habitvault/internal/httputil"
	"github.com/habitvault/habitvault/internal/metrics"
	"github.com/habitvault/habitvault/internal/session"
	userDomain "github.com/habitvault/habitvault/internal/user/domain"
	userUsecase "github.com/habitvault/habitvault/internal/user/usecase"
	customValidation "github.com/habitvault/habitvault/internal/validation"
)

// SessionHandler handles session creation and destruction. The OAuth handshake
// happens upstream; this handler trusts the identity it is handed and turns it
// into a signed session token.
type SessionHandler struct {
	sessions *session.UseCase
	users    *userUsecase.UserUseCase
	metrics  metrics.BusinessMetrics
	logger   *slog.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(
	sessions *session.UseCase,
	users *userUsecase.UserUseCase,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		users:    users,
		metrics:  businessMetrics,
		logger:   logger,
	}
}

// CreateHandler exchanges a post-authentication identity for a session token.
// POST /v1/sessions - the user's encryption key is provisioned here, at login,
// so the data routes never hit a cold key path.
func (h *SessionHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	var user userDomain.User
	if req.Public {
		user = userDomain.NewPublicUser(uuid.Must(uuid.NewV7()).String())
	} else {
		user = userDomain.User{
			Provider: req.Provider,
			ID:       req.ID,
			Email:    req.Email,
		}
	}

	start := time.Now()

	if _, err := h.users.GetOrCreateUserDEK(c.Request.Context(), user); err != nil {
		recordOp(c.Request.Context(), h.metrics, "session", "create", start, err)
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	token, err := h.sessions.Create(c.Request.Context(), user)
	recordOp(c.Request.Context(), h.metrics, "session", "create", start, err)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.SessionResponse{
		Token: token,
		User:  dto.MapUserToResponse(user),
	})
}

// DestroyHandler ends the current session.
// DELETE /v1/sessions
func (h *SessionHandler) DestroyHandler(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	start := time.Now()
	err := h.sessions.Destroy(c.Request.Context(), token)
	recordOp(c.Request.Context(), h.metrics, "session", "destroy", start, err)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}
