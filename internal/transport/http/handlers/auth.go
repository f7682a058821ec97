package handlers

import (
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-trust/internal/core/domain"
	"github.com/arklim/social-platform-trust/internal/usecase"
)

// AuthHandler exposes registration and login endpoints.
type AuthHandler struct {
	auth         *usecase.AuthService
	registration *usecase.RegistrationService
	logger       *zap.Logger
	now          func() time.Time
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, registration *usecase.RegistrationService, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{
		auth:         auth,
		registration: registration,
		logger:       log,
		now:          time.Now,
	}
}

// RegisterRoutes binds authentication routes. Non-nil guards run ahead of the matching handler.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, registerGuard, loginGuard gin.HandlerFunc) {
	r.POST("/register", chain(registerGuard, h.register)...)
	r.POST("/login", chain(loginGuard, h.login)...)
}

func chain(guard, handler gin.HandlerFunc) []gin.HandlerFunc {
	if guard == nil {
		return []gin.HandlerFunc{handler}
	}
	return []gin.HandlerFunc{guard, handler}
}

func (h *AuthHandler) register(c *gin.Context) {
	if h.registration == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "registration service unavailable"))
		return
	}

	var req RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	var lc domain.LoginContext
	if req.Context != nil {
		lc = requestContext(c, *req.Context)
	}

	user, err := h.registration.RegisterUser(c.Request.Context(), usecase.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Context:  lc,
	})
	if err != nil {
		respondUsecaseError(c, h.logger, err, "failed to register user")
		return
	}

	c.JSON(http.StatusCreated, RegistrationResponse{
		User:           newUserSummary(user),
		ContextTrusted: lc.Complete(),
	})
}

func (h *AuthHandler) login(c *gin.Context) {
	var req AuthLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), usecase.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
		Context:    requestContext(c, req.Context),
	})
	if err != nil {
		var verification *usecase.ContextVerificationError
		if errors.As(err, &verification) {
			c.JSON(http.StatusUnauthorized, newContextVerificationResponse(c, verification))
			return
		}
		respondUsecaseError(c, h.logger, err, "failed to login")
		return
	}

	expiresIn := int(math.Round(result.ExpiresAt.Sub(h.now()).Seconds()))
	if expiresIn < 0 {
		expiresIn = 0
	}

	c.JSON(http.StatusOK, AuthLoginResponse{
		AccessToken: result.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
		ExpiresAt:   result.ExpiresAt,
		Reason:      result.Decision.Reason,
		User:        newUserSummary(result.User),
	})
}

func newContextVerificationResponse(c *gin.Context, verification *usecase.ContextVerificationError) ContextVerificationResponse {
	resp := ContextVerificationResponse{
		Error:    verification.Error(),
		Decision: string(verification.Decision.Kind),
		Reason:   verification.Decision.Reason,
		TraceID:  NewErrorResponse(c, "").TraceID,
	}
	if record := verification.Decision.Record; record != nil {
		resp.SuspiciousLoginID = record.ID
	}
	return resp
}

// requestContext converts the client fingerprint, taking the IP from the connection when omitted.
func requestContext(c *gin.Context, payload LoginContextPayload) domain.LoginContext {
	lc := payload.toDomain()
	if lc.IP == "" {
		lc.IP = c.ClientIP()
	}
	return lc
}
