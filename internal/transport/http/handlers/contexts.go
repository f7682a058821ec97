package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-trust/internal/core/domain"
	"github.com/arklim/social-platform-trust/internal/transport/http/middleware"
	"github.com/arklim/social-platform-trust/internal/usecase"
)

// ContextHandler exposes the caller's trusted contexts, suspicious logins and preference.
type ContextHandler struct {
	trust  *usecase.ContextTrustService
	logger *zap.Logger
}

// NewContextHandler constructs ContextHandler.
func NewContextHandler(trust *usecase.ContextTrustService, log *zap.Logger) *ContextHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ContextHandler{trust: trust, logger: log}
}

// RegisterRoutes binds context routes. The group is expected to require authentication.
func (h *ContextHandler) RegisterRoutes(r *gin.RouterGroup) {
	contexts := r.Group("/contexts")
	contexts.GET("/trusted", h.listTrusted)
	contexts.DELETE("/trusted/:id", h.deleteTrusted)
	contexts.GET("/suspicious", h.listSuspicious)
	contexts.GET("/blocked", h.listBlocked)
	contexts.POST("/suspicious/:id/confirm", h.confirm)
	contexts.POST("/suspicious/:id/block", h.block)
	contexts.POST("/suspicious/:id/unblock", h.unblock)
	contexts.DELETE("/suspicious/:id", h.deleteSuspicious)

	r.GET("/preferences", h.getPreference)
	r.PUT("/preferences", h.updatePreference)
}

func (h *ContextHandler) listTrusted(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	trusted, err := h.trust.ListTrustedContexts(c.Request.Context(), userID)
	if err != nil {
		respondUsecaseError(c, h.logger, err, "failed to list trusted contexts")
		return
	}

	resp := make([]TrustedContextResponse, 0, len(trusted))
	for _, tc := range trusted {
		resp = append(resp, newTrustedContextResponse(tc))
	}
	c.JSON(http.StatusOK, gin.H{"trusted_contexts": resp})
}

func (h *ContextHandler) deleteTrusted(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	if err := h.trust.DeleteTrustedContext(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondUsecaseError(c, h.logger, err, "failed to delete trusted context")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ContextHandler) listSuspicious(c *gin.Context) {
	h.listRecords(c, h.trust.ListSuspiciousLogins, "failed to list suspicious logins")
}

func (h *ContextHandler) listBlocked(c *gin.Context) {
	h.listRecords(c, h.trust.ListBlockedLogins, "failed to list blocked logins")
}

func (h *ContextHandler) listRecords(
	c *gin.Context,
	list func(ctx context.Context, userID string) ([]domain.SuspiciousLogin, error),
	fallback string,
) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	records, err := list(c.Request.Context(), userID)
	if err != nil {
		respondUsecaseError(c, h.logger, err, fallback)
		return
	}

	resp := make([]SuspiciousLoginResponse, 0, len(records))
	for _, record := range records {
		resp = append(resp, newSuspiciousLoginResponse(record))
	}
	c.JSON(http.StatusOK, gin.H{"suspicious_logins": resp})
}

func (h *ContextHandler) confirm(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	trusted, err := h.trust.ConfirmSuspiciousLogin(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondUsecaseError(c, h.logger, err, "failed to confirm suspicious login")
		return
	}
	c.JSON(http.StatusOK, newTrustedContextResponse(trusted))
}

func (h *ContextHandler) block(c *gin.Context) {
	h.recordAction(c, h.trust.BlockSuspiciousLogin, "suspicious login blocked", "failed to block suspicious login")
}

func (h *ContextHandler) unblock(c *gin.Context) {
	h.recordAction(c, h.trust.UnblockSuspiciousLogin, "suspicious login unblocked", "failed to unblock suspicious login")
}

func (h *ContextHandler) deleteSuspicious(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	if err := h.trust.DeleteSuspiciousLogin(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondUsecaseError(c, h.logger, err, "failed to delete suspicious login")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ContextHandler) recordAction(
	c *gin.Context,
	action func(ctx context.Context, userID, recordID string) error,
	message, fallback string,
) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	if err := action(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondUsecaseError(c, h.logger, err, fallback)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: message})
}

func (h *ContextHandler) getPreference(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	pref, err := h.trust.GetPreference(c.Request.Context(), userID)
	if err != nil {
		respondUsecaseError(c, h.logger, err, "failed to load preference")
		return
	}
	c.JSON(http.StatusOK, PreferenceResponse{
		EnableContextBasedAuth: pref.EnableContextBasedAuth,
		UpdatedAt:              pref.UpdatedAt,
	})
}

func (h *ContextHandler) updatePreference(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req UpdatePreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid preference payload"))
		return
	}

	pref, err := h.trust.UpdatePreference(c.Request.Context(), userID, *req.EnableContextBasedAuth)
	if err != nil {
		respondUsecaseError(c, h.logger, err, "failed to update preference")
		return
	}
	c.JSON(http.StatusOK, PreferenceResponse{
		EnableContextBasedAuth: pref.EnableContextBasedAuth,
		UpdatedAt:              pref.UpdatedAt,
	})
}

// callerID returns the authenticated user id or writes a 401.
func callerID(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return "", false
	}
	return userID, true
}
