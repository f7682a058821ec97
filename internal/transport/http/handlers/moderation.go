package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-trust/internal/usecase"
)

// ModerationHandler exposes bans, reports and moderator assignment.
type ModerationHandler struct {
	moderation *usecase.ModerationService
	logger     *zap.Logger
}

// NewModerationHandler constructs ModerationHandler.
func NewModerationHandler(moderation *usecase.ModerationService, log *zap.Logger) *ModerationHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ModerationHandler{moderation: moderation, logger: log}
}

// RegisterRoutes binds community moderation routes. Moderator rights are checked per community by the service.
func (h *ModerationHandler) RegisterRoutes(r *gin.RouterGroup) {
	communities := r.Group("/communities/:name")
	communities.POST("/ban", h.ban)
	communities.POST("/unban", h.unban)
	communities.POST("/posts/:postId/report", h.report)
	communities.GET("/reported-posts", h.reportedPosts)
	communities.DELETE("/reported-posts/:postId", h.removeReportedPost)
	communities.POST("/reported-posts/:postId/dismiss", h.dismissReport)
}

// RegisterAdminRoutes binds moderator assignment behind the supplied admin guard.
func (h *ModerationHandler) RegisterAdminRoutes(r *gin.RouterGroup, requireAdmin gin.HandlerFunc) {
	admin := r.Group("/admin/communities/:id/moderators")
	if requireAdmin != nil {
		admin.Use(requireAdmin)
	}
	admin.POST("", h.addModerator)
	admin.DELETE("/:userId", h.removeModerator)
}

func (h *ModerationHandler) ban(c *gin.Context) {
	actorID, ok := callerID(c)
	if !ok {
		return
	}

	var req TargetUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid ban payload"))
		return
	}

	if err := h.moderation.BanUser(c.Request.Context(), c.Param("name"), req.UserID, actorID); err != nil {
		respondUsecaseError(c, h.logger, err, "failed to ban user")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "user banned"})
}

func (h *ModerationHandler) unban(c *gin.Context) {
	actorID, ok := callerID(c)
	if !ok {
		return
	}

	var req TargetUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid unban payload"))
		return
	}

	if err := h.moderation.UnbanUser(c.Request.Context(), c.Param("name"), req.UserID, actorID); err != nil {
		respondUsecaseError(c, h.logger, err, "failed to unban user")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "user unbanned"})
}

func (h *ModerationHandler) report(c *gin.Context) {
	reporterID, ok := callerID(c)
	if !ok {
		return
	}

	var req ReportPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid report payload"))
		return
	}

	created, err := h.moderation.ReportPost(c.Request.Context(), c.Param("name"), c.Param("postId"), req.Reason, reporterID)
	if err != nil {
		respondUsecaseError(c, h.logger, err, "failed to report post")
		return
	}

	if created {
		c.JSON(http.StatusCreated, MessageResponse{Message: "post reported"})
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "report added"})
}

func (h *ModerationHandler) reportedPosts(c *gin.Context) {
	actorID, ok := callerID(c)
	if !ok {
		return
	}

	reported, err := h.moderation.GetReportedPosts(c.Request.Context(), c.Param("name"), actorID)
	if err != nil {
		respondUsecaseError(c, h.logger, err, "failed to list reported posts")
		return
	}

	resp := ReportedPostsResponse{ReportedPosts: make([]ReportedPostResponse, 0, len(reported))}
	for _, rp := range reported {
		entry := ReportedPostResponse{
			Post:    newPostResponse(rp.Post),
			Reports: make([]ReportResponse, 0, len(rp.Reports)),
		}
		for _, report := range rp.Reports {
			entry.Reports = append(entry.Reports, newReportResponse(report))
		}
		resp.ReportedPosts = append(resp.ReportedPosts, entry)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ModerationHandler) removeReportedPost(c *gin.Context) {
	actorID, ok := callerID(c)
	if !ok {
		return
	}

	if err := h.moderation.RemoveReportedPost(c.Request.Context(), c.Param("name"), c.Param("postId"), actorID); err != nil {
		respondUsecaseError(c, h.logger, err, "failed to remove post")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "post removed"})
}

func (h *ModerationHandler) dismissReport(c *gin.Context) {
	actorID, ok := callerID(c)
	if !ok {
		return
	}

	if err := h.moderation.DismissReport(c.Request.Context(), c.Param("name"), c.Param("postId"), actorID); err != nil {
		respondUsecaseError(c, h.logger, err, "failed to dismiss report")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "report dismissed"})
}

func (h *ModerationHandler) addModerator(c *gin.Context) {
	var req TargetUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid moderator payload"))
		return
	}

	if err := h.moderation.AddModerator(c.Request.Context(), c.Param("id"), req.UserID); err != nil {
		respondUsecaseError(c, h.logger, err, "failed to add moderator")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "moderator added"})
}

func (h *ModerationHandler) removeModerator(c *gin.Context) {
	if err := h.moderation.RemoveModerator(c.Request.Context(), c.Param("id"), c.Param("userId")); err != nil {
		respondUsecaseError(c, h.logger, err, "failed to remove moderator")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "moderator removed"})
}
