package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-trust/internal/usecase"
)

// CommunityHandler exposes community membership and post endpoints.
type CommunityHandler struct {
	communities *usecase.CommunityService
	logger      *zap.Logger
}

// NewCommunityHandler constructs CommunityHandler.
func NewCommunityHandler(communities *usecase.CommunityService, log *zap.Logger) *CommunityHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CommunityHandler{communities: communities, logger: log}
}

// RegisterRoutes binds community routes. The group is expected to require authentication.
func (h *CommunityHandler) RegisterRoutes(r *gin.RouterGroup) {
	communities := r.Group("/communities")
	communities.GET("", h.list)
	communities.POST("", h.create)
	communities.GET("/:name", h.get)
	communities.POST("/:name/join", h.join)
	communities.POST("/:name/leave", h.leave)
	communities.GET("/:name/posts", h.listPosts)
	communities.POST("/:name/posts", h.createPost)
	communities.GET("/:name/moderators", h.listModerators)
}

func (h *CommunityHandler) create(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req CreateCommunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid community payload"))
		return
	}

	community, err := h.communities.CreateCommunity(c.Request.Context(), userID, req.Name, req.Description)
	if err != nil {
		respondUsecaseError(c, h.logger, err, "failed to create community")
		return
	}
	c.JSON(http.StatusCreated, newCommunityResponse(community))
}

func (h *CommunityHandler) list(c *gin.Context) {
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	communities, err := h.communities.ListCommunities(c.Request.Context(), limit, offset)
	if err != nil {
		respondUsecaseError(c, h.logger, err, "failed to list communities")
		return
	}

	resp := make([]CommunityResponse, 0, len(communities))
	for _, community := range communities {
		resp = append(resp, newCommunityResponse(community))
	}
	c.JSON(http.StatusOK, gin.H{"communities": resp})
}

func (h *CommunityHandler) get(c *gin.Context) {
	community, err := h.communities.GetCommunity(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondUsecaseError(c, h.logger, err, "failed to load community")
		return
	}
	c.JSON(http.StatusOK, newCommunityResponse(community))
}

func (h *CommunityHandler) join(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	if err := h.communities.JoinCommunity(c.Request.Context(), c.Param("name"), userID); err != nil {
		respondUsecaseError(c, h.logger, err, "failed to join community")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "joined community"})
}

func (h *CommunityHandler) leave(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	if err := h.communities.LeaveCommunity(c.Request.Context(), c.Param("name"), userID); err != nil {
		respondUsecaseError(c, h.logger, err, "failed to leave community")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "left community"})
}

func (h *CommunityHandler) createPost(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid post payload"))
		return
	}

	post, err := h.communities.CreatePost(c.Request.Context(), c.Param("name"), userID, req.Content)
	if err != nil {
		respondUsecaseError(c, h.logger, err, "failed to create post")
		return
	}
	c.JSON(http.StatusCreated, newPostResponse(post))
}

func (h *CommunityHandler) listPosts(c *gin.Context) {
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	posts, err := h.communities.ListPosts(c.Request.Context(), c.Param("name"), limit, offset)
	if err != nil {
		respondUsecaseError(c, h.logger, err, "failed to list posts")
		return
	}

	resp := make([]PostResponse, 0, len(posts))
	for _, post := range posts {
		resp = append(resp, newPostResponse(post))
	}
	c.JSON(http.StatusOK, gin.H{"posts": resp})
}

func (h *CommunityHandler) listModerators(c *gin.Context) {
	moderators, err := h.communities.ListModerators(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondUsecaseError(c, h.logger, err, "failed to list moderators")
		return
	}

	resp := make([]UserSummary, 0, len(moderators))
	for _, user := range moderators {
		user.Email = ""
		resp = append(resp, newUserSummary(user))
	}
	c.JSON(http.StatusOK, gin.H{"moderators": resp})
}

// pagination reads limit and offset query parameters; zero limit selects the service default.
func pagination(c *gin.Context) (uint64, uint64, bool) {
	var limit, offset uint64
	for name, dst := range map[string]*uint64{"limit": &limit, "offset": &offset} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid "+name+" parameter"))
			return 0, 0, false
		}
		*dst = v
	}
	return limit, offset, true
}
