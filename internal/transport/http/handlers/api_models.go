package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-trust/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginContextPayload is the eight-field fingerprint sent by clients.
type LoginContextPayload struct {
	IP         string `json:"ip"`
	Country    string `json:"country"`
	City       string `json:"city"`
	Browser    string `json:"browser"`
	Platform   string `json:"platform"`
	OS         string `json:"os"`
	Device     string `json:"device"`
	DeviceType string `json:"deviceType"`
}

func (p LoginContextPayload) toDomain() domain.LoginContext {
	return domain.LoginContext{
		IP:         p.IP,
		Country:    p.Country,
		City:       p.City,
		Browser:    p.Browser,
		Platform:   p.Platform,
		OS:         p.OS,
		Device:     p.Device,
		DeviceType: p.DeviceType,
	}
}

func newLoginContextPayload(lc domain.LoginContext) LoginContextPayload {
	return LoginContextPayload{
		IP:         lc.IP,
		Country:    lc.Country,
		City:       lc.City,
		Browser:    lc.Browser,
		Platform:   lc.Platform,
		OS:         lc.OS,
		Device:     lc.Device,
		DeviceType: lc.DeviceType,
	}
}

// UserSummary describes a minimal view of a user returned by the API.
type UserSummary struct {
	ID        string          `json:"id"`
	Username  string          `json:"username"`
	Email     string          `json:"email,omitempty"`
	Role      domain.UserRole `json:"role"`
	CreatedAt time.Time       `json:"created_at"`
}

func newUserSummary(user domain.User) UserSummary {
	return UserSummary{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

// RegistrationRequest defines the account registration payload.
type RegistrationRequest struct {
	Username string               `json:"username" binding:"required"`
	Email    string               `json:"email" binding:"required,email"`
	Password string               `json:"password" binding:"required"`
	Context  *LoginContextPayload `json:"context"`
}

// RegistrationResponse contains the created account.
type RegistrationResponse struct {
	User           UserSummary `json:"user"`
	ContextTrusted bool        `json:"context_trusted"`
}

// AuthLoginRequest defines the payload for the login endpoint.
type AuthLoginRequest struct {
	Identifier string              `json:"identifier" binding:"required"`
	Password   string              `json:"password" binding:"required"`
	Context    LoginContextPayload `json:"context"`
}

// AuthLoginResponse describes the response returned for a successful login.
type AuthLoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int         `json:"expires_in"`
	ExpiresAt   time.Time   `json:"expires_at"`
	Reason      string      `json:"reason"`
	User        UserSummary `json:"user"`
}

// ContextVerificationResponse is returned with 401 when the login context is not trusted.
type ContextVerificationResponse struct {
	Error             string `json:"error"`
	Decision          string `json:"decision"`
	Reason            string `json:"reason"`
	SuspiciousLoginID string `json:"suspicious_login_id,omitempty"`
	TraceID           string `json:"trace_id,omitempty"`
}

// TrustedContextResponse is a stored trusted fingerprint.
type TrustedContextResponse struct {
	ID        string              `json:"id"`
	Context   LoginContextPayload `json:"context"`
	CreatedAt time.Time           `json:"created_at"`
}

func newTrustedContextResponse(tc domain.TrustedContext) TrustedContextResponse {
	return TrustedContextResponse{
		ID:        tc.ID,
		Context:   newLoginContextPayload(tc.Context),
		CreatedAt: tc.CreatedAt,
	}
}

// SuspiciousLoginResponse is a tracked login attempt from an unknown context.
type SuspiciousLoginResponse struct {
	ID                 string              `json:"id"`
	Context            LoginContextPayload `json:"context"`
	UnverifiedAttempts int                 `json:"unverified_attempts"`
	IsTrusted          bool                `json:"is_trusted"`
	IsBlocked          bool                `json:"is_blocked"`
	State              string              `json:"state"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

func newSuspiciousLoginResponse(record domain.SuspiciousLogin) SuspiciousLoginResponse {
	return SuspiciousLoginResponse{
		ID:                 record.ID,
		Context:            newLoginContextPayload(record.Context),
		UnverifiedAttempts: record.UnverifiedAttempts,
		IsTrusted:          record.IsTrusted,
		IsBlocked:          record.IsBlocked,
		State:              string(record.State()),
		CreatedAt:          record.CreatedAt,
		UpdatedAt:          record.UpdatedAt,
	}
}

// PreferenceResponse exposes the context-based auth toggle.
type PreferenceResponse struct {
	EnableContextBasedAuth bool      `json:"enable_context_based_auth"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// UpdatePreferenceRequest toggles context-based auth.
type UpdatePreferenceRequest struct {
	EnableContextBasedAuth *bool `json:"enable_context_based_auth" binding:"required"`
}

// CreateCommunityRequest defines the payload for creating a community.
type CreateCommunityRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// CommunityResponse describes a community and its member sets.
type CommunityResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Members     []string  `json:"members"`
	Moderators  []string  `json:"moderators"`
	BannedUsers []string  `json:"banned_users"`
	RuleIDs     []string  `json:"rules"`
	CreatedAt   time.Time `json:"created_at"`
}

func newCommunityResponse(community domain.Community) CommunityResponse {
	return CommunityResponse{
		ID:          community.ID,
		Name:        community.Name,
		Description: community.Description,
		Members:     nonNil(community.Members),
		Moderators:  nonNil(community.Moderators),
		BannedUsers: nonNil(community.BannedUsers),
		RuleIDs:     nonNil(community.RuleIDs),
		CreatedAt:   community.CreatedAt,
	}
}

// CreatePostRequest defines the payload for publishing a post.
type CreatePostRequest struct {
	Content string `json:"content" binding:"required"`
}

// PostResponse describes a post.
type PostResponse struct {
	ID          string    `json:"id"`
	CommunityID string    `json:"community_id"`
	AuthorID    string    `json:"author_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

func newPostResponse(post domain.Post) PostResponse {
	return PostResponse{
		ID:          post.ID,
		CommunityID: post.CommunityID,
		AuthorID:    post.AuthorID,
		Content:     post.Content,
		CreatedAt:   post.CreatedAt,
	}
}

// ReportPostRequest carries the reporter's reason.
type ReportPostRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ReportReasonResponse is one reporter's entry on a report.
type ReportReasonResponse struct {
	UserID     string    `json:"user_id"`
	Reason     string    `json:"reason"`
	ReportedAt time.Time `json:"reported_at"`
}

// ReportResponse describes a report of a post.
type ReportResponse struct {
	ID         string                 `json:"id"`
	PostID     string                 `json:"post_id"`
	ReportedBy []string               `json:"reported_by"`
	Reasons    []ReportReasonResponse `json:"reasons"`
	CreatedAt  time.Time              `json:"created_at"`
}

func newReportResponse(report domain.Report) ReportResponse {
	reasons := make([]ReportReasonResponse, 0, len(report.Reasons))
	for _, r := range report.Reasons {
		reasons = append(reasons, ReportReasonResponse{UserID: r.UserID, Reason: r.Reason, ReportedAt: r.ReportedAt})
	}
	return ReportResponse{
		ID:         report.ID,
		PostID:     report.PostID,
		ReportedBy: nonNil(report.ReportedBy),
		Reasons:    reasons,
		CreatedAt:  report.CreatedAt,
	}
}

// ReportedPostResponse groups every report of a post.
type ReportedPostResponse struct {
	Post    PostResponse     `json:"post"`
	Reports []ReportResponse `json:"reports"`
}

// ReportedPostsResponse wraps the moderation queue of a community.
type ReportedPostsResponse struct {
	ReportedPosts []ReportedPostResponse `json:"reported_posts"`
}

// TargetUserRequest names the user a moderation action applies to.
type TargetUserRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
