package domain

import (
	"slices"
	"time"
)

// Community groups members, moderators and posts under a unique name.
type Community struct {
	ID          string
	Name        string
	Description string
	Members     []string
	Moderators  []string
	BannedUsers []string
	RuleIDs     []string
	CreatedAt   time.Time
}

func (c Community) IsMember(userID string) bool {
	return slices.Contains(c.Members, userID)
}

func (c Community) IsModerator(userID string) bool {
	return slices.Contains(c.Moderators, userID)
}

func (c Community) IsBanned(userID string) bool {
	return slices.Contains(c.BannedUsers, userID)
}

// Post is a piece of content published inside a community.
type Post struct {
	ID          string
	CommunityID string
	AuthorID    string
	Content     string
	CreatedAt   time.Time
}

// ReportReason is one reporter's explanation attached to a report.
type ReportReason struct {
	UserID     string    `json:"user_id"`
	Reason     string    `json:"reason"`
	ReportedAt time.Time `json:"reported_at"`
}

// Report aggregates every report filed against a single post.
type Report struct {
	ID          string
	CommunityID string
	PostID      string
	ReportedBy  []string
	Reasons     []ReportReason
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasReporter reports whether the user already filed a report.
func (r Report) HasReporter(userID string) bool {
	return slices.Contains(r.ReportedBy, userID)
}

// ReportedPost pairs a post with the reports filed against it.
type ReportedPost struct {
	Post    Post
	Reports []Report
}
