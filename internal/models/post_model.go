package models

import "time"

// Post references are nullable: deleting an account, page or upload keeps
// the post row for history.
type Post struct {
	ID             int64      `db:"id" json:"id"`
	UserID         int64      `db:"user_id" json:"user_id"`
	AccountID      *int64     `db:"account_id" json:"account_id"`
	PageID         *int64     `db:"page_id" json:"page_id"`
	UploadID       *int64     `db:"upload_id" json:"upload_id"`
	Caption        string     `db:"caption" json:"caption"`
	Status         string     `db:"status" json:"status"` // scheduled, publishing, published, failed
	ScheduledTime  *time.Time `db:"scheduled_time" json:"scheduled_time,omitempty"`
	ClaimedAt      *time.Time `db:"claimed_at" json:"-"`
	PublishedAt    *time.Time `db:"published_at" json:"published_at,omitempty"`
	ExternalPostID string     `db:"external_post_id" json:"post_id,omitempty"`
	Error          string     `db:"error" json:"error,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

const (
	PostStatusScheduled  = "scheduled"
	PostStatusPublishing = "publishing"
	PostStatusPublished  = "published"
	PostStatusFailed     = "failed"
)

// IsTerminal reports whether the post can no longer change state.
func (p *Post) IsTerminal() bool {
	return p.Status == PostStatusPublished || p.Status == PostStatusFailed
}
