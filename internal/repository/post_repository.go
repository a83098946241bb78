package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/reelflow/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	GetByIDForUser(ctx context.Context, id, userID int64) (*models.Post, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Post, error)
	FindDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error)
	Claim(ctx context.Context, id int64, now time.Time) (bool, error)
	Renew(ctx context.Context, id int64, now time.Time) (bool, error)
	ReleaseClaim(ctx context.Context, id int64) (bool, error)
	MarkPublished(ctx context.Context, id int64, externalPostID string, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id int64, message string, at time.Time) (bool, error)
	FailStale(ctx context.Context, claimedBefore time.Time, message string, at time.Time) (int64, error)
	Remove(ctx context.Context, id, userID int64) (bool, error)
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const defaultDueLimit = 25

const postColumns = `id, user_id, account_id, page_id, upload_id, caption, status, scheduled_time,
	claimed_at, published_at, external_post_id, error, created_at, updated_at`

func scanPost(s scanner) (*models.Post, error) {
	var (
		post                                  models.Post
		accountID, pageID, uploadID           sql.NullInt64
		scheduledTime, claimedAt, publishedAt sql.NullTime
		externalPostID, errorMessage          sql.NullString
	)
	err := s.Scan(&post.ID, &post.UserID, &accountID, &pageID, &uploadID, &post.Caption, &post.Status,
		&scheduledTime, &claimedAt, &publishedAt, &externalPostID, &errorMessage, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}

	post.AccountID = int64Ptr(accountID)
	post.PageID = int64Ptr(pageID)
	post.UploadID = int64Ptr(uploadID)
	post.ScheduledTime = timePtr(scheduledTime)
	post.ClaimedAt = timePtr(claimedAt)
	post.PublishedAt = timePtr(publishedAt)
	post.ExternalPostID = externalPostID.String
	post.Error = errorMessage.String
	return &post, nil
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// Create inserts a post in its initial state: scheduled with a
// scheduled_time, or publishing with claimed_at set for an immediate publish.
// ErrDuplicate means another pending post already holds the upload.
func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (user_id, account_id, page_id, upload_id, caption, status, scheduled_time, claimed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var id int64
	err := conn(r.db, tx).QueryRowContext(ctx, query,
		post.UserID, post.AccountID, post.PageID, post.UploadID,
		post.Caption, post.Status, post.ScheduledTime, post.ClaimedAt).Scan(&id)
	if isUniqueViolation(err) {
		return 0, ErrDuplicate
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) GetByIDForUser(ctx context.Context, id, userID int64) (*models.Post, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	return r.list(ctx, `SELECT `+postColumns+` FROM posts WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
}

// FindDue returns scheduled posts whose time has come, oldest first.
func (r *postRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error) {
	if limit <= 0 {
		limit = defaultDueLimit
	}
	query := `
		SELECT ` + postColumns + `
		  FROM posts
		 WHERE status = 'scheduled'
		   AND scheduled_time <= $1
		 ORDER BY scheduled_time ASC, id ASC
		 LIMIT $2
	`
	return r.list(ctx, query, now, limit)
}

func (r *postRepository) list(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

// Claim moves a due post from scheduled to publishing. Only one caller can
// win the compare-and-swap; a false result means someone else holds it or it
// is no longer due.
func (r *postRepository) Claim(ctx context.Context, id int64, now time.Time) (bool, error) {
	query := `
		UPDATE posts
		   SET status = 'publishing',
		       claimed_at = $2,
		       updated_at = $2
		 WHERE id = $1
		   AND status = 'scheduled'
		   AND scheduled_time <= $2
	`
	res, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affectedOne(res)
}

// Renew restarts the lease of a claim that is still publishing.
func (r *postRepository) Renew(ctx context.Context, id int64, now time.Time) (bool, error) {
	query := `
		UPDATE posts
		   SET claimed_at = $2,
		       updated_at = $2
		 WHERE id = $1
		   AND status = 'publishing'
	`
	res, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affectedOne(res)
}

// ReleaseClaim hands a claimed post back to the scheduler. It must only be
// used when nothing was sent to the publish API.
func (r *postRepository) ReleaseClaim(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE posts
		   SET status = 'scheduled',
		       claimed_at = NULL,
		       updated_at = NOW()
		 WHERE id = $1
		   AND status = 'publishing'
		   AND scheduled_time IS NOT NULL
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affectedOne(res)
}

func (r *postRepository) MarkPublished(ctx context.Context, id int64, externalPostID string, at time.Time) (bool, error) {
	query := `
		UPDATE posts
		   SET status = 'published',
		       published_at = $3,
		       external_post_id = $2,
		       error = NULL,
		       updated_at = $3
		 WHERE id = $1
		   AND status = 'publishing'
	`
	res, err := r.db.ExecContext(ctx, query, id, externalPostID, at)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affectedOne(res)
}

func (r *postRepository) MarkFailed(ctx context.Context, id int64, message string, at time.Time) (bool, error) {
	query := `
		UPDATE posts
		   SET status = 'failed',
		       error = $2,
		       published_at = NULL,
		       external_post_id = NULL,
		       updated_at = $3
		 WHERE id = $1
		   AND status = 'publishing'
	`
	res, err := r.db.ExecContext(ctx, query, id, message, at)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affectedOne(res)
}

// FailStale fails claims that were never finished, e.g. after a crash. They
// are not re-published since the external call may already have happened.
func (r *postRepository) FailStale(ctx context.Context, claimedBefore time.Time, message string, at time.Time) (int64, error) {
	query := `
		UPDATE posts
		   SET status = 'failed',
		       error = $2,
		       updated_at = $3
		 WHERE status = 'publishing'
		   AND claimed_at < $1
	`
	res, err := r.db.ExecContext(ctx, query, claimedBefore, message, at)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return res.RowsAffected()
}

// Remove deletes a post unless it is mid-publish.
func (r *postRepository) Remove(ctx context.Context, id, userID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1 AND user_id = $2 AND status <> 'publishing'`, id, userID)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affectedOne(res)
}
