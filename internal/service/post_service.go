package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maheshrc27/reelflow/internal/models"
	"github.com/maheshrc27/reelflow/internal/repository"
	"github.com/maheshrc27/reelflow/internal/transfer"
)

const errUploadPending = "upload is already used by a pending post"

type PostService interface {
	// Create schedules the post, or publishes it before returning when no
	// scheduled time is given.
	Create(ctx context.Context, userID int64, cmd *transfer.CreatePost) (*models.Post, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	Get(ctx context.Context, userID, postID int64) (*models.Post, error)
	Delete(ctx context.Context, userID, postID int64) error
}

type postService struct {
	pr        repository.PostRepository
	ac        repository.AccountRepository
	pg        repository.PageRepository
	up        repository.UploadRepository
	publisher PublishService
	now       func() time.Time
}

func NewPostService(
	pr repository.PostRepository,
	ac repository.AccountRepository,
	pg repository.PageRepository,
	up repository.UploadRepository,
	publisher PublishService) PostService {
	return &postService{
		pr:        pr,
		ac:        ac,
		pg:        pg,
		up:        up,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *postService) Create(ctx context.Context, userID int64, cmd *transfer.CreatePost) (*models.Post, error) {
	if err := s.validate(ctx, userID, cmd); err != nil {
		return nil, err
	}

	accountID, pageID, uploadID := cmd.AccountID, cmd.PageID, cmd.UploadID
	post := &models.Post{
		UserID:    userID,
		AccountID: &accountID,
		PageID:    &pageID,
		UploadID:  &uploadID,
		Caption:   strings.TrimSpace(cmd.Caption),
	}

	if cmd.ScheduledTime != nil {
		when := cmd.ScheduledTime.UTC()
		post.Status = models.PostStatusScheduled
		post.ScheduledTime = &when
	} else {
		// Claimed from the start so the scheduler can never pick it up.
		claimedAt := s.now()
		post.Status = models.PostStatusPublishing
		post.ClaimedAt = &claimedAt
	}

	id, err := s.pr.Create(ctx, nil, post)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, invalid("upload_id", errUploadPending)
	}
	if err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}
	post.ID = id

	if post.Status == models.PostStatusPublishing {
		status, err := s.publisher.Publish(ctx, post)
		if err != nil {
			return nil, err
		}
		slog.Info("immediate publish finished", "post_id", id, "status", status)
	}

	return s.Get(ctx, userID, id)
}

func (s *postService) validate(ctx context.Context, userID int64, cmd *transfer.CreatePost) error {
	if cmd == nil {
		return invalid("", "post data is required")
	}
	if cmd.AccountID <= 0 {
		return invalid("account_id", "is required")
	}
	if cmd.PageID <= 0 {
		return invalid("page_id", "is required")
	}
	if cmd.UploadID <= 0 {
		return invalid("upload_id", "is required")
	}
	if cmd.ScheduledTime != nil && !cmd.ScheduledTime.After(s.now()) {
		return invalid("scheduled_time", "must be in the future")
	}

	account, err := s.ac.GetByID(ctx, cmd.AccountID, userID)
	if err != nil {
		return err
	}
	if account == nil {
		return notFound("account", cmd.AccountID)
	}

	page, err := s.pg.GetByIDForUser(ctx, cmd.PageID, userID)
	if err != nil {
		return err
	}
	if page == nil {
		return notFound("page", cmd.PageID)
	}
	if page.AccountID != account.ID {
		return invalid("page_id", "page does not belong to the account")
	}

	upload, err := s.up.GetByIDForUser(ctx, cmd.UploadID, userID)
	if err != nil {
		return err
	}
	if upload == nil {
		return notFound("upload", cmd.UploadID)
	}
	inUse, err := s.up.InUse(ctx, cmd.UploadID)
	if err != nil {
		return err
	}
	if inUse {
		return invalid("upload_id", errUploadPending)
	}
	return nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	posts, err := s.pr.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, nil
}

func (s *postService) Get(ctx context.Context, userID, postID int64) (*models.Post, error) {
	post, err := s.pr.GetByIDForUser(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, notFound("post", postID)
	}
	return post, nil
}

// Delete refuses while a publish is in flight.
func (s *postService) Delete(ctx context.Context, userID, postID int64) error {
	post, err := s.Get(ctx, userID, postID)
	if err != nil {
		return err
	}
	if post.Status == models.PostStatusPublishing {
		return invalid("post_id", "post is being published")
	}

	ok, err := s.pr.Remove(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return invalid("post_id", "post is being published")
	}
	return nil
}
