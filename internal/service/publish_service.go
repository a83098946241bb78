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
)

const (
	DefaultDescription    = "Check out this video!"
	DefaultPublishTimeout = 5 * time.Minute
	maxStoredError        = 1000
)

// ErrClaimLost means the post left the publishing state before its outcome
// could be recorded.
var ErrClaimLost = errors.New("post is no longer publishing")

type PublishService interface {
	// Publish runs one attempt for a post that is already claimed and records
	// the terminal status. A nil error means the status returned is stored.
	Publish(ctx context.Context, post *models.Post) (string, error)
}

type publishService struct {
	posts    repository.PostRepository
	pages    repository.PageRepository
	uploads  repository.UploadRepository
	blobs    BlobStore
	codec    models.Decrypter
	facebook FacebookService
	timeout  time.Duration
	now      func() time.Time
}

func NewPublishService(
	posts repository.PostRepository,
	pages repository.PageRepository,
	uploads repository.UploadRepository,
	blobs BlobStore,
	codec models.Decrypter,
	facebook FacebookService,
	timeout time.Duration) PublishService {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &publishService{
		posts:    posts,
		pages:    pages,
		uploads:  uploads,
		blobs:    blobs,
		codec:    codec,
		facebook: facebook,
		timeout:  timeout,
		now:      time.Now,
	}
}

func (s *publishService) Publish(ctx context.Context, post *models.Post) (string, error) {
	if post.Status != models.PostStatusPublishing {
		return "", fmt.Errorf("post %d is %s: %w", post.ID, post.Status, ErrClaimLost)
	}

	// The lease is counted from here, however long the claim waited for a
	// worker. Losing it means the post was already failed as stale.
	renewedAt := s.now()
	renewed, err := s.posts.Renew(context.WithoutCancel(ctx), post.ID, renewedAt)
	if err != nil {
		return "", fmt.Errorf("renew claim on post %d: %w", post.ID, err)
	}
	if !renewed {
		return "", fmt.Errorf("post %d: %w", post.ID, ErrClaimLost)
	}
	post.ClaimedAt = &renewedAt

	externalID, upload, attemptErr := s.attempt(ctx, post)

	// The outcome has to be written even if the caller gave up on ctx.
	storeCtx := context.WithoutCancel(ctx)

	if attemptErr != nil {
		slog.Info("publish failed", "post_id", post.ID, "error", attemptErr.Error())
		ok, err := s.posts.MarkFailed(storeCtx, post.ID, truncate(attemptErr.Error(), maxStoredError), s.now())
		if err != nil {
			return "", fmt.Errorf("mark post %d failed: %w", post.ID, err)
		}
		if !ok {
			return "", fmt.Errorf("post %d: %w", post.ID, ErrClaimLost)
		}
		return models.PostStatusFailed, nil
	}

	ok, err := s.posts.MarkPublished(storeCtx, post.ID, externalID, s.now())
	if err != nil {
		return "", fmt.Errorf("mark post %d published: %w", post.ID, err)
	}
	if !ok {
		return "", fmt.Errorf("post %d: %w", post.ID, ErrClaimLost)
	}

	s.consumeUpload(storeCtx, upload)
	return models.PostStatusPublished, nil
}

func (s *publishService) attempt(ctx context.Context, post *models.Post) (string, *models.Upload, error) {
	if post.PageID == nil {
		return "", nil, &PublishError{Message: "page no longer exists"}
	}
	if post.UploadID == nil {
		return "", nil, &PublishError{Message: "upload no longer exists"}
	}

	page, err := s.pages.GetByID(ctx, *post.PageID)
	if err != nil {
		return "", nil, &PublishError{Message: "load page", Err: err}
	}
	if page == nil {
		return "", nil, &PublishError{Message: "page no longer exists"}
	}

	upload, err := s.uploads.GetByID(ctx, *post.UploadID)
	if err != nil {
		return "", nil, &PublishError{Message: "load upload", Err: err}
	}
	if upload == nil {
		return "", nil, &PublishError{Message: "upload no longer exists"}
	}

	token, err := page.DecryptAccessToken(s.codec)
	if err != nil {
		return "", nil, err
	}

	media, err := s.blobs.Get(ctx, upload.StorageKey)
	if err != nil {
		return "", nil, &PublishError{Message: "open upload", Err: err}
	}
	defer media.Close()

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	description := post.Caption
	if strings.TrimSpace(description) == "" {
		description = DefaultDescription
	}

	externalID, err := s.facebook.PublishVideo(callCtx, &PublishRequest{
		PageID:      page.PageID,
		AccessToken: token,
		Description: description,
		FileName:    upload.OriginalName,
		ContentType: upload.MimeType,
		Media:       media,
	})
	if err != nil {
		return "", nil, err
	}
	return externalID, upload, nil
}

// consumeUpload removes a published upload. The post is already published,
// so failures here are only logged.
func (s *publishService) consumeUpload(ctx context.Context, upload *models.Upload) {
	if err := s.uploads.Remove(ctx, upload.ID); err != nil {
		slog.Info("remove upload record", "upload_id", upload.ID, "error", err.Error())
		return
	}
	if err := s.blobs.Delete(ctx, upload.StorageKey); err != nil {
		slog.Info("remove upload blob", "upload_id", upload.ID, "key", upload.StorageKey, "error", err.Error())
	}
}
