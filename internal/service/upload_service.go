package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/h2non/filetype"
	"github.com/maheshrc27/reelflow/internal/models"
	"github.com/maheshrc27/reelflow/internal/repository"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const DefaultMaxUploadBytes = 100 << 20

// sniffLen covers every magic number filetype knows about.
const sniffLen = 262

var allowedVideoTypes = map[string]struct{}{
	"mp4": {}, "m4v": {}, "mov": {}, "webm": {}, "mkv": {}, "avi": {},
}

type UploadService interface {
	Create(ctx context.Context, userID int64, filename string, body io.Reader, size int64) (*models.Upload, error)
	List(ctx context.Context, userID int64) ([]*models.Upload, error)
	Delete(ctx context.Context, userID, uploadID int64) error
}

type uploadService struct {
	u        repository.UploadRepository
	blobs    BlobStore
	maxBytes int64
	now      func() time.Time
}

func NewUploadService(u repository.UploadRepository, blobs BlobStore, maxBytes int64) UploadService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &uploadService{
		u:        u,
		blobs:    blobs,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

func (s *uploadService) Create(ctx context.Context, userID int64, filename string, body io.Reader, size int64) (*models.Upload, error) {
	if size <= 0 {
		return nil, invalid("video", "file is empty")
	}
	if size > s.maxBytes {
		return nil, invalid("video", fmt.Sprintf("file is larger than %d bytes", s.maxBytes))
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	kind, err := filetype.Match(head)
	if err != nil || !filetype.IsVideo(head) {
		return nil, invalid("video", "file is not a video")
	}
	if _, ok := allowedVideoTypes[kind.Extension]; !ok {
		return nil, invalid("video", fmt.Sprintf("video type %s is not allowed", kind.Extension))
	}

	content, err := rewind(body, head)
	if err != nil {
		return nil, err
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	key := id + "." + kind.Extension

	if err := s.blobs.Put(ctx, key, io.LimitReader(content, s.maxBytes), size, kind.MIME.Value); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	upload := &models.Upload{
		UserID:       userID,
		OriginalName: filepath.Base(filename),
		StorageKey:   key,
		MimeType:     kind.MIME.Value,
		Size:         size,
	}
	upload.ID, err = s.u.Create(ctx, nil, upload)
	if err != nil {
		if derr := s.blobs.Delete(context.WithoutCancel(ctx), key); derr != nil {
			slog.Info("remove orphaned blob", "key", key, "error", derr.Error())
		}
		return nil, err
	}
	upload.CreatedAt = s.now()
	return upload, nil
}

// rewind hands back a reader positioned at the start of the upload.
func rewind(body io.Reader, head []byte) (io.Reader, error) {
	if seeker, ok := body.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind upload: %w", err)
		}
		return body, nil
	}
	return io.MultiReader(bytes.NewReader(head), body), nil
}

func (s *uploadService) List(ctx context.Context, userID int64) ([]*models.Upload, error) {
	uploads, err := s.u.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if uploads == nil {
		uploads = []*models.Upload{}
	}
	return uploads, nil
}

// Delete refuses while a pending post still needs the file.
func (s *uploadService) Delete(ctx context.Context, userID, uploadID int64) error {
	upload, err := s.u.GetByIDForUser(ctx, uploadID, userID)
	if err != nil {
		return err
	}
	if upload == nil {
		return notFound("upload", uploadID)
	}

	inUse, err := s.u.InUse(ctx, uploadID)
	if err != nil {
		return err
	}
	if inUse {
		return invalid("upload_id", "upload is used by a pending post")
	}

	if err := s.u.Remove(ctx, uploadID); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, upload.StorageKey); err != nil {
		slog.Info("remove upload blob", "key", upload.StorageKey, "error", err.Error())
	}
	return nil
}
