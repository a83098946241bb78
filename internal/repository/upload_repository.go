package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/reelflow/internal/models"
)

type UploadRepository interface {
	Create(ctx context.Context, tx *sql.Tx, upload *models.Upload) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Upload, error)
	GetByIDForUser(ctx context.Context, id, userID int64) (*models.Upload, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Upload, error)
	InUse(ctx context.Context, id int64) (bool, error)
	Remove(ctx context.Context, id int64) error
}

type uploadRepository struct {
	db *sql.DB
}

func NewUploadRepository(db *sql.DB) UploadRepository {
	return &uploadRepository{db: db}
}

const uploadColumns = `id, user_id, original_name, storage_key, mime_type, size, created_at`

func scanUpload(s scanner) (*models.Upload, error) {
	var u models.Upload
	if err := s.Scan(&u.ID, &u.UserID, &u.OriginalName, &u.StorageKey, &u.MimeType, &u.Size, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *uploadRepository) Create(ctx context.Context, tx *sql.Tx, upload *models.Upload) (int64, error) {
	query := `
		INSERT INTO uploads (user_id, original_name, storage_key, mime_type, size)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := conn(r.db, tx).QueryRowContext(ctx, query,
		upload.UserID, upload.OriginalName, upload.StorageKey, upload.MimeType, upload.Size).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *uploadRepository) GetByID(ctx context.Context, id int64) (*models.Upload, error) {
	upload, err := scanUpload(r.db.QueryRowContext(ctx, `SELECT `+uploadColumns+` FROM uploads WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return upload, nil
}

func (r *uploadRepository) GetByIDForUser(ctx context.Context, id, userID int64) (*models.Upload, error) {
	upload, err := scanUpload(r.db.QueryRowContext(ctx, `SELECT `+uploadColumns+` FROM uploads WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return upload, nil
}

func (r *uploadRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Upload, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+uploadColumns+` FROM uploads WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var uploads []*models.Upload
	for rows.Next() {
		upload, err := scanUpload(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		uploads = append(uploads, upload)
	}
	return uploads, rows.Err()
}

// InUse reports whether a post that has not reached a terminal state still
// references the upload.
func (r *uploadRepository) InUse(ctx context.Context, id int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM posts WHERE upload_id = $1 AND status IN ('scheduled', 'publishing'))`

	var inUse bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&inUse); err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return inUse, nil
}

func (r *uploadRepository) Remove(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM uploads WHERE id = $1`, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
