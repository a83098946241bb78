package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/reelflow/internal/models"
)

type PageRepository interface {
	Create(ctx context.Context, tx *sql.Tx, page *models.Page) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Page, error)
	GetByIDForUser(ctx context.Context, id, userID int64) (*models.Page, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Page, error)
	ListByAccountID(ctx context.Context, accountID, userID int64) ([]*models.Page, error)
	CountByAccountID(ctx context.Context, tx *sql.Tx, accountID int64) (int, error)
	Update(ctx context.Context, page *models.Page) (bool, error)
	Remove(ctx context.Context, id, userID int64) (bool, error)
	RemoveByAccountID(ctx context.Context, tx *sql.Tx, accountID int64) (int64, error)
}

type pageRepository struct {
	db *sql.DB
}

func NewPageRepository(db *sql.DB) PageRepository {
	return &pageRepository{db: db}
}

const pageColumns = `id, user_id, account_id, name, page_id, app_id, app_secret, access_token, created_at, updated_at`

func scanPage(s scanner) (*models.Page, error) {
	var p models.Page
	err := s.Scan(&p.ID, &p.UserID, &p.AccountID, &p.Name, &p.PageID,
		&p.AppID, &p.AppSecret, &p.AccessToken, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create stores the page as given; credential fields must already be sealed.
func (r *pageRepository) Create(ctx context.Context, tx *sql.Tx, page *models.Page) (int64, error) {
	insertQuery := `
		INSERT INTO pages(
			user_id,
			account_id,
			name,
			page_id,
			app_id,
			app_secret,
			access_token
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	err := conn(r.db, tx).QueryRowContext(ctx, insertQuery,
		page.UserID,
		page.AccountID,
		page.Name,
		page.PageID,
		page.AppID,
		page.AppSecret,
		page.AccessToken,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *pageRepository) GetByID(ctx context.Context, id int64) (*models.Page, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE id = $1`, id)
	page, err := scanPage(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return page, nil
}

func (r *pageRepository) GetByIDForUser(ctx context.Context, id, userID int64) (*models.Page, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE id = $1 AND user_id = $2`, id, userID)
	page, err := scanPage(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return page, nil
}

func (r *pageRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Page, error) {
	return r.list(ctx, `SELECT `+pageColumns+` FROM pages WHERE user_id = $1 ORDER BY created_at ASC, id ASC`, userID)
}

func (r *pageRepository) ListByAccountID(ctx context.Context, accountID, userID int64) ([]*models.Page, error) {
	return r.list(ctx, `SELECT `+pageColumns+` FROM pages WHERE account_id = $1 AND user_id = $2 ORDER BY created_at ASC, id ASC`, accountID, userID)
}

func (r *pageRepository) list(ctx context.Context, query string, args ...any) ([]*models.Page, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var pages []*models.Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

func (r *pageRepository) CountByAccountID(ctx context.Context, tx *sql.Tx, accountID int64) (int, error) {
	var count int
	err := conn(r.db, tx).QueryRowContext(ctx, "SELECT COUNT(*) FROM pages WHERE account_id = $1", accountID).Scan(&count)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return count, nil
}

// Update overwrites only the non-empty fields of page.
func (r *pageRepository) Update(ctx context.Context, page *models.Page) (bool, error) {
	query := `
		UPDATE pages
		SET
			name = COALESCE(NULLIF($3, ''), name),
			page_id = COALESCE(NULLIF($4, ''), page_id),
			app_id = COALESCE(NULLIF($5, ''), app_id),
			app_secret = COALESCE(NULLIF($6, ''), app_secret),
			access_token = COALESCE(NULLIF($7, ''), access_token),
			updated_at = $8
		WHERE id = $1 AND user_id = $2
	`
	res, err := r.db.ExecContext(ctx, query,
		page.ID, page.UserID, page.Name, page.PageID,
		page.AppID, page.AppSecret, page.AccessToken, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affectedOne(res)
}

func (r *pageRepository) Remove(ctx context.Context, id, userID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pages WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affectedOne(res)
}

func (r *pageRepository) RemoveByAccountID(ctx context.Context, tx *sql.Tx, accountID int64) (int64, error) {
	res, err := conn(r.db, tx).ExecContext(ctx, `DELETE FROM pages WHERE account_id = $1`, accountID)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return res.RowsAffected()
}
