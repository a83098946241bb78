package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/reelflow/internal/models"
)

type AccountRepository interface {
	Create(ctx context.Context, tx *sql.Tx, account *models.Account) (int64, error)
	GetByID(ctx context.Context, id, userID int64) (*models.Account, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Account, error)
	CountByUserID(ctx context.Context, tx *sql.Tx, userID int64) (int, error)
	LockByID(ctx context.Context, tx *sql.Tx, id, userID int64) (bool, error)
	UpdateName(ctx context.Context, id, userID int64, name string) (bool, error)
	Remove(ctx context.Context, tx *sql.Tx, id, userID int64) (bool, error)
}

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, tx *sql.Tx, account *models.Account) (int64, error) {
	query := `
		INSERT INTO accounts (user_id, name)
		VALUES ($1, $2)
		RETURNING id
	`

	var id int64
	err := conn(r.db, tx).QueryRowContext(ctx, query, account.UserID, account.Name).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *accountRepository) GetByID(ctx context.Context, id, userID int64) (*models.Account, error) {
	query := `SELECT id, user_id, name, created_at, updated_at FROM accounts WHERE id = $1 AND user_id = $2`

	var a models.Account
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(&a.ID, &a.UserID, &a.Name, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &a, nil
}

func (r *accountRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Account, error) {
	query := `SELECT id, user_id, name, created_at, updated_at FROM accounts WHERE user_id = $1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.CreatedAt, &a.UpdatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, &a)
	}
	return accounts, rows.Err()
}

func (r *accountRepository) CountByUserID(ctx context.Context, tx *sql.Tx, userID int64) (int, error) {
	var count int
	err := conn(r.db, tx).QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts WHERE user_id = $1", userID).Scan(&count)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return count, nil
}

// LockByID locks an account owned by userID for the rest of tx.
func (r *accountRepository) LockByID(ctx context.Context, tx *sql.Tx, id, userID int64) (bool, error) {
	var locked int64
	err := tx.QueryRowContext(ctx, "SELECT id FROM accounts WHERE id = $1 AND user_id = $2 FOR UPDATE", id, userID).Scan(&locked)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}
	return true, nil
}

func (r *accountRepository) UpdateName(ctx context.Context, id, userID int64, name string) (bool, error) {
	query := `
		UPDATE accounts
		SET name = $3,
			updated_at = $4
		WHERE id = $1 AND user_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, id, userID, name, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affectedOne(res)
}

func (r *accountRepository) Remove(ctx context.Context, tx *sql.Tx, id, userID int64) (bool, error) {
	res, err := conn(r.db, tx).ExecContext(ctx, `DELETE FROM accounts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affectedOne(res)
}
