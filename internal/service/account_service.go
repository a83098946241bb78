package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/maheshrc27/reelflow/internal/models"
	"github.com/maheshrc27/reelflow/internal/repository"
	"github.com/maheshrc27/reelflow/internal/transfer"
)

type AccountService interface {
	Create(ctx context.Context, userID int64, cmd *transfer.CreateAccount) (*models.Account, error)
	List(ctx context.Context, userID int64) ([]*models.Account, error)
	Rename(ctx context.Context, userID, accountID int64, name string) (*models.Account, error)
	Delete(ctx context.Context, userID, accountID int64) error
}

type accountService struct {
	db    *sql.DB
	u     repository.UserRepository
	a     repository.AccountRepository
	p     repository.PageRepository
	quota *QuotaGuard
}

func NewAccountService(
	db *sql.DB,
	u repository.UserRepository,
	a repository.AccountRepository,
	p repository.PageRepository,
	quota *QuotaGuard) AccountService {
	return &accountService{
		db:    db,
		u:     u,
		a:     a,
		p:     p,
		quota: quota,
	}
}

func (s *accountService) Create(ctx context.Context, userID int64, cmd *transfer.CreateAccount) (*models.Account, error) {
	if cmd == nil || strings.TrimSpace(cmd.Name) == "" {
		return nil, invalid("name", "account name is required")
	}

	var id int64
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		locked, err := s.u.LockByID(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !locked {
			return notFound("user", userID)
		}

		if err := s.quota.CheckAccount(ctx, tx, userID); err != nil {
			return err
		}

		id, err = s.a.Create(ctx, tx, &models.Account{
			UserID: userID,
			Name:   strings.TrimSpace(cmd.Name),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.get(ctx, userID, id)
}

func (s *accountService) List(ctx context.Context, userID int64) ([]*models.Account, error) {
	accounts, err := s.a.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []*models.Account{}
	}
	return accounts, nil
}

func (s *accountService) Rename(ctx context.Context, userID, accountID int64, name string) (*models.Account, error) {
	if strings.TrimSpace(name) == "" {
		return nil, invalid("name", "account name is required")
	}

	ok, err := s.a.UpdateName(ctx, accountID, userID, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("account", accountID)
	}
	return s.get(ctx, userID, accountID)
}

// Delete removes the account and all of its pages. Posts that referenced
// them stay in history.
func (s *accountService) Delete(ctx context.Context, userID, accountID int64) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		locked, err := s.a.LockByID(ctx, tx, accountID, userID)
		if err != nil {
			return err
		}
		if !locked {
			return notFound("account", accountID)
		}

		if _, err := s.p.RemoveByAccountID(ctx, tx, accountID); err != nil {
			return err
		}

		ok, err := s.a.Remove(ctx, tx, accountID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("account", accountID)
		}
		return nil
	})
}

func (s *accountService) get(ctx context.Context, userID, accountID int64) (*models.Account, error) {
	account, err := s.a.GetByID(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, notFound("account", accountID)
	}
	return account, nil
}
