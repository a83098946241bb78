package service

import (
	"context"
	"database/sql"

	"github.com/maheshrc27/reelflow/internal/repository"
)

const (
	MaxAccountsPerUser = 5
	MaxPagesPerAccount = 10
)

// QuotaGuard caps accounts per user and pages per account. The Check
// methods count inside the caller's transaction, which must already hold the
// parent row lock so that concurrent creators cannot both pass.
type QuotaGuard struct {
	accounts repository.AccountRepository
	pages    repository.PageRepository

	MaxAccounts        int
	MaxPagesPerAccount int
}

func NewQuotaGuard(accounts repository.AccountRepository, pages repository.PageRepository) *QuotaGuard {
	return &QuotaGuard{
		accounts:           accounts,
		pages:              pages,
		MaxAccounts:        MaxAccountsPerUser,
		MaxPagesPerAccount: MaxPagesPerAccount,
	}
}

func (g *QuotaGuard) CanCreateAccount(ctx context.Context, userID int64) (bool, error) {
	n, err := g.accounts.CountByUserID(ctx, nil, userID)
	if err != nil {
		return false, err
	}
	return n < g.MaxAccounts, nil
}

func (g *QuotaGuard) CanCreatePage(ctx context.Context, accountID int64) (bool, error) {
	n, err := g.pages.CountByAccountID(ctx, nil, accountID)
	if err != nil {
		return false, err
	}
	return n < g.MaxPagesPerAccount, nil
}

func (g *QuotaGuard) CheckAccount(ctx context.Context, tx *sql.Tx, userID int64) error {
	n, err := g.accounts.CountByUserID(ctx, tx, userID)
	if err != nil {
		return err
	}
	if n >= g.MaxAccounts {
		return &QuotaExceededError{Resource: "accounts", Limit: g.MaxAccounts}
	}
	return nil
}

func (g *QuotaGuard) CheckPage(ctx context.Context, tx *sql.Tx, accountID int64) error {
	n, err := g.pages.CountByAccountID(ctx, tx, accountID)
	if err != nil {
		return err
	}
	if n >= g.MaxPagesPerAccount {
		return &QuotaExceededError{Resource: "pages", Limit: g.MaxPagesPerAccount}
	}
	return nil
}
