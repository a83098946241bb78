package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/maheshrc27/reelflow/internal/models"
	"github.com/maheshrc27/reelflow/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccountService(t *testing.T, mem *memDB) (AccountService, func(commit bool)) {
	db, mock := newTxDB(t)
	quota := NewQuotaGuard(fakeAccounts{mem}, fakePages{mem})
	svc := NewAccountService(db, fakeUsers{mem}, fakeAccounts{mem}, fakePages{mem}, quota)
	t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
	return svc, func(commit bool) { expectTx(mock, commit) }
}

func TestAccountService_CreateEnforcesQuota(t *testing.T) {
	ctx := context.Background()
	mem := newMemDB()
	userID := mem.addUser("a@example.com")
	svc, tx := newAccountService(t, mem)

	for i := 1; i <= MaxAccountsPerUser; i++ {
		tx(true)
		account, err := svc.Create(ctx, userID, &transfer.CreateAccount{Name: fmt.Sprintf("account %d", i)})
		require.NoError(t, err, "account %d", i)
		assert.Equal(t, userID, account.UserID)
	}

	tx(false)
	_, err := svc.Create(ctx, userID, &transfer.CreateAccount{Name: "one too many"})
	var quotaErr *QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, "accounts", quotaErr.Resource)
	assert.Equal(t, 5, quotaErr.Limit)

	n, err := fakeAccounts{mem}.CountByUserID(ctx, nil, userID)
	require.NoError(t, err)
	assert.Equal(t, 5, n, "rejected create must not add a row")
}

func TestAccountService_CreateRejectsEmptyName(t *testing.T) {
	mem := newMemDB()
	userID := mem.addUser("a@example.com")
	svc, _ := newAccountService(t, mem)

	_, err := svc.Create(context.Background(), userID, &transfer.CreateAccount{Name: "  "})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestAccountService_DeleteCascadesPages(t *testing.T) {
	ctx := context.Background()
	mem := newMemDB()
	userID := mem.addUser("a@example.com")
	svc, tx := newAccountService(t, mem)

	doomed, _ := fakeAccounts{mem}.Create(ctx, nil, &models.Account{UserID: userID, Name: "doomed"})
	kept, _ := fakeAccounts{mem}.Create(ctx, nil, &models.Account{UserID: userID, Name: "kept"})
	for i := 0; i < 3; i++ {
		fakePages{mem}.Create(ctx, nil, &models.Page{UserID: userID, AccountID: doomed, Name: "p"})
	}
	keptPage, _ := fakePages{mem}.Create(ctx, nil, &models.Page{UserID: userID, AccountID: kept, Name: "p"})

	tx(true)
	require.NoError(t, svc.Delete(ctx, userID, doomed))

	remaining, err := fakePages{mem}.ListByUserID(ctx, userID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, keptPage, remaining[0].ID)

	accounts, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, kept, accounts[0].ID)
}

func TestAccountService_DeleteOtherUsersAccount(t *testing.T) {
	ctx := context.Background()
	mem := newMemDB()
	owner := mem.addUser("owner@example.com")
	intruder := mem.addUser("intruder@example.com")
	svc, tx := newAccountService(t, mem)

	accountID, _ := fakeAccounts{mem}.Create(ctx, nil, &models.Account{UserID: owner, Name: "mine"})

	tx(false)
	err := svc.Delete(ctx, intruder, accountID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = fakeAccounts{mem}.GetByID(ctx, accountID, owner)
	assert.NoError(t, err)
}

func TestAccountService_Rename(t *testing.T) {
	ctx := context.Background()
	mem := newMemDB()
	userID := mem.addUser("a@example.com")
	svc, _ := newAccountService(t, mem)

	accountID, _ := fakeAccounts{mem}.Create(ctx, nil, &models.Account{UserID: userID, Name: "old"})

	account, err := svc.Rename(ctx, userID, accountID, "new")
	require.NoError(t, err)
	assert.Equal(t, "new", account.Name)

	_, err = svc.Rename(ctx, userID, accountID+100, "new")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQuotaGuard_CanCreate(t *testing.T) {
	ctx := context.Background()
	mem := newMemDB()
	userID := mem.addUser("a@example.com")
	guard := NewQuotaGuard(fakeAccounts{mem}, fakePages{mem})
	guard.MaxAccounts = 1
	guard.MaxPagesPerAccount = 1

	ok, err := guard.CanCreateAccount(ctx, userID)
	require.NoError(t, err)
	assert.True(t, ok)

	accountID, _ := fakeAccounts{mem}.Create(ctx, nil, &models.Account{UserID: userID, Name: "a"})
	ok, err = guard.CanCreateAccount(ctx, userID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = guard.CanCreatePage(ctx, accountID)
	require.NoError(t, err)
	assert.True(t, ok)

	fakePages{mem}.Create(ctx, nil, &models.Page{UserID: userID, AccountID: accountID})
	ok, err = guard.CanCreatePage(ctx, accountID)
	require.NoError(t, err)
	assert.False(t, ok)
}
