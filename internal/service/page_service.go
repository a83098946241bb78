package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/maheshrc27/reelflow/internal/models"
	"github.com/maheshrc27/reelflow/internal/repository"
	"github.com/maheshrc27/reelflow/internal/transfer"
)

// Codec seals and opens credential fields.
type Codec interface {
	models.Decrypter
	Encrypt(plaintext string) (string, error)
}

// PageView is what callers get back for a page. Credentials never leave the
// service, sealed or not.
type PageView struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"account_id"`
	Name      string    `json:"name"`
	PageID    string    `json:"page_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newPageView(p *models.Page) *PageView {
	return &PageView{
		ID:        p.ID,
		AccountID: p.AccountID,
		Name:      p.Name,
		PageID:    p.PageID,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type PageService interface {
	Create(ctx context.Context, userID int64, cmd *transfer.CreatePage) (*PageView, error)
	// List returns every page of the user, or of one account when accountID
	// is not zero.
	List(ctx context.Context, userID, accountID int64) ([]*PageView, error)
	Update(ctx context.Context, userID, pageID int64, cmd *transfer.UpdatePage) (*PageView, error)
	Delete(ctx context.Context, userID, pageID int64) error
}

type pageService struct {
	db    *sql.DB
	a     repository.AccountRepository
	p     repository.PageRepository
	quota *QuotaGuard
	codec Codec
}

func NewPageService(
	db *sql.DB,
	a repository.AccountRepository,
	p repository.PageRepository,
	quota *QuotaGuard,
	codec Codec) PageService {
	return &pageService{
		db:    db,
		a:     a,
		p:     p,
		quota: quota,
		codec: codec,
	}
}

func (s *pageService) Create(ctx context.Context, userID int64, cmd *transfer.CreatePage) (*PageView, error) {
	if cmd == nil {
		return nil, invalid("", "page data is required")
	}
	required := []struct{ field, value string }{
		{"name", cmd.Name},
		{"page_id", cmd.PageID},
		{"app_id", cmd.AppID},
		{"app_secret", cmd.AppSecret},
		{"access_token", cmd.AccessToken},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return nil, invalid(r.field, "is required")
		}
	}
	if cmd.AccountID <= 0 {
		return nil, invalid("account_id", "is required")
	}

	page := &models.Page{
		UserID:    userID,
		AccountID: cmd.AccountID,
		Name:      strings.TrimSpace(cmd.Name),
		PageID:    strings.TrimSpace(cmd.PageID),
	}
	if err := s.seal(page, cmd.AppID, cmd.AppSecret, cmd.AccessToken); err != nil {
		return nil, err
	}

	var id int64
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		locked, err := s.a.LockByID(ctx, tx, cmd.AccountID, userID)
		if err != nil {
			return err
		}
		if !locked {
			return notFound("account", cmd.AccountID)
		}

		if err := s.quota.CheckPage(ctx, tx, cmd.AccountID); err != nil {
			return err
		}

		id, err = s.p.Create(ctx, tx, page)
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.view(ctx, userID, id)
}

func (s *pageService) List(ctx context.Context, userID, accountID int64) ([]*PageView, error) {
	var (
		pages []*models.Page
		err   error
	)
	if accountID == 0 {
		pages, err = s.p.ListByUserID(ctx, userID)
	} else {
		account, aerr := s.a.GetByID(ctx, accountID, userID)
		if aerr != nil {
			return nil, aerr
		}
		if account == nil {
			return nil, notFound("account", accountID)
		}
		pages, err = s.p.ListByAccountID(ctx, accountID, userID)
	}
	if err != nil {
		return nil, err
	}

	views := make([]*PageView, 0, len(pages))
	for _, p := range pages {
		views = append(views, newPageView(p))
	}
	return views, nil
}

func (s *pageService) Update(ctx context.Context, userID, pageID int64, cmd *transfer.UpdatePage) (*PageView, error) {
	if cmd == nil {
		return nil, invalid("", "page data is required")
	}

	page := &models.Page{
		ID:     pageID,
		UserID: userID,
		Name:   strings.TrimSpace(cmd.Name),
		PageID: strings.TrimSpace(cmd.PageID),
	}
	if err := s.seal(page, cmd.AppID, cmd.AppSecret, cmd.AccessToken); err != nil {
		return nil, err
	}

	ok, err := s.p.Update(ctx, page)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("page", pageID)
	}
	return s.view(ctx, userID, pageID)
}

func (s *pageService) Delete(ctx context.Context, userID, pageID int64) error {
	ok, err := s.p.Remove(ctx, pageID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("page", pageID)
	}
	return nil
}

// seal encrypts the non-empty credentials into page. Empty values stay empty
// so that an update leaves the stored field alone.
func (s *pageService) seal(page *models.Page, appID, appSecret, accessToken string) error {
	fields := []struct {
		plain string
		dst   *string
	}{
		{appID, &page.AppID},
		{appSecret, &page.AppSecret},
		{accessToken, &page.AccessToken},
	}
	for _, f := range fields {
		if f.plain == "" {
			continue
		}
		sealed, err := s.codec.Encrypt(f.plain)
		if err != nil {
			return err
		}
		*f.dst = sealed
	}
	return nil
}

func (s *pageService) view(ctx context.Context, userID, pageID int64) (*PageView, error) {
	page, err := s.p.GetByIDForUser(ctx, pageID, userID)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, notFound("page", pageID)
	}
	return newPageView(page), nil
}
