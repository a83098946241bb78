package service

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/maheshrc27/reelflow/internal/models"
	"github.com/maheshrc27/reelflow/internal/repository"
	"github.com/stretchr/testify/require"
)

// memDB backs the fake repositories. It ignores transactions; tests that
// need them pair it with a sqlmock connection.
type memDB struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*models.User
	accounts map[int64]*models.Account
	pages    map[int64]*models.Page
	uploads  map[int64]*models.Upload
	posts    map[int64]*models.Post
}

func newMemDB() *memDB {
	return &memDB{
		users:    map[int64]*models.User{},
		accounts: map[int64]*models.Account{},
		pages:    map[int64]*models.Page{},
		uploads:  map[int64]*models.Upload{},
		posts:    map[int64]*models.Post{},
	}
}

func (m *memDB) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memDB) addUser(email string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id()
	m.users[id] = &models.User{ID: id, Email: email}
	return id
}

type fakeUsers struct{ *memDB }

func (f fakeUsers) GetByID(ctx context.Context, id int64) (*models.User, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, false, nil
	}
	c := *u
	return &c, true, nil
}

func (f fakeUsers) GetByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			c := *u
			return &c, true, nil
		}
	}
	return nil, false, nil
}

func (f fakeUsers) Create(ctx context.Context, tx *sql.Tx, user *models.User) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return 0, repository.ErrDuplicate
		}
	}
	c := *user
	c.ID = f.id()
	f.users[c.ID] = &c
	return c.ID, nil
}

func (f fakeUsers) LockByID(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.users[id]
	return ok, nil
}

type fakeAccounts struct{ *memDB }

func (f fakeAccounts) Create(ctx context.Context, tx *sql.Tx, account *models.Account) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *account
	c.ID = f.id()
	c.CreatedAt = time.Now()
	f.accounts[c.ID] = &c
	return c.ID, nil
}

func (f fakeAccounts) GetByID(ctx context.Context, id, userID int64) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok || a.UserID != userID {
		return nil, nil
	}
	c := *a
	return &c, nil
}

func (f fakeAccounts) ListByUserID(ctx context.Context, userID int64) ([]*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Account
	for _, a := range f.accounts {
		if a.UserID == userID {
			c := *a
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeAccounts) CountByUserID(ctx context.Context, tx *sql.Tx, userID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.accounts {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f fakeAccounts) LockByID(ctx context.Context, tx *sql.Tx, id, userID int64) (bool, error) {
	a, err := f.GetByID(ctx, id, userID)
	return a != nil, err
}

func (f fakeAccounts) UpdateName(ctx context.Context, id, userID int64, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok || a.UserID != userID {
		return false, nil
	}
	a.Name = name
	return true, nil
}

func (f fakeAccounts) Remove(ctx context.Context, tx *sql.Tx, id, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok || a.UserID != userID {
		return false, nil
	}
	delete(f.accounts, id)
	return true, nil
}

type fakePages struct{ *memDB }

func (f fakePages) Create(ctx context.Context, tx *sql.Tx, page *models.Page) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *page
	c.ID = f.id()
	f.pages[c.ID] = &c
	return c.ID, nil
}

func (f fakePages) GetByID(ctx context.Context, id int64) (*models.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[id]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (f fakePages) GetByIDForUser(ctx context.Context, id, userID int64) (*models.Page, error) {
	p, err := f.GetByID(ctx, id)
	if p == nil || p.UserID != userID {
		return nil, err
	}
	return p, nil
}

func (f fakePages) ListByUserID(ctx context.Context, userID int64) ([]*models.Page, error) {
	return f.filter(func(p *models.Page) bool { return p.UserID == userID }), nil
}

func (f fakePages) ListByAccountID(ctx context.Context, accountID, userID int64) ([]*models.Page, error) {
	return f.filter(func(p *models.Page) bool { return p.AccountID == accountID && p.UserID == userID }), nil
}

func (f fakePages) filter(keep func(*models.Page) bool) []*models.Page {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Page
	for _, p := range f.pages {
		if keep(p) {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f fakePages) CountByAccountID(ctx context.Context, tx *sql.Tx, accountID int64) (int, error) {
	return len(f.filter(func(p *models.Page) bool { return p.AccountID == accountID })), nil
}

func (f fakePages) Update(ctx context.Context, page *models.Page) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[page.ID]
	if !ok || p.UserID != page.UserID {
		return false, nil
	}
	for _, u := range []struct{ src, dst *string }{
		{&page.Name, &p.Name}, {&page.PageID, &p.PageID}, {&page.AppID, &p.AppID},
		{&page.AppSecret, &p.AppSecret}, {&page.AccessToken, &p.AccessToken},
	} {
		if *u.src != "" {
			*u.dst = *u.src
		}
	}
	return true, nil
}

func (f fakePages) Remove(ctx context.Context, id, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[id]
	if !ok || p.UserID != userID {
		return false, nil
	}
	delete(f.pages, id)
	return true, nil
}

func (f fakePages) RemoveByAccountID(ctx context.Context, tx *sql.Tx, accountID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, p := range f.pages {
		if p.AccountID == accountID {
			delete(f.pages, id)
			n++
		}
	}
	return n, nil
}

type fakeUploads struct{ *memDB }

func (f fakeUploads) Create(ctx context.Context, tx *sql.Tx, upload *models.Upload) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *upload
	c.ID = f.id()
	f.uploads[c.ID] = &c
	return c.ID, nil
}

func (f fakeUploads) GetByID(ctx context.Context, id int64) (*models.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.uploads[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (f fakeUploads) GetByIDForUser(ctx context.Context, id, userID int64) (*models.Upload, error) {
	u, err := f.GetByID(ctx, id)
	if u == nil || u.UserID != userID {
		return nil, err
	}
	return u, nil
}

func (f fakeUploads) ListByUserID(ctx context.Context, userID int64) ([]*models.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Upload
	for _, u := range f.uploads {
		if u.UserID == userID {
			c := *u
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f fakeUploads) InUse(ctx context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.posts {
		if p.UploadID != nil && *p.UploadID == id && !p.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeUploads) Remove(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.uploads, id)
	return nil
}

type fakePosts struct{ *memDB }

func (f fakePosts) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.posts {
		if post.UploadID != nil && p.UploadID != nil && *p.UploadID == *post.UploadID && !p.IsTerminal() {
			return 0, repository.ErrDuplicate
		}
	}
	c := *post
	c.ID = f.id()
	c.CreatedAt = time.Now()
	f.posts[c.ID] = &c
	return c.ID, nil
}

func (f fakePosts) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (f fakePosts) GetByIDForUser(ctx context.Context, id, userID int64) (*models.Post, error) {
	p, err := f.GetByID(ctx, id)
	if p == nil || p.UserID != userID {
		return nil, err
	}
	return p, nil
}

func (f fakePosts) ListByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Post
	for _, p := range f.posts {
		if p.UserID == userID {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f fakePosts) FindDue(ctx context.Context, now time.Time, limit int) ([]*models.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Post
	for _, p := range f.posts {
		if p.Status == models.PostStatusScheduled && p.ScheduledTime != nil && !p.ScheduledTime.After(now) {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledTime.Before(*out[j].ScheduledTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f fakePosts) Claim(ctx context.Context, id int64, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok || p.Status != models.PostStatusScheduled || p.ScheduledTime == nil || p.ScheduledTime.After(now) {
		return false, nil
	}
	p.Status = models.PostStatusPublishing
	p.ClaimedAt = &now
	return true, nil
}

func (f fakePosts) Renew(ctx context.Context, id int64, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok || p.Status != models.PostStatusPublishing {
		return false, nil
	}
	p.ClaimedAt = &now
	return true, nil
}

func (f fakePosts) ReleaseClaim(ctx context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok || p.Status != models.PostStatusPublishing || p.ScheduledTime == nil {
		return false, nil
	}
	p.Status = models.PostStatusScheduled
	p.ClaimedAt = nil
	return true, nil
}

func (f fakePosts) MarkPublished(ctx context.Context, id int64, externalPostID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok || p.Status != models.PostStatusPublishing {
		return false, nil
	}
	p.Status = models.PostStatusPublished
	p.ExternalPostID = externalPostID
	p.PublishedAt = &at
	p.Error = ""
	return true, nil
}

func (f fakePosts) MarkFailed(ctx context.Context, id int64, message string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok || p.Status != models.PostStatusPublishing {
		return false, nil
	}
	p.Status = models.PostStatusFailed
	p.Error = message
	p.ExternalPostID = ""
	p.PublishedAt = nil
	return true, nil
}

func (f fakePosts) FailStale(ctx context.Context, claimedBefore time.Time, message string, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, p := range f.posts {
		if p.Status == models.PostStatusPublishing && p.ClaimedAt != nil && p.ClaimedAt.Before(claimedBefore) {
			p.Status = models.PostStatusFailed
			p.Error = message
			n++
		}
	}
	return n, nil
}

func (f fakePosts) Remove(ctx context.Context, id, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok || p.UserID != userID || p.Status == models.PostStatusPublishing {
		return false, nil
	}
	delete(f.posts, id)
	return true, nil
}

// memBlobs is an in-memory BlobStore.
type memBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemBlobs() *memBlobs {
	return &memBlobs{blobs: map[string][]byte{}}
}

func (b *memBlobs) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[key] = data
	return nil
}

func (b *memBlobs) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.blobs[key]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *memBlobs) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, key)
	return nil
}

func (b *memBlobs) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.blobs[key]
	return ok
}

type stubFacebook struct {
	mu       sync.Mutex
	id       string
	err      error
	during   func()
	requests []PublishRequest
	media    [][]byte
}

func (s *stubFacebook) PublishVideo(ctx context.Context, req *PublishRequest) (string, error) {
	data, _ := io.ReadAll(req.Media)
	if s.during != nil {
		s.during()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, *req)
	s.media = append(s.media, data)
	if s.err != nil {
		return "", s.err
	}
	return s.id, nil
}

// newTxDB returns a sqlmock connection for services that open
// transactions. Each transaction needs an expectTx call, in order.
func newTxDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func expectTx(mock sqlmock.Sqlmock, commit bool) {
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}
