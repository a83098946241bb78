package models

import "time"

// Decrypter opens a sealed credential field.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// Page holds its credentials sealed. AppID, AppSecret and AccessToken are
// ciphertext and must only be opened right before a publish call.
type Page struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	AccountID   int64     `db:"account_id" json:"account_id"`
	Name        string    `db:"name" json:"name"`
	PageID      string    `db:"page_id" json:"page_id"`
	AppID       string    `db:"app_id" json:"-"`
	AppSecret   string    `db:"app_secret" json:"-"`
	AccessToken string    `db:"access_token" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

func (p *Page) DecryptAppID(d Decrypter) (string, error) {
	return d.Decrypt(p.AppID)
}

func (p *Page) DecryptAppSecret(d Decrypter) (string, error) {
	return d.Decrypt(p.AppSecret)
}

func (p *Page) DecryptAccessToken(d Decrypter) (string, error) {
	return d.Decrypt(p.AccessToken)
}
