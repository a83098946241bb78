package models

import "time"

type Upload struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	OriginalName string    `db:"original_name" json:"original_name"`
	StorageKey   string    `db:"storage_key" json:"storage_key"`
	MimeType     string    `db:"mime_type" json:"mime_type"`
	Size         int64     `db:"size" json:"size"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
