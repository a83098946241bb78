package transfer

import "time"

type CreateAccount struct {
	Name string `json:"name"`
}

type UpdateAccount struct {
	Name string `json:"name"`
}

type CreatePage struct {
	AccountID   int64  `json:"account_id"`
	Name        string `json:"name"`
	PageID      string `json:"page_id"`
	AppID       string `json:"app_id"`
	AppSecret   string `json:"app_secret"`
	AccessToken string `json:"access_token"`
}

// UpdatePage leaves fields that are empty untouched.
type UpdatePage struct {
	Name        string `json:"name"`
	PageID      string `json:"page_id"`
	AppID       string `json:"app_id"`
	AppSecret   string `json:"app_secret"`
	AccessToken string `json:"access_token"`
}

// CreatePost publishes immediately when ScheduledTime is nil.
type CreatePost struct {
	AccountID     int64      `json:"account_id"`
	PageID        int64      `json:"page_id"`
	UploadID      int64      `json:"upload_id"`
	Caption       string     `json:"caption"`
	ScheduledTime *time.Time `json:"scheduled_time"`
}
