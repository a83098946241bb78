package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/maheshrc27/reelflow/internal/transfer"
	"golang.org/x/time/rate"
)

const (
	DefaultGraphAPIURL = "https://graph.facebook.com/v18.0"
	maxGraphResponse   = 1 << 20
	maxGraphErrorText  = 500
)

// PublishRequest carries decrypted credentials. It must not outlive the call.
type PublishRequest struct {
	PageID      string
	AccessToken string
	Description string
	FileName    string
	ContentType string
	Media       io.Reader
}

type FacebookService interface {
	// PublishVideo uploads the media to the page and returns the Graph video id.
	PublishVideo(ctx context.Context, req *PublishRequest) (string, error)
}

type facebookService struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewFacebookService talks to the Graph API at baseURL. A nil limiter means
// no throttling.
func NewFacebookService(baseURL string, client *http.Client, limiter *rate.Limiter) FacebookService {
	if baseURL == "" {
		baseURL = DefaultGraphAPIURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	return &facebookService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		limiter: limiter,
	}
}

func (fb *facebookService) PublishVideo(ctx context.Context, req *PublishRequest) (string, error) {
	if req.PageID == "" || req.AccessToken == "" {
		return "", &PublishError{Message: "page id and access token are required"}
	}
	if req.Media == nil {
		return "", &PublishError{Message: "no media to publish"}
	}

	if fb.limiter != nil {
		if err := fb.limiter.Wait(ctx); err != nil {
			return "", &PublishError{Message: "facebook rate limit wait", Err: err}
		}
	}

	pr, pw := io.Pipe()
	defer pr.Close()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeVideoForm(form, req))
	}()

	endpoint := fmt.Sprintf("%s/%s/videos", fb.baseURL, url.PathEscape(req.PageID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		return "", &PublishError{Message: "build facebook request", Err: err}
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")

	resp, err := fb.client.Do(httpReq)
	if err != nil {
		return "", &PublishError{Message: "facebook request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxGraphResponse))
	if err != nil {
		return "", &PublishError{Message: "read facebook response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &PublishError{Message: fmt.Sprintf("facebook api status %d: %s", resp.StatusCode, graphErrorMessage(body))}
	}

	var result transfer.FacebookVideoResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", &PublishError{Message: "decode facebook response", Err: err}
	}
	if result.ID == "" {
		return "", &PublishError{Message: "facebook response has no video id"}
	}

	slog.Info("facebook video published", "page_id", req.PageID, "video_id", result.ID)
	return result.ID, nil
}

func writeVideoForm(form *multipart.Writer, req *PublishRequest) error {
	if err := form.WriteField("access_token", req.AccessToken); err != nil {
		return err
	}
	if err := form.WriteField("description", req.Description); err != nil {
		return err
	}

	fileName := req.FileName
	if fileName == "" {
		fileName = "video.mp4"
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="source"; filename="%s"`, escapeQuotes(fileName)))
	h.Set("Content-Type", contentType)
	part, err := form.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, req.Media); err != nil {
		return err
	}
	return form.Close()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func graphErrorMessage(body []byte) string {
	var fbErr transfer.FacebookErrorResponse
	if err := json.Unmarshal(body, &fbErr); err == nil && fbErr.Error.Message != "" {
		return truncate(fbErr.Error.Message, maxGraphErrorText)
	}
	if len(body) == 0 {
		return "empty response"
	}
	return truncate(string(body), maxGraphErrorText)
}
