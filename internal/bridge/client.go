// Package bridge talks to the external Telegram endpoint: long-poll
// consumption, best-effort sends and file fetches.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

type Message struct {
	MessageID int64       `json:"message_id"`
	Chat      Chat        `json:"chat"`
	From      *Sender     `json:"from"`
	Text      string      `json:"text"`
	Photo     []PhotoSize `json:"photo"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type Sender struct {
	FirstName string `json:"first_name"`
}

type PhotoSize struct {
	FileID string `json:"file_id"`
}

type File struct {
	FileID   string `json:"file_id"`
	FilePath string `json:"file_path"`
}

// APIError is a non-ok response from the bridge endpoint.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bridge api error %d: %s", e.Code, e.Description)
}

// IsConflict reports whether err means another consumer holds the pull
// session (a competing getUpdates or an active webhook).
func IsConflict(err error) bool {
	var ae *APIError
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Code == http.StatusConflict || strings.Contains(ae.Description, "Conflict")
}

// Client is a minimal Bot API client. It implements both the poller's
// Source and the forwarder's Sink.
type Client struct {
	httpc   *http.Client
	baseURL string
	token   string
}

func NewClient(token string) *Client {
	// Timeout must outlast the 30s long poll.
	return newClient(token, "https://api.telegram.org", &http.Client{Timeout: 65 * time.Second})
}

func newClient(token, baseURL string, httpc *http.Client) *Client {
	return &Client{httpc: httpc, baseURL: baseURL, token: token}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, method, out)
}

func (c *Client) do(req *http.Request, method string, out any) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if !api.OK {
		return &APIError{Code: api.ErrorCode, Description: api.Description}
	}
	if out != nil {
		if err := json.Unmarshal(api.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

// GetUpdates long-polls for messages past offset, waiting up to
// timeoutSec server-side before returning an empty batch.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	params := url.Values{}
	params.Set("offset", strconv.FormatInt(offset, 10))
	params.Set("timeout", strconv.Itoa(timeoutSec))
	var updates []Update
	if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// DeleteWebhook disables push delivery so getUpdates is not starved.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", url.Values{}, nil)
}

func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	params := url.Values{}
	params.Set("chat_id", chatID)
	params.Set("text", text)
	return c.call(ctx, "sendMessage", params, nil)
}

// SendPhoto uploads raw image bytes as a multipart form.
func (c *Client) SendPhoto(ctx context.Context, chatID string, photo []byte) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("chat_id", chatID); err != nil {
		return fmt.Errorf("sendPhoto form: %w", err)
	}
	part, err := w.CreateFormFile("photo", "photo.jpg")
	if err != nil {
		return fmt.Errorf("sendPhoto form: %w", err)
	}
	if _, err := part.Write(photo); err != nil {
		return fmt.Errorf("sendPhoto form: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("sendPhoto form: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendPhoto", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return fmt.Errorf("build sendPhoto request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req, "sendPhoto", nil)
}

// GetFile resolves a file id to a server-side file path.
func (c *Client) GetFile(ctx context.Context, fileID string) (File, error) {
	params := url.Values{}
	params.Set("file_id", fileID)
	var f File
	if err := c.call(ctx, "getFile", params, &f); err != nil {
		return File{}, err
	}
	return f, nil
}

// DownloadFile fetches the raw bytes behind a file path from GetFile.
func (c *Client) DownloadFile(ctx context.Context, filePath string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, filePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Code: resp.StatusCode, Description: "file download failed"}
	}
	return io.ReadAll(resp.Body)
}
