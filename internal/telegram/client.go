// Package telegram relays formatted messages to a chat through the Bot API.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotDelivered is returned when the Bot API answered but did not accept
// the message.
var ErrNotDelivered = errors.New("telegram: message not delivered")

const maxResponseBytes = 64 << 10

// Client sends messages to one chat.
type Client struct {
	baseURL string
	token   string
	chatID  string
	timeout time.Duration
	client  *http.Client
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NewClient returns a Bot API client. baseURL is normally
// https://api.telegram.org; timeout bounds every SendMessage call.
func NewClient(baseURL, token, chatID string, timeout time.Duration, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		chatID:  chatID,
		timeout: timeout,
		client:  client,
	}
}

// SendMessage posts text with HTML parse mode. There is no retry.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	form := url.Values{
		"chat_id":    {c.chatID},
		"text":       {text},
		"parse_mode": {"HTML"},
	}
	endpoint := c.baseURL + "/bot" + c.token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", c.redact(err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", c.redact(err))
	}
	defer resp.Body.Close()

	var body apiResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d %s", ErrNotDelivered, resp.StatusCode, body.Description)
	}
	if decodeErr != nil {
		return fmt.Errorf("%w: decode response: %v", ErrNotDelivered, decodeErr)
	}
	if !body.OK {
		return fmt.Errorf("%w: %s", ErrNotDelivered, body.Description)
	}
	return nil
}

// redact keeps the bot token out of errors that embed the request URL.
func (c *Client) redact(err error) error {
	if c.token == "" {
		return err
	}
	msg := strings.ReplaceAll(err.Error(), c.token, "<redacted>")
	if msg == err.Error() {
		return err
	}
	return errors.New(msg)
}
