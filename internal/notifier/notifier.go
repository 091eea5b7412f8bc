// Package notifier sends visitor events to the logging endpoint without
// making the caller wait for, or handle, the outcome.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const DefaultTimeout = 10 * time.Second

type payload struct {
	Message     string `json:"message"`
	AccessToken string `json:"access_token,omitempty"`
}

// Notifier posts {"message": ...} to a fixed endpoint URL.
type Notifier struct {
	url     string
	token   string
	client  *http.Client
	timeout time.Duration
	log     zerolog.Logger
	wg      sync.WaitGroup
}

type Option func(*Notifier)

// WithAccessToken adds the shared secret the endpoint checks.
func WithAccessToken(token string) Option {
	return func(n *Notifier) { n.token = token }
}

func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) { n.client = c }
}

func WithTimeout(d time.Duration) Option {
	return func(n *Notifier) { n.timeout = d }
}

func New(url string, log zerolog.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		url:     url,
		client:  http.DefaultClient,
		timeout: DefaultTimeout,
		log:     log,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify sends message in the background and returns immediately. Failures
// are logged; there is no retry.
func (n *Notifier) Notify(message string) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.send(message)
	}()
}

// Wait blocks until every Notify issued so far has finished. Short-lived
// processes call it before exiting.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) send(message string) {
	body, err := json.Marshal(payload{Message: message, AccessToken: n.token})
	if err != nil {
		n.log.Error().Err(err).Msg("encode log event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.log.Error().Err(err).Str("url", n.url).Msg("build log request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Error().Err(err).Msg("send log event")
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		n.log.Error().Int("status", resp.StatusCode).Msg("logging endpoint rejected event")
		return
	}
	n.log.Debug().Msg("log event sent")
}
