// Package geo resolves client addresses to a country. Lookups are best
// effort: callers get ok=false on any failure and substitute placeholders.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prankvzlom/sitelog/internal/model"
)

const maxResponseBytes = 16 << 10

// Locator looks up the location of an address.
type Locator interface {
	Lookup(ctx context.Context, addr string) (model.Location, bool)
}

// Disabled never finds anything.
type Disabled struct{}

func (Disabled) Lookup(context.Context, string) (model.Location, bool) {
	return model.Location{}, false
}

// IPAPI queries the ip-api.com JSON endpoint.
type IPAPI struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	log     zerolog.Logger
}

type ipapiResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	Query       string `json:"query"`
}

// NewIPAPI returns a client for baseURL (e.g. http://ip-api.com). A zero
// timeout leaves the bound to ctx and client.
func NewIPAPI(baseURL string, timeout time.Duration, client *http.Client, log zerolog.Logger) *IPAPI {
	if client == nil {
		client = http.DefaultClient
	}
	return &IPAPI{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client:  client,
		log:     log,
	}
}

func (c *IPAPI) Lookup(ctx context.Context, addr string) (model.Location, bool) {
	loc, err := c.lookup(ctx, addr)
	if err != nil {
		c.log.Debug().Err(err).Str("addr", addr).Msg("geolocation lookup failed")
		return model.Location{}, false
	}
	return loc, true
}

func (c *IPAPI) lookup(ctx context.Context, addr string) (model.Location, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u := c.baseURL + "/json/" + url.PathEscape(addr) + "?fields=status,message,country,countryCode,query"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.Location{}, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return model.Location{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Location{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body ipapiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return model.Location{}, fmt.Errorf("decode response: %w", err)
	}
	if body.Status != "success" {
		return model.Location{}, fmt.Errorf("lookup status %q: %s", body.Status, body.Message)
	}
	if body.Country == "" || body.CountryCode == "" {
		return model.Location{}, fmt.Errorf("incomplete response")
	}
	return model.Location{Country: body.Country, CountryCode: body.CountryCode}, nil
}

// Resolve runs the lookup and falls back to model.UnknownLocation.
func Resolve(ctx context.Context, l Locator, addr string) (model.Location, bool) {
	if l == nil {
		return model.UnknownLocation, false
	}
	if loc, ok := l.Lookup(ctx, addr); ok {
		return loc, true
	}
	return model.UnknownLocation, false
}
