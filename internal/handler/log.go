package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/prankvzlom/sitelog/internal/allowlist"
	"github.com/prankvzlom/sitelog/internal/config"
	"github.com/prankvzlom/sitelog/internal/geo"
	"github.com/prankvzlom/sitelog/internal/metrics"
	"github.com/prankvzlom/sitelog/internal/model"
	"github.com/prankvzlom/sitelog/internal/response"
	"github.com/prankvzlom/sitelog/internal/telegram"
)

const maxBodyBytes = 64 << 10

// Relayer delivers a formatted message to the chat.
type Relayer interface {
	SendMessage(ctx context.Context, text string) error
}

// Appender records one line in the local request log.
type Appender interface {
	Append(line string) error
}

// LogHandler serves POST /log. Checks run in a fixed order and the first
// failing one ends the request before any side effect.
type LogHandler struct {
	Credentials config.Credentials
	AllowList   *allowlist.List
	Locator     geo.Locator
	Store       Appender
	Relay       Relayer
	Logger      zerolog.Logger
	Now         func() time.Time
}

func (h *LogHandler) Handle(c echo.Context) error {
	req := c.Request()

	if req.Method != http.MethodPost {
		metrics.RecordEvent(metrics.OutcomeMethodNotAllowed)
		return response.MethodNotAllowed(c)
	}

	if !h.Credentials.Complete() {
		metrics.RecordEvent(metrics.OutcomeMisconfigured)
		h.Logger.Error().Msg("logging endpoint credentials are not configured")
		return response.InternalError(c, "Missing env credentials")
	}

	addr := c.RealIP()
	log := h.Logger.With().Str("request_id", requestID(c)).Str("addr", addr).Logger()

	if h.AllowList == nil || !h.AllowList.Allows(addr) {
		metrics.RecordEvent(metrics.OutcomeForbidden)
		log.Warn().Msg("address not allowed")
		return response.Forbidden(c, "IP not allowed")
	}

	var body model.LogRequest
	raw, err := io.ReadAll(io.LimitReader(req.Body, maxBodyBytes))
	if err == nil {
		if err := json.Unmarshal(raw, &body); err != nil {
			// an unreadable body carries no token
			body = model.LogRequest{}
		}
	}

	if body.AccessToken == nil || !tokenEqual(*body.AccessToken, h.Credentials.AccessToken) {
		metrics.RecordEvent(metrics.OutcomeUnauthorized)
		log.Warn().Msg("invalid access token")
		return response.Unauthorized(c, "Invalid token")
	}

	message := model.DefaultMessage
	if body.Message != nil {
		message = *body.Message
	}
	userAgent := req.UserAgent()
	if userAgent == "" {
		userAgent = model.DefaultUserAgent
	}

	// the event outlives a disconnecting client; outbound calls carry their
	// own timeouts
	ctx := context.WithoutCancel(req.Context())

	loc, found := geo.Resolve(ctx, h.Locator, addr)
	metrics.RecordGeoLookup(found)

	event := model.Event{
		ID:        requestID(c),
		Time:      h.now(),
		Address:   addr,
		Message:   model.Sanitize(message),
		UserAgent: userAgent,
		Location:  loc,
	}

	if err := h.Store.Append(event.LogLine()); err != nil {
		metrics.LogFileAppendErrors.Inc()
		log.Error().Err(err).Msg("append to request log failed")
	}

	start := time.Now()
	err = h.Relay.SendMessage(ctx, telegram.FormatEvent(event))
	metrics.RelayDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RecordEvent(metrics.OutcomeRelayFailed)
		log.Error().Err(err).Msg("relay to telegram failed")
		return response.Status(c, http.StatusInternalServerError, response.StatusFail)
	}

	metrics.RecordEvent(metrics.OutcomeOK)
	log.Info().Str("country", loc.CountryCode).Msg("event relayed")
	return response.Status(c, http.StatusOK, response.StatusOK)
}

func (h *LogHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func tokenEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func requestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	id := uuid.NewString()
	c.Response().Header().Set(echo.HeaderXRequestID, id)
	return id
}
