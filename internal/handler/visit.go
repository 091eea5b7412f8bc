package handler

import (
	"context"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/prankvzlom/sitelog/internal/metrics"
	"github.com/prankvzlom/sitelog/internal/model"
	"github.com/prankvzlom/sitelog/internal/telegram"
)

// PageVisits relays a "new visitor" message for every page served by the
// static site. Assets (anything with an extension other than .html) are
// not reported, and a visit identical to the previous one is dropped.
// Delivery is best effort and never delays the page.
type PageVisits struct {
	Relay  Relayer
	Logger zerolog.Logger
	Now    func() time.Time

	mu   sync.Mutex
	last string
	wg   sync.WaitGroup
}

// Middleware reports the visit after the wrapped handler served the page.
func (v *PageVisits) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := next(c); err != nil {
				return err
			}
			req := c.Request()
			if req.Method != http.MethodGet || !isPage(req.URL.Path) {
				return nil
			}
			if status := c.Response().Status; status < 200 || status >= 300 {
				return nil
			}

			userAgent := req.UserAgent()
			if userAgent == "" {
				userAgent = model.DefaultUserAgent
			}
			v.notify(req.Context(), model.Event{
				ID:        requestID(c),
				Time:      v.now(),
				Address:   c.RealIP(),
				UserAgent: userAgent,
				Path:      req.URL.Path,
			})
			return nil
		}
	}
}

func (v *PageVisits) notify(ctx context.Context, e model.Event) {
	os, browser := model.UserAgentFamilies(e.UserAgent)
	key := strings.Join([]string{e.Address, os, browser, e.Path}, "|")

	v.mu.Lock()
	if key == v.last {
		v.mu.Unlock()
		metrics.PageVisitsTotal.WithLabelValues(metrics.VisitDuplicate).Inc()
		return
	}
	v.last = key
	v.mu.Unlock()

	text := telegram.FormatVisit(e)
	ctx = context.WithoutCancel(ctx)
	log := v.Logger.With().Str("request_id", e.ID).Str("addr", e.Address).Logger()

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		if err := v.Relay.SendMessage(ctx, text); err != nil {
			metrics.PageVisitsTotal.WithLabelValues(metrics.VisitRelayFailed).Inc()
			log.Warn().Err(err).Str("path", e.Path).Msg("page visit relay failed")
			return
		}
		metrics.PageVisitsTotal.WithLabelValues(metrics.VisitRelayed).Inc()
	}()
}

// Wait blocks until every notification in flight has finished.
func (v *PageVisits) Wait() {
	v.wg.Wait()
}

func (v *PageVisits) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

func isPage(p string) bool {
	if strings.HasPrefix(p, "/static/") {
		return false
	}
	ext := path.Ext(p)
	return ext == "" || ext == ".html" || ext == ".htm"
}
