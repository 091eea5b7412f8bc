package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/prankvzlom/sitelog/internal/config"
)

// NewApplication starts the New Relic agent. It returns nil, nil when no
// license key is configured.
func NewApplication(cfg config.ObservabilityConfig) (*newrelic.Application, error) {
	if !cfg.NewRelic.Enabled() {
		return nil, nil
	}
	name := cfg.NewRelic.AppName
	if name == "" {
		name = cfg.ServiceName + "-" + cfg.Environment
	}
	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(name),
		newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
	)
	if err != nil {
		return nil, fmt.Errorf("new relic: %w", err)
	}
	return app, nil
}

// Middleware wraps every request in a web transaction and stores it in the
// request context so outbound calls made through HTTPClient are attributed.
func Middleware(app *newrelic.Application) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if app == nil {
			return next
		}
		return func(c echo.Context) error {
			r := c.Request()
			txn := app.StartTransaction(r.Method + " " + c.Path())
			defer txn.End()

			txn.SetWebRequestHTTP(r)
			c.Response().Writer = txn.SetWebResponse(c.Response().Writer)
			c.SetRequest(r.WithContext(newrelic.NewContext(r.Context(), txn)))

			err := next(c)
			if err != nil {
				txn.NoticeError(err)
			}
			return err
		}
	}
}

// HTTPClient returns a client whose calls become external segments of the
// transaction found in the request context, if any.
func HTTPClient() *http.Client {
	return &http.Client{Transport: newrelic.NewRoundTripper(http.DefaultTransport)}
}

// Shutdown flushes pending agent data.
func Shutdown(app *newrelic.Application, timeout time.Duration) {
	if app != nil {
		app.Shutdown(timeout)
	}
}
