package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prankvzlom/sitelog/internal/model"
)

func TestIPAPI_Lookup(t *testing.T) {
	var gotPath, gotFields string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFields = r.URL.Query().Get("fields")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","country":"Germany","countryCode":"DE","query":"1.2.3.4"}`))
	}))
	defer srv.Close()

	c := NewIPAPI(srv.URL+"/", time.Second, srv.Client(), zerolog.Nop())
	loc, ok := c.Lookup(context.Background(), "1.2.3.4")
	require.True(t, ok)
	assert.Equal(t, model.Location{Country: "Germany", CountryCode: "DE"}, loc)
	assert.Equal(t, "/json/1.2.3.4", gotPath)
	assert.Contains(t, gotFields, "countryCode")
}

func TestIPAPI_LookupFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"reserved range", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"fail","message":"reserved range","query":"127.0.0.1"}`))
		}},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":`))
		}},
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"rate limited", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}},
		{"missing fields", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"success"}`))
		}},
		{"slow", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewIPAPI(srv.URL, 50*time.Millisecond, srv.Client(), zerolog.Nop())
			loc, ok := c.Lookup(context.Background(), "127.0.0.1")
			assert.False(t, ok)
			assert.Equal(t, model.Location{}, loc)
		})
	}
}

func TestIPAPI_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewIPAPI(url, time.Second, nil, zerolog.Nop())
	_, ok := c.Lookup(context.Background(), "1.2.3.4")
	assert.False(t, ok)
}

func TestResolve_Placeholder(t *testing.T) {
	loc, ok := Resolve(context.Background(), Disabled{}, "1.2.3.4")
	assert.False(t, ok)
	assert.Equal(t, model.UnknownLocation, loc)
	assert.Equal(t, "Unknown", loc.Country)
	assert.Equal(t, "--", loc.CountryCode)
}
