package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hello", "hello"},
		{"<script>", "&lt;script&gt;"},
		{`a & "b"`, "a &amp; &quot;b&quot;"},
		{"it's", "it&#039;s"},
		{"<b>bold</b>", "&lt;b&gt;bold&lt;/b&gt;"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.in), "input %q", tt.in)
	}
}

func TestSanitize_NoMarkupLeft(t *testing.T) {
	out := Sanitize(`<img src=x onerror="alert('x')">`)
	assert.NotContains(t, out, "<")
	assert.NotContains(t, out, ">")
	assert.NotContains(t, out, `"`)
	assert.NotContains(t, out, "'")
}

func TestEvent_LogLine(t *testing.T) {
	e := Event{
		Time:      time.Date(2025, 7, 25, 6, 19, 13, 0, time.UTC),
		Address:   "192.168.1.10",
		Message:   Sanitize("<hi>"),
		UserAgent: "curl/8.0",
	}
	assert.Equal(t, "[2025-07-25 06:19:13] 192.168.1.10 - &lt;hi&gt; - curl/8.0\n", e.LogLine())
}

func TestEvent_LogLineKeepsOneLine(t *testing.T) {
	e := Event{
		Time:      time.Date(2025, 7, 25, 6, 19, 13, 0, time.UTC),
		Address:   "192.168.1.10",
		Message:   Sanitize("hi\n[2025-01-01 00:00:00] 1.2.3.4 - forged - x"),
		UserAgent: "ua\r\nX-Injected: 1",
	}
	line := e.LogLine()

	assert.Equal(t, 1, strings.Count(line, "\n"))
	assert.NotContains(t, line, "\r")
	assert.Equal(t, `[2025-07-25 06:19:13] 192.168.1.10 - hi\n[2025-01-01 00:00:00] 1.2.3.4 - forged - x - ua\r\nX-Injected: 1`+"\n", line)
}

func TestLogRequest_UnmarshalJSON(t *testing.T) {
	str := func(s string) *string { return &s }
	tests := map[string]struct {
		body    string
		token   *string
		message *string
	}{
		"both strings":       {`{"access_token":"s3cret","message":"hi"}`, str("s3cret"), str("hi")},
		"number message":     {`{"access_token":"s3cret","message":123}`, str("s3cret"), str("123")},
		"bool message":       {`{"access_token":"s3cret","message":true}`, str("s3cret"), str("true")},
		"object message":     {`{"access_token":"s3cret","message":{"a":1}}`, str("s3cret"), str(`{"a":1}`)},
		"null message":       {`{"access_token":"s3cret","message":null}`, str("s3cret"), nil},
		"missing message":    {`{"access_token":"s3cret"}`, str("s3cret"), nil},
		"empty message":      {`{"access_token":"s3cret","message":""}`, str("s3cret"), str("")},
		"number token":       {`{"access_token":12345,"message":"hi"}`, nil, str("hi")},
		"null token":         {`{"access_token":null}`, nil, nil},
		"unknown fields":     {`{"access_token":"s3cret","extra":[1,2]}`, str("s3cret"), nil},
		"escaped characters": {`{"access_token":"s3cret","message":"a\u003cb"}`, str("s3cret"), str("a<b")},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var req LogRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			assert.Equal(t, tt.token, req.AccessToken)
			assert.Equal(t, tt.message, req.Message)
		})
	}
}

func TestLogRequest_UnmarshalJSONRejectsNonObjects(t *testing.T) {
	for _, body := range []string{`"s3cret"`, `[1,2]`, `{"access_token":`, ``} {
		var req LogRequest
		assert.Error(t, json.Unmarshal([]byte(body), &req), "body %q", body)
	}
}
