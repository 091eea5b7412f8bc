package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

const (
	// DefaultMessage is used when a log request carries no message.
	DefaultMessage = "No message"
	// DefaultUserAgent is used when the request has no User-Agent header.
	DefaultUserAgent = "Unknown"

	logLineTimeFormat = "2006-01-02 15:04:05"
)

// LogRequest is the JSON body accepted by POST /log.
// Pointers distinguish an absent field from an empty one.
type LogRequest struct {
	AccessToken *string `json:"access_token"`
	Message     *string `json:"message,omitempty"`
}

// UnmarshalJSON decodes the body field by field so one badly typed field
// does not discard the others. A token is only taken from a JSON string.
// A message that is not a string keeps its JSON text, and null counts as
// absent.
func (r *LogRequest) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*r = LogRequest{}

	if raw, ok := fields["access_token"]; ok && !isNull(raw) {
		var token string
		if err := json.Unmarshal(raw, &token); err == nil {
			r.AccessToken = &token
		}
	}

	if raw, ok := fields["message"]; ok && !isNull(raw) {
		var msg string
		if err := json.Unmarshal(raw, &msg); err != nil {
			msg = string(bytes.TrimSpace(raw))
		}
		r.Message = &msg
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// Location is the coarse geolocation of a client address.
type Location struct {
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
}

// UnknownLocation holds the placeholders used when a lookup yields nothing.
var UnknownLocation = Location{Country: "Unknown", CountryCode: "--"}

// Event is one accepted visitor event. It lives for a single request.
type Event struct {
	ID        string
	Time      time.Time
	Address   string
	Message   string // already sanitized
	UserAgent string
	Location  Location
	// Path is the page that was loaded; empty for events sent to /log.
	Path string
}

var lineBreaks = strings.NewReplacer("\r", `\r`, "\n", `\n`)

// LogLine renders the event as one line of the local request log:
//
//	[2006-01-02 15:04:05] address - message - user-agent
//
// Line breaks inside the message or user-agent are written as \r and \n
// so every event stays on one line.
func (e Event) LogLine() string {
	return "[" + e.Time.Format(logLineTimeFormat) + "] " +
		e.Address + " - " + lineBreaks.Replace(e.Message) + " - " +
		lineBreaks.Replace(e.UserAgent) + "\n"
}

var htmlEntities = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// Sanitize escapes the characters that are significant in HTML (& < > " ')
// with the same entities PHP's htmlspecialchars uses with ENT_QUOTES.
func Sanitize(s string) string {
	return htmlEntities.Replace(s)
}
