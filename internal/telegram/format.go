package telegram

import (
	"html"
	"strings"

	"github.com/prankvzlom/sitelog/internal/model"
)

// FormatEvent renders an event as an HTML chat message. The event message
// is expected to be sanitized already; the user-agent is escaped here.
func FormatEvent(e model.Event) string {
	var b strings.Builder
	b.WriteString("🛡️ <b>Site log:</b>\n")
	b.WriteString("🌍 IP: <code>" + html.EscapeString(e.Address) + "</code>\n")
	b.WriteString("📍 Country: " + html.EscapeString(e.Location.Country) + " (" + html.EscapeString(e.Location.CountryCode) + ")\n")
	b.WriteString("📱 User-Agent: " + html.EscapeString(e.UserAgent) + "\n")
	b.WriteString("💬 Message: " + e.Message)
	return b.String()
}

const visitTimeFormat = "2006-01-02 15:04:05"

// FormatVisit renders a page load as an HTML chat message.
func FormatVisit(e model.Event) string {
	os, browser := model.UserAgentFamilies(e.UserAgent)
	var b strings.Builder
	b.WriteString("🌐 <b>New visitor</b>\n")
	b.WriteString("🕒 Time: " + e.Time.Format(visitTimeFormat) + "\n")
	b.WriteString("📡 IP: <code>" + html.EscapeString(e.Address) + "</code>\n")
	b.WriteString("🖥 OS: " + html.EscapeString(os) + "\n")
	b.WriteString("🌍 Browser: " + html.EscapeString(browser) + "\n")
	b.WriteString("📍 Page: " + html.EscapeString(e.Path))
	return b.String()
}
