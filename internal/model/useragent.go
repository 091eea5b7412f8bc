package model

import "strings"

// Unrecognised user-agents are reported as "Other".
const unknownFamily = "Other"

type family struct {
	marker string
	name   string
}

// Order matters: Android UAs mention Linux, Edge and Opera UAs mention
// Chrome, and nearly every browser mentions Safari.
var osFamilies = []family{
	{"Windows", "Windows"},
	{"Android", "Android"},
	{"iPhone", "iOS"},
	{"iPad", "iOS"},
	{"iPod", "iOS"},
	{"CrOS", "Chrome OS"},
	{"Mac OS X", "Mac OS X"},
	{"Macintosh", "Mac OS X"},
	{"Linux", "Linux"},
}

var browserFamilies = []family{
	{"Edg", "Edge"},
	{"OPR/", "Opera"},
	{"Opera", "Opera"},
	{"YaBrowser/", "Yandex Browser"},
	{"SamsungBrowser/", "Samsung Internet"},
	{"FxiOS/", "Firefox iOS"},
	{"Firefox/", "Firefox"},
	{"CriOS/", "Chrome Mobile iOS"},
	{"Chrome/", "Chrome"},
	{"Safari/", "Safari"},
	{"curl/", "curl"},
}

// UserAgentFamilies reports the operating system and browser a
// User-Agent header names, or "Other" for either one it does not know.
func UserAgentFamilies(ua string) (os, browser string) {
	return match(ua, osFamilies), match(ua, browserFamilies)
}

func match(ua string, families []family) string {
	for _, f := range families {
		if strings.Contains(ua, f.marker) {
			return f.name
		}
	}
	return unknownFamily
}
