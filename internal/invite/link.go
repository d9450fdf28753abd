package invite

import (
	"net/url"
	"path"
	"strings"
)

// NormalizeLink canonicalizes a meeting link so that two invites for the same
// meeting map to the same scheduler key. Query and fragment are dropped and the
// host is lowercased.
func NormalizeLink(link string) string {
	link = strings.TrimSpace(link)
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return strings.TrimRight(link, "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String()
}

// MeetingCode returns the last path segment of a meeting link, e.g.
// "abc-defg-hij" for https://meet.google.com/abc-defg-hij.
func MeetingCode(link string) string {
	u, err := url.Parse(NormalizeLink(link))
	if err != nil {
		return ""
	}
	code := path.Base(u.Path)
	if code == "." || code == "/" {
		return ""
	}
	return code
}
