package model

import (
	"fmt"
	"net/url"
	"strings"
)

const faviconService = "https://www.google.com/s2/favicons?domain=%s&sz=64"

// Hostname returns the host part of rawURL.
// Unparsable or host-less input is returned unchanged so it can still be displayed.
func Hostname(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return u.Hostname()
}

// FaviconURL derives the favicon service URL for a bookmark URL.
func FaviconURL(rawURL string) string {
	return fmt.Sprintf(faviconService, url.QueryEscape(Hostname(rawURL)))
}
