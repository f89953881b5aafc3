package faa

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Locator discovers the current archive link on a publisher landing page.
type Locator struct {
	client  *Client
	host    string
	timeout time.Duration
}

// NewLocator creates a Locator. Relative links resolve against host.
func NewLocator(client *Client, host string, timeout time.Duration) *Locator {
	return &Locator{client: client, host: host, timeout: timeout}
}

// Locate fetches pageURL and returns the absolute URL of the first zip link
// whose href contains keyword (any zip link when keyword is empty).
func (l *Locator) Locate(ctx context.Context, pageURL, keyword string) (string, error) {
	page, err := l.client.Get(ctx, pageURL, l.timeout, "page")
	if err != nil {
		return "", err
	}
	link, ok := FindArchiveURL(page, keyword, l.host)
	if !ok {
		return "", fmt.Errorf("%w: %s (keyword %q)", ErrArchiveNotFound, pageURL, keyword)
	}
	return link, nil
}

var quotedZipRe = regexp.MustCompile(`(?i)["']([^"']*\.zip)["']`)

// FindArchiveURL searches an HTML page for an archive link. Anchors are
// inspected first; when markup is malformed or the link lives outside an
// anchor, any quoted string ending in ".zip" is accepted.
func FindArchiveURL(page []byte, keyword, host string) (string, bool) {
	keyword = strings.ToLower(keyword)
	if href, ok := findAnchor(page, keyword); ok {
		return resolve(host, href), true
	}
	for _, m := range quotedZipRe.FindAllSubmatch(page, -1) {
		href := string(m[1])
		if keyword == "" || strings.Contains(strings.ToLower(href), keyword) {
			return resolve(host, href), true
		}
	}
	return "", false
}

func findAnchor(page []byte, keyword string) (string, bool) {
	z := html.NewTokenizer(bytes.NewReader(page))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return "", false
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "href" {
					href := strings.TrimSpace(string(val))
					lower := strings.ToLower(href)
					if strings.HasSuffix(lower, ".zip") && strings.Contains(lower, keyword) {
						return href, true
					}
				}
				if !more {
					break
				}
			}
		}
	}
}

func resolve(host, href string) string {
	ref, err := url.Parse(href)
	if err != nil || ref.IsAbs() {
		return href
	}
	base, err := url.Parse(host)
	if err != nil || base.Host == "" {
		return host + "/" + strings.TrimPrefix(href, "/")
	}
	if !strings.HasPrefix(ref.Path, "/") {
		ref.Path = "/" + ref.Path
	}
	return base.ResolveReference(ref).String()
}
