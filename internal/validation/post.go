// Package validation holds input checks shared by services and handlers.
package validation

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxPostContentLength = 500
	MaxMediaURLs         = 20
	maxAccessTokenLength = 4096
)

// ValidatePostContent requires 1..500 characters of non-blank text.
func ValidatePostContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("content is required")
	}
	if utf8.RuneCountInString(content) > MaxPostContentLength {
		return fmt.Errorf("content must be at most %d characters", MaxPostContentLength)
	}
	return nil
}

// ValidateMediaURLs requires absolute http(s) URLs with a host.
func ValidateMediaURLs(urls []string) error {
	if len(urls) > MaxMediaURLs {
		return fmt.Errorf("at most %d media URLs are allowed", MaxMediaURLs)
	}
	for i, raw := range urls {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("media_urls[%d] must be an absolute http(s) URL", i)
		}
	}
	return nil
}

// ValidateAccessToken rejects blank, oversized or whitespace-containing tokens.
func ValidateAccessToken(token string) error {
	if token == "" {
		return fmt.Errorf("access_token is required")
	}
	if len(token) > maxAccessTokenLength {
		return fmt.Errorf("access_token is too long")
	}
	if strings.IndexFunc(token, unicode.IsSpace) >= 0 {
		return fmt.Errorf("access_token must not contain whitespace")
	}
	return nil
}
