package validator

import (
	"net/url"
	"strings"
)

// ValidateAbsoluteURL checks that urlStr parses as an absolute URI with both a
// scheme and a host. Surrounding whitespace is ignored. No scheme allowlist
// is applied and nothing is fetched.
func ValidateAbsoluteURL(urlStr string) error {
	urlStr = strings.TrimSpace(urlStr)
	if urlStr == "" {
		return ErrEmptyURL
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return ErrInvalidURL
	}

	if !parsedURL.IsAbs() || parsedURL.Scheme == "" {
		return ErrMissingScheme
	}

	if parsedURL.Host == "" {
		return ErrInvalidHost
	}

	return nil
}

// ValidateShortCode reports whether code can possibly be a short code: non-empty
// and alphanumeric only. It does not check that the code was ever issued.
func ValidateShortCode(code string) error {
	if code == "" {
		return ErrEmptyShortCode
	}

	for _, char := range code {
		if !isAlphanumeric(char) {
			return ErrInvalidShortCode
		}
	}

	return nil
}

func isAlphanumeric(char rune) bool {
	return (char >= 'a' && char <= 'z') ||
		(char >= 'A' && char <= 'Z') ||
		(char >= '0' && char <= '9')
}
