package logging

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	// MaxBodyLogLength is the maximum length of a response body to log
	MaxBodyLogLength = 200
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// Matches: password=xxx, pwd=xxx, pass=xxx (until next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Bearer tokens, JWT or opaque
	bearerPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9\-_.~+/]+=*`)

	// "access_token":"..." inside echoed JSON bodies
	accessTokenPattern = regexp.MustCompile(`(?i)"access_token"\s*:\s*"[^"]*"`)

	// user:pass@host credentials embedded in URLs
	userinfoPattern = regexp.MustCompile(`://[^:/\s]+:[^@/\s]+@`)
)

// sensitiveParams are query parameters whose values never reach the logs.
var sensitiveParams = []string{"password", "token", "access_token", "api_key"}

// SanitizeURL removes credentials from a request URL before logging.
// Query parameters such as node_uri or depth are kept since they identify the call.
func SanitizeURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return SanitizeString(rawURL)
	}

	if u.User != nil {
		u.User = url.User(RedactedText)
	}

	q := u.Query()
	changed := false
	for _, name := range sensitiveParams {
		if q.Has(name) {
			q.Set(name, RedactedText)
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}

	return u.String()
}

// SanitizeError sanitizes error messages that might contain sensitive data.
// Use this before logging any error returned by the gateway or token source.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error())
}

// SanitizeString redacts passwords, bearer tokens and URL credentials.
func SanitizeString(s string) string {
	sanitized := passwordPattern.ReplaceAllString(s, "${1}="+RedactedText)
	sanitized = bearerPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)
	sanitized = accessTokenPattern.ReplaceAllString(sanitized, `"access_token":"`+RedactedText+`"`)
	sanitized = userinfoPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@")
	return sanitized
}

// SanitizeBody truncates and sanitizes a response body for logging.
func SanitizeBody(body string) string {
	return TruncateString(SanitizeString(strings.TrimSpace(body)), MaxBodyLogLength)
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
