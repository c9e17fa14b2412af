package logger

import (
	"log/slog"
	"net/url"
	"strings"
)

// tokenQueryParams are query parameters whose values are credentials.
var tokenQueryParams = []string{
	"auth_token",
}

// Sensitive key patterns that should be redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"encryption_key",
	"credential",
	"bearer",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive masks an attribute that looks like it carries a credential.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()

		// URLs keep their shape; only the credential parameter is masked.
		if masked, ok := redactURL(strVal); ok {
			return slog.String(a.Key, masked)
		}

		if strVal != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// redactURL masks credential query parameters inside value. It reports
// false when value carries none.
func redactURL(value string) (string, bool) {
	if !strings.Contains(value, "?") || !containsTokenParam(value) {
		return "", false
	}
	u, err := url.Parse(value)
	if err != nil {
		return "", false
	}

	// Rewrite the raw query in place so parameter order survives.
	parts := strings.Split(u.RawQuery, "&")
	changed := false
	for i, part := range parts {
		name, val, found := strings.Cut(part, "=")
		if !found || !isTokenParam(name) {
			continue
		}
		parts[i] = name + "=" + maskValue(val)
		changed = true
	}
	if !changed {
		return "", false
	}
	u.RawQuery = strings.Join(parts, "&")
	return u.String(), true
}

func containsTokenParam(value string) bool {
	for _, p := range tokenQueryParams {
		if strings.Contains(value, p+"=") {
			return true
		}
	}
	return false
}

func isTokenParam(name string) bool {
	for _, p := range tokenQueryParams {
		if name == p {
			return true
		}
	}
	return false
}

// maskValue keeps the first and last 3 characters of long values.
func maskValue(value string) string {
	if len(value) <= 8 {
		return "***"
	}
	return value[:3] + "..." + value[len(value)-3:]
}

// RedactString manually redacts a string value.
// Use this when you need to redact a value before logging.
func RedactString(value string) string {
	if masked, ok := redactURL(value); ok {
		return masked
	}
	return maskValue(value)
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
