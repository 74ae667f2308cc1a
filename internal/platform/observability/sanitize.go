package observability

import (
	"strings"
	"unicode"
)

const defaultFieldLimit = 256

// sanitizeField strips control characters and caps the length so request
// values cannot inject into log output.
func sanitizeField(value string, limit int) string {
	if limit <= 0 {
		limit = defaultFieldLimit
	}

	cleaned := make([]rune, 0, len(value))
	for _, r := range value {
		if unicode.IsControl(r) {
			continue
		}
		cleaned = append(cleaned, r)
		if len(cleaned) == limit {
			break
		}
	}
	return string(cleaned)
}

// SanitizeRoute normalises a route pattern for logging.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return sanitizeField(route, 180)
}

// SanitizeMethod normalises an HTTP method for logging.
func SanitizeMethod(method string) string {
	return sanitizeField(strings.ToUpper(method), 10)
}

// SanitizeUserID caps identifiers so session subjects stay short in logs.
func SanitizeUserID(uid string) string {
	if uid == "" {
		return ""
	}
	return sanitizeField(uid, 64)
}

// SanitizeEmail masks the local part of an address before it reaches a log
// line; only the domain stays readable.
func SanitizeEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return sanitizeField(email, 64)
	}
	return "***" + sanitizeField(email[at:], 64)
}
