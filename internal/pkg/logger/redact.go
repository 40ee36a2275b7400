package logger

import (
	"regexp"
	"strings"
)

var (
	emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	// ?key=... query parameters, as used by the Gemini endpoint
	queryKeyRegex = regexp.MustCompile(`([?&]key=)[^&\s"]+`)
)

var secretKeyMarkers = []string{"key", "token", "secret", "password"}

func redactValue(key, val string) string {
	lk := strings.ToLower(key)
	for _, m := range secretKeyMarkers {
		if strings.Contains(lk, m) {
			return RedactSecret(val)
		}
	}
	if strings.Contains(lk, "email") {
		return RedactEmail(val)
	}
	val = queryKeyRegex.ReplaceAllString(val, "${1}***")
	return emailRegex.ReplaceAllStringFunc(val, RedactEmail)
}

// RedactSecret keeps at most the last four characters of a credential.
// "AIzaSyExample1234" → "***1234"
func RedactSecret(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return "***" + s[len(s)-4:]
}

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" → "jo***@example.com"
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}
