package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxPathLength is the maximum length for URL paths in logs
	MaxPathLength = 500
	// MaxUserIDLength is the maximum length for user IDs in logs (UUIDs are 36 chars)
	MaxUserIDLength = 128
	// MaxErrorMessageLength is the maximum length for error messages in logs
	MaxErrorMessageLength = 1000
	// MaxGeneralStringLength is the maximum length for general strings in logs
	MaxGeneralStringLength = 2000
	// MaxPreviewLength bounds prompt and reply previews outside debug mode
	MaxPreviewLength = 200
	// MaxDebugContentLength bounds prompts and replies logged in debug mode
	MaxDebugContentLength = 10000
)

// SanitizeString strips control characters, repairs UTF-8 and truncates to maxLength
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxGeneralStringLength
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			b.WriteRune(r)
		}
	}
	return truncateRunes(b.String(), maxLength)
}

// SanitizePath sanitizes a URL path for logging
func SanitizePath(path string) string {
	return SanitizeString(path, MaxPathLength)
}

// SanitizeError sanitizes an error message for logging
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error(), MaxErrorMessageLength)
}

// SanitizeUserID sanitizes a user ID for logging
func SanitizeUserID(userID string) string {
	return SanitizeString(userID, MaxUserIDLength)
}

// Preview returns a log-safe excerpt of a prompt or model reply. Debug mode keeps
// far more of the text.
func Preview(content string, debugMode bool) string {
	if debugMode {
		return SanitizeString(content, MaxDebugContentLength)
	}
	return SanitizeString(content, MaxPreviewLength)
}

// MaskEmail keeps the first character of the local part and the domain
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "[REDACTED]"
	}
	first, _ := utf8.DecodeRuneInString(email)
	return SanitizeString(string(first)+"***"+email[at:], MaxGeneralStringLength)
}

// truncateRunes cuts s to at most max runes without splitting a character
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}
