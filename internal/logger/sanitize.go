package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Length caps applied before values reach a log line
const (
	MaxPathLength         = 500
	MaxUserIDLength       = 128
	MaxErrorMessageLength = 1000
	MaxQuestionLength     = 300
	MaxDebugContentLength = 10000
)

// SanitizeString drops invalid UTF-8 and control characters and truncates to
// maxLength bytes without splitting a rune.
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
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
	s = b.String()

	if maxLength > 0 && len(s) > maxLength {
		cut := maxLength
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}

func SanitizePath(path string) string {
	return SanitizeString(path, MaxPathLength)
}

func SanitizeUserID(userID string) string {
	return SanitizeString(userID, MaxUserIDLength)
}

// SanitizeQuestion bounds user free text that is logged outside debug mode.
func SanitizeQuestion(question string) string {
	return SanitizeString(question, MaxQuestionLength)
}

func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error(), MaxErrorMessageLength)
}

// SanitizeDebugContent is used for prompts and completions, which are only
// logged when debug mode is on.
func SanitizeDebugContent(content string) string {
	return SanitizeString(content, MaxDebugContentLength)
}
