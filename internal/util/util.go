package util

import (
	"strings"

	"github.com/bytedance/sonic"
)

// MarshalJSON wraps Sonic for performance
func MarshalJSON(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

// TrimList trims every item and drops the empty ones
func TrimList(items []string) []string {
	if items == nil {
		return nil
	}
	result := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// TruncateString truncates string and adds replacement text in the middle
func TruncateString(s string, prefixLen, suffixLen int, replacement string) string {
	if len(s) > prefixLen+suffixLen {
		return s[:prefixLen] + replacement + s[len(s)-suffixLen:]
	}
	return s
}

// MaskSecret hides all but the edges of a credential for logging
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "***"
	}
	return TruncateString(secret, 3, 4, "***")
}
