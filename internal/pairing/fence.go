package pairing

import "strings"

// StripCodeFence removes a markdown code fence wrapped around a model
// completion, e.g. "```json\n{...}\n```" becomes "{...}". Text without a
// fence is only trimmed.
func StripCodeFence(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		// Drop the info string ("json", "JSON", ...) up to the first newline.
		if i := strings.IndexAny(cleaned, "\n{["); i >= 0 && !strings.ContainsAny(strings.TrimRight(cleaned[:i], " \t\r"), " \t") {
			cleaned = cleaned[i:]
		}
	}
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
