package llmclient

import "regexp"

// redactionPattern pairs a compiled regex with a replacement label.
//
// Description:
//
//	Each pattern identifies one class of secret and supplies a labeled
//	placeholder so a log reader knows what was redacted without seeing the
//	value.
//
// Thread Safety: This type is immutable after construction.
type redactionPattern struct {
	pattern     *regexp.Regexp
	replacement string
}

// redactionPatterns is the ordered list of secret patterns SafeLogString
// applies.
//
// IMPORTANT: Order matters. More specific patterns (the Anthropic
// "sk-ant-api03-" prefix) must precede less specific ones (the generic
// OpenAI "sk-" prefix) or the specific key gets only a partial match.
//
// Thread Safety: Initialized once at package load; read-only thereafter.
var redactionPatterns = []redactionPattern{
	{regexp.MustCompile(`sk-ant-api03-[A-Za-z0-9_-]{20,}`), "[REDACTED:anthropic_key]"},
	{regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`), "[REDACTED:openai_key]"},
	{regexp.MustCompile(`Bearer\s+[A-Za-z0-9._-]{10,}`), "[REDACTED:bearer_token]"},
	{regexp.MustCompile(`x-api-key:\s*[A-Za-z0-9._-]{10,}`), "[REDACTED:api_key_header]"},
}

// SafeLogString redacts known secret patterns from s.
//
// Description:
//
//	Applies every redactionPattern in order before s reaches a log line or
//	wrapped error, so an Error never leaks a credential that happened to
//	appear in a provider's response body.
//
// Inputs:
//   - s: The string to redact. Empty string is valid and returned as-is.
//
// Outputs:
//   - string: s with all matched secret patterns replaced. Unchanged if no
//     pattern matches.
func SafeLogString(s string) string {
	if s == "" {
		return s
	}
	for _, p := range redactionPatterns {
		s = p.pattern.ReplaceAllString(s, p.replacement)
	}
	return s
}
