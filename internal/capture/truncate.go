package capture

import "unicode/utf8"

// MaxBodyChars bounds captured response bodies. Anything longer is cut and
// marked with TruncationSuffix.
const (
	MaxBodyChars     = 50000
	TruncationSuffix = "... [truncated]"

	// BodyReadFailure is stored in place of a body that could not be read
	// (consumed stream, detached target, network error).
	BodyReadFailure = "[Failed to read response body]"
)

func truncateBody(body string, maxChars int) (string, bool) {
	if maxChars <= 0 || len(body) <= maxChars {
		return body, false
	}
	// Back off to a rune boundary so a multibyte sequence straddling the
	// limit is not split into invalid UTF-8.
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut] + TruncationSuffix, true
}
