package sessioncache

import "strings"

const (
	sessionPrefix      = "ses_"
	cacheSessionPrefix = "sess_"
)

// ToCacheIdentifier rewrites a leading "ses_" to "sess_". Identifiers
// without that prefix are returned unchanged.
func ToCacheIdentifier(sessionID string) string {
	if rest, ok := strings.CutPrefix(sessionID, sessionPrefix); ok {
		return cacheSessionPrefix + rest
	}
	return sessionID
}

// MaskSessionID renders a session identifier for diagnostics as the first
// five characters, "..." and the last eight. Identifiers of eight
// characters or fewer are returned as-is.
func MaskSessionID(sessionID string) string {
	if len(sessionID) <= 8 {
		return sessionID
	}
	return sessionID[:5] + "..." + sessionID[len(sessionID)-8:]
}
