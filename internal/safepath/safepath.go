// Package safepath constrains arbitrary strings to safe, same-origin,
// length-bounded application paths for post-login redirects.
package safepath

import "strings"

// Home is the fallback returned for any input that cannot be used as a
// redirect target.
const Home = "/"

// MaxLength bounds accepted paths. Anything longer is rejected outright
// rather than truncated, since a truncated path may point somewhere the
// user never asked for.
const MaxLength = 1024

// unsafeSchemes are rejected case-insensitively when they prefix a
// candidate path. A leading "/" normally makes these impossible, but the
// check stays cheap and guards against future callers relaxing the prefix
// rule.
var unsafeSchemes = []string{"javascript:", "data:", "vbscript:"}

// authPaths are application routes that must never become a redirect
// target themselves; landing on one after login would loop the user
// straight back into the auth flow.
var authPaths = []string{"/login", "/auth/callback", "/auth/kakao"}

// Sanitize validates a candidate redirect target and returns it unchanged,
// or Home when the input is empty, absolute, scheme-bearing, overlong, or
// otherwise unusable for same-origin navigation. It is pure and total:
// every input maps to a defined output and no error is ever returned.
func Sanitize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Home
	}
	if len(trimmed) > MaxLength {
		return Home
	}
	if !strings.HasPrefix(trimmed, "/") {
		return Home
	}
	// Scheme-relative URLs ("//evil.example") navigate off-origin.
	if strings.HasPrefix(trimmed, "//") {
		return Home
	}
	if strings.Contains(trimmed, "://") {
		return Home
	}
	lower := strings.ToLower(trimmed)
	for _, scheme := range unsafeSchemes {
		if strings.HasPrefix(lower, scheme) {
			return Home
		}
	}
	return trimmed
}

// IsAuthPath reports whether path belongs to the login or auth-callback
// routes. Such paths are valid navigation targets but must not be stored
// as pending return paths.
func IsAuthPath(path string) bool {
	for _, prefix := range authPaths {
		if path == prefix || strings.HasPrefix(path, prefix+"/") || strings.HasPrefix(path, prefix+"?") {
			return true
		}
	}
	return false
}
