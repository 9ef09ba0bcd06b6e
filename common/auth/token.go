package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
)

const (
	// TokenHeader is the dedicated access-token header
	TokenHeader = "X-Access-Token"

	// SessionCookieName is the session cookie set on successful login
	SessionCookieName = "liqk_gate_session"

	// SessionMaxAgeSecs is the session cookie lifetime (~3 months)
	SessionMaxAgeSecs = 7_776_000

	bearerPrefix = "Bearer "
)

// ExtractCredential pulls at most one candidate bearer credential from a
// request, preferring the dedicated token header, then a Bearer
// authorization header, then the session cookie. No upstream call is made;
// whether the credential authorizes anything is the policy resolver's
// business.
func ExtractCredential(r *http.Request) (string, bool) {
	if v := r.Header.Get(TokenHeader); v != "" {
		return v, true
	}

	if v := r.Header.Get("Authorization"); strings.HasPrefix(v, bearerPrefix) {
		if tok := v[len(bearerPrefix):]; tok != "" {
			return tok, true
		}
	}

	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value, true
	}

	return "", false
}

// Digest returns the hex sha-256 of a credential. The raw secret is never
// persisted or interpolated anywhere; the digest is the store lookup key.
func Digest(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}

// SecureCompare reports whether a equals b in constant time with respect to
// the secret's length. When lengths differ a same-cost dummy comparison
// still runs before returning false.
func SecureCompare(a, b string) bool {
	ab := []byte(a)
	bb := []byte(b)

	if len(ab) != len(bb) {
		n := len(ab)
		if len(bb) > n {
			n = len(bb)
		}
		dummy := make([]byte, n)
		subtle.ConstantTimeCompare(dummy, dummy)
		return false
	}

	return subtle.ConstantTimeCompare(ab, bb) == 1
}

// SessionCookie builds the session cookie issued on login: whole path
// space, HttpOnly, SameSite=Strict, long fixed expiry. The Secure flag is
// gated by deployment mode and disabled only for non-TLS development.
func SessionCookie(credential string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    credential,
		Path:     "/",
		MaxAge:   SessionMaxAgeSecs,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   secure,
	}
}
