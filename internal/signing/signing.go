// Package signing implements the two keyed hashes the Imbo API uses to
// authenticate a client: the request signature sent in headers on write
// requests, and the access token appended to read URLs.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"time"
)

const (
	// AccessTokenParam is the query parameter carrying the access token.
	AccessTokenParam = "accessToken"

	// TimestampLayout is the UTC, second precision layout the server expects
	// in X-Imbo-Authenticate-Timestamp.
	TimestampLayout = "2006-01-02T15:04:05Z"
)

// Timestamp formats t for use in a signed request.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// CanonicalString joins the signed request parts with literal pipes.
// The URL is used verbatim; query parameters are not reordered.
func CanonicalString(method, rawURL, publicKey, timestamp string) string {
	return strings.Join([]string{method, rawURL, publicKey, timestamp}, "|")
}

// Signature returns the lower-case hex HMAC-SHA256 of the canonical string
// keyed by privateKey.
func Signature(method, rawURL, publicKey, timestamp, privateKey string) string {
	return hexHMAC(privateKey, CanonicalString(method, rawURL, publicKey, timestamp))
}

// AccessToken returns the lower-case hex HMAC-SHA256 of rawURL keyed by
// privateKey. rawURL must already be stripped of any access token.
func AccessToken(rawURL, privateKey string) string {
	return hexHMAC(privateKey, rawURL)
}

// WithAccessToken removes any accessToken parameter from rawURL, computes a
// token over what remains and appends it as the last query parameter.
// The remaining parameters keep their order and raw encoding, so the same
// URL and key always produce the same result.
func WithAccessToken(rawURL, privateKey string) string {
	stripped, fragment := StripAccessToken(rawURL)

	sep := "?"
	if strings.Contains(stripped, "?") {
		sep = "&"
	}
	out := stripped + sep + AccessTokenParam + "=" + AccessToken(stripped, privateKey)
	if fragment != "" {
		out += "#" + fragment
	}
	return out
}

// StripAccessToken returns rawURL without any accessToken query parameter,
// along with the fragment that was split off (without the '#').
func StripAccessToken(rawURL string) (string, string) {
	var fragment string
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		rawURL, fragment = rawURL[:i], rawURL[i+1:]
	}

	base, rawQuery, hasQuery := strings.Cut(rawURL, "?")
	if !hasQuery {
		return base, fragment
	}

	pairs := strings.Split(rawQuery, "&")
	kept := pairs[:0]
	for _, pair := range pairs {
		if pair == "" {
			continue
		}
		if queryKey(pair) == AccessTokenParam {
			continue
		}
		kept = append(kept, pair)
	}
	if len(kept) == 0 {
		return base, fragment
	}
	return base + "?" + strings.Join(kept, "&"), fragment
}

func queryKey(pair string) string {
	key, _, _ := strings.Cut(pair, "=")
	if unescaped, err := url.QueryUnescape(key); err == nil {
		return unescaped
	}
	return key
}

func hexHMAC(key, message string) string {
	mac := hmac.New(sha256.New, []byte(key))
	_, _ = mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}
