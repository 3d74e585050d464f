package api

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"unsafe"

	"github.com/labstack/echo/v4"
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("malformed bearer token")
)

var bearerPrefix = []byte("Bearer ")

func bearerTokenFromHeader(header http.Header) ([]byte, error) {
	values := header.Values(echo.HeaderAuthorization)
	if len(values) == 0 {
		return nil, errMissingAuthorization
	}
	return bearerTokenFromString(values[0])
}

// bearerTokenFromString extracts the JWT from an Authorization header value
// without copying it. The returned bytes alias the header string and must be
// treated as read-only.
func bearerTokenFromString(raw string) ([]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errMissingAuthorization
	}
	tokenBytes := readOnlyBytes(trimmed)
	if len(tokenBytes) <= len(bearerPrefix) || !bytes.HasPrefix(tokenBytes, bearerPrefix) {
		return nil, errBadAuthorization
	}
	tokenBytes = tokenBytes[len(bearerPrefix):]
	// Compact JWS form: header.payload.signature.
	if bytes.Count(tokenBytes, []byte{'.'}) != 2 {
		return nil, errBadAuthorization
	}
	return tokenBytes, nil
}

func readOnlyBytes(s string) []byte {
	if s == "" {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

func readOnlyString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}
