package auth

import (
	"errors"
	"net/http"
	"strings"
)

// SessionCookie is the cookie Login sets for browser clients.
const SessionCookie = "session"

// TokenFromHeader extracts a session token from request headers. A bearer
// Authorization header wins over the session cookie.
func TokenFromHeader(h http.Header) (string, error) {
	if authHeader := h.Get("Authorization"); authHeader != "" {
		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return "", ErrInvalidToken
		}
		return token, nil
	}

	// Reuse net/http's cookie parsing for headers that did not come with a request.
	cookie, err := (&http.Request{Header: h}).Cookie(SessionCookie)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrMissingToken
		}
		return "", ErrInvalidToken
	}
	if cookie.Value == "" {
		return "", ErrMissingToken
	}
	return cookie.Value, nil
}

// SessionCookieFor builds the HttpOnly cookie carrying token.
func SessionCookieFor(token string, maxAgeSeconds int, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAgeSeconds,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
