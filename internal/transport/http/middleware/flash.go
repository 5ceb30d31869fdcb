package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

const flashCookie = "poolops_flash"

const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot message carried across a POST/redirect/GET cycle.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func SetFlash(w http.ResponseWriter, kind, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(kind + "|" + message),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// PopFlash returns the pending flash and clears the cookie.
func PopFlash(w http.ResponseWriter, r *http.Request) (Flash, bool) {
	cookie, err := r.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return Flash{}, false
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})

	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return Flash{}, false
	}
	kind, message, ok := strings.Cut(raw, "|")
	if !ok || (kind != FlashSuccess && kind != FlashError) {
		return Flash{}, false
	}
	return Flash{Kind: kind, Message: message}, true
}
