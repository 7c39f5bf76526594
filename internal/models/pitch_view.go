package models

import (
	"net"
	"net/http"
	"strings"
	"time"
)

// PitchView is one anonymised observation of a pitch being opened.
type PitchView struct {
	ID                 int64     `db:"id" json:"id"`
	PitchID            int64     `db:"pitch_id" json:"pitch_id"`
	AnonymousVisitorID string    `db:"anonymous_visitor_id" json:"anonymous_visitor_id"`
	ViewedAt           time.Time `db:"viewed_at" json:"viewed_at"`
	IPAddress          string    `db:"ip_address" json:"ip_address"`
	UserAgent          string    `db:"user_agent" json:"user_agent"`
	Referrer           string    `db:"referrer" json:"referrer"`
	SessionID          string    `db:"session_id" json:"session_id"`
}

// RecentView is a view joined with its pitch title.
type RecentView struct {
	PitchView
	PitchTitle string `db:"pitch_title" json:"pitch_title"`
}

// RequestContext carries the request metadata a view is derived from.
type RequestContext struct {
	UserAgent      string
	IP             string
	Referrer       string
	AcceptLanguage string
}

// NewRequestContext reads viewer metadata from request headers. The client address is
// the first x-forwarded-for entry, then x-real-ip, then remoteAddr.
func NewRequestContext(header http.Header, remoteAddr string) RequestContext {
	return RequestContext{
		UserAgent:      header.Get("User-Agent"),
		IP:             clientIP(header, remoteAddr),
		Referrer:       header.Get("Referer"),
		AcceptLanguage: header.Get("Accept-Language"),
	}
}

func clientIP(header http.Header, remoteAddr string) string {
	if fwd := header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
