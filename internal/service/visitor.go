package service

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/noah-isme/pitch-engagement-api/internal/models"
)

const (
	visitorIDLength = 16
	sessionIDLength = 12
)

// AnonymousVisitorID derives a stable pseudonym from request metadata so unique
// viewers can be counted without storing who they are.
func AnonymousVisitorID(rc models.RequestContext) string {
	return digest(rc.UserAgent+rc.IP+rc.AcceptLanguage, visitorIDLength)
}

// SessionID derives a per-visit identifier. It is salted with the visit time, so the
// same visitor gets a new value on every view.
func SessionID(rc models.RequestContext, at time.Time) string {
	return digest(rc.IP+rc.UserAgent+strconv.FormatInt(at.UnixMilli(), 10), sessionIDLength)
}

func digest(input string, length int) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:length]
}
