package models

import "time"

const (
	MwUserIDKey = "userID"
	MwTokenKey  = "token"

	RefreshCookieName = "refresh_token"
	CsrfCookieName    = "_csrf"
	CsrfHeaderName    = "X-CSRF-Token"
	DeviceIDHeader    = "X-Device-Id"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	ShopName     string    `json:"shop_name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// BlacklistEntry is the revocation record for a single token jti.
// Write-once except for Reason, which RevokeAllForSubject may rewrite.
type BlacklistEntry struct {
	JTI           string    `json:"jti"`
	ExpiresAt     time.Time `json:"expires_at"`
	Reason        string    `json:"reason"`
	SubjectID     string    `json:"subject_id,omitempty"`
	BlacklistedAt time.Time `json:"blacklisted_at"`
}
