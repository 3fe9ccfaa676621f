package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/neopos/auth-service/internal/seclog"
	"github.com/neopos/auth-service/internal/storage"
	"github.com/neopos/auth-service/internal/util"
)

var (
	ErrTokenExpired         = errors.New("token expired")
	ErrTokenInvalid         = errors.New("token invalid")
	ErrTokenMissing         = errors.New("token missing")
	ErrTokenRevoked         = errors.New("token revoked")
	ErrInvalidUserID        = errors.New("invalid userID")
	ErrInvalidSigningMethod = errors.New("invalid signing method")
)

const (
	ReasonLogout      = "logout"
	ReasonRotated     = "rotated"
	ReasonUserRevoked = "user_revoked"
)

// TokenService implements the issuance/refresh/revocation protocol. Access
// and refresh tokens are HS512 JWTs signed with separate secrets; revocation
// is tracked by jti in the blacklist store and always wins over signature
// validity.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	blacklist     storage.BlacklistStore
	users         storage.UserRepository
	events        *seclog.Recorder
}

func NewTokenService(cfg *util.TokenConfig, blacklist storage.BlacklistStore, users storage.UserRepository, events *seclog.Recorder) *TokenService {
	return &TokenService{
		accessSecret:  cfg.AccessSecret,
		refreshSecret: cfg.RefreshSecret,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		blacklist:     blacklist,
		users:         users,
		events:        events,
	}
}

type jwtClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// IssuedTokens is the result of a successful issue or refresh. ExpiresAt is
// the access token's absolute expiry in RFC3339 so the client can schedule a
// proactive refresh before it runs out.
type IssuedTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    string
	RefreshTTL   time.Duration
}

func (ts *TokenService) RefreshTTL() time.Duration { return ts.refreshTTL }

// Issue mints a fresh access+refresh pair for subjectID, each with its own jti.
func (ts *TokenService) Issue(subjectID int64) (*IssuedTokens, error) {
	now := time.Now()

	accessToken, err := ts.signToken(subjectID, now, ts.accessTTL, ts.accessSecret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, err := ts.signToken(subjectID, now, ts.refreshTTL, ts.refreshSecret)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &IssuedTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(ts.accessTTL).Format(time.RFC3339),
		RefreshTTL:   ts.refreshTTL,
	}, nil
}

// Refresh validates the presented refresh token and rotates it: a brand-new
// access+refresh pair is issued and the old refresh jti is blacklisted so it
// cannot be replayed. Returns ErrTokenMissing, ErrTokenExpired or
// ErrTokenInvalid; a nonexistent subject surfaces as ErrTokenInvalid to avoid
// account enumeration.
func (ts *TokenService) Refresh(ctx context.Context, refreshToken string) (*IssuedTokens, error) {
	if refreshToken == "" {
		return nil, ErrTokenMissing
	}

	claims, err := ts.verifyToken(refreshToken, ts.refreshSecret)
	if err != nil {
		ts.events.Event(seclog.EventTokenRefreshFailed, "reason", err.Error())
		return nil, err
	}

	revoked, err := ts.blacklist.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("blacklist lookup: %w", err)
	}
	if revoked {
		ts.events.Event(seclog.EventTokenRefreshFailed, "reason", "refresh token revoked", "jti", claims.ID)
		return nil, ErrTokenInvalid
	}

	subjectID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	if _, err := ts.users.GetUserByID(ctx, subjectID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			// Same error as a bad signature: never reveal whether the
			// subject exists.
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("look up subject: %w", err)
	}

	issued, err := ts.Issue(subjectID)
	if err != nil {
		return nil, err
	}

	if err := ts.blacklist.Add(ctx, claims.ID, claims.ExpiresAt.Time, ReasonRotated, claims.UserID); err != nil {
		return nil, fmt.Errorf("blacklist rotated token: %w", err)
	}

	ts.events.Event(seclog.EventTokenRefreshed, "userId", subjectID, "oldJti", claims.ID)

	return issued, nil
}

// Logout blacklists every presented token whose jti can be extracted. Tokens
// are decoded without signature verification so even expired or tampered
// tokens get revoked; decode failures are logged and skipped, never fatal.
func (ts *TokenService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	for _, token := range []string{accessToken, refreshToken} {
		if token == "" {
			continue
		}

		claims, err := decodeUnverified(token)
		if err != nil {
			ts.events.Event(seclog.EventLogout, "warning", "could not decode token during logout", "error", err.Error())
			continue
		}

		expiresAt := time.Now().Add(ts.refreshTTL)
		if claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}

		if err := ts.blacklist.Add(ctx, claims.ID, expiresAt, ReasonLogout, claims.UserID); err != nil {
			return fmt.Errorf("blacklist token on logout: %w", err)
		}
		ts.events.Event(seclog.EventTokenBlacklisted, "jti", claims.ID, "reason", ReasonLogout)
	}

	return nil
}

// RevokeAll rewrites the blacklist reason of every entry belonging to the
// subject. O(n) over the blacklist, acceptable only at small scale.
func (ts *TokenService) RevokeAll(ctx context.Context, subjectID int64) (int, error) {
	updated, err := ts.blacklist.RevokeAllForSubject(ctx, strconv.FormatInt(subjectID, 10), ReasonUserRevoked)
	if err != nil {
		return 0, fmt.Errorf("revoke all for subject: %w", err)
	}

	ts.events.Event(seclog.EventTokensRevoked, "userId", subjectID, "entries", updated)
	return updated, nil
}

// ValidateAccess checks the blacklist before trusting anything about the
// token, then verifies signature and expiry and returns the subject id.
func (ts *TokenService) ValidateAccess(ctx context.Context, accessToken string) (int64, error) {
	if accessToken == "" {
		return 0, ErrTokenMissing
	}

	unverified, err := decodeUnverified(accessToken)
	if err != nil {
		return 0, ErrTokenInvalid
	}

	revoked, err := ts.blacklist.IsBlacklisted(ctx, unverified.ID)
	if err != nil {
		return 0, fmt.Errorf("blacklist lookup: %w", err)
	}
	if revoked {
		return 0, ErrTokenRevoked
	}

	claims, err := ts.verifyToken(accessToken, ts.accessSecret)
	if err != nil {
		return 0, err
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return 0, ErrInvalidUserID
	}

	return userID, nil
}

func (ts *TokenService) signToken(subjectID int64, now time.Time, ttl time.Duration, secret []byte) (string, error) {
	claims := &jwtClaims{
		UserID: strconv.FormatInt(subjectID, 10),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(subjectID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signedToken, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signed string: %w", err)
	}

	return signedToken, nil
}

func (ts *TokenService) verifyToken(token string, secret []byte) (*jwtClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithLeeway(util.JWTLeeWay),
		jwt.WithExpirationRequired(),
	}

	parsedToken, err := jwt.ParseWithClaims(
		token,
		&jwtClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method.Alg() != jwt.SigningMethodHS512.Alg() {
				return nil, ErrInvalidSigningMethod
			}
			return secret, nil
		},
		opts...,
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if parsedToken == nil || !parsedToken.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := parsedToken.Claims.(*jwtClaims)
	if !ok || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

func decodeUnverified(token string) (*jwtClaims, error) {
	parsedToken, _, err := new(jwt.Parser).ParseUnverified(token, &jwtClaims{})
	if err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}

	claims, ok := parsedToken.Claims.(*jwtClaims)
	if !ok || claims.ID == "" {
		return nil, errors.New("token has no jti")
	}

	return claims, nil
}
