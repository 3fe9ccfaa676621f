// Package seclog is the append-only security event sink. Every guard and
// token operation reports here; events are structured zap records with an
// eventType field and are never read back by the application.
package seclog

import (
	"go.uber.org/zap"
)

const (
	EventLoginSuccess         = "LOGIN_SUCCESS"
	EventLoginFailed          = "LOGIN_FAILED"
	EventLoginError           = "LOGIN_ERROR"
	EventAccountLockedAttempt = "ACCOUNT_LOCKED_ATTEMPT"
	EventAccountLocked        = "ACCOUNT_LOCKED"
	EventIPBlocked            = "IP_BLOCKED"
	EventSuspiciousActivity   = "SUSPICIOUS_ACTIVITY"
	EventCsrfAttackAttempt    = "CSRF_ATTACK_ATTEMPT"
	EventValidationFailed     = "REQUEST_VALIDATION_FAILED"
	EventTokenRefreshed       = "TOKEN_REFRESHED"
	EventTokenRefreshFailed   = "TOKEN_REFRESH_FAILED"
	EventTokenBlacklisted     = "TOKEN_BLACKLISTED"
	EventLogout               = "LOGOUT"
	EventTokensRevoked        = "TOKENS_REVOKED"
	EventDocsAccess           = "DOCS_ACCESS"
)

type Recorder struct {
	log *zap.SugaredLogger
}

func NewRecorder(log *zap.SugaredLogger) *Recorder {
	return &Recorder{log: log.Named("security")}
}

// Event appends one audit record. keysAndValues are zap-style alternating
// key/value pairs carrying the contextual fields (ip, path, username, ...).
func (r *Recorder) Event(eventType string, keysAndValues ...interface{}) {
	fields := make([]interface{}, 0, len(keysAndValues)+2)
	fields = append(fields, "eventType", eventType)
	fields = append(fields, keysAndValues...)
	r.log.Infow("security event", fields...)
}
