package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neopos/auth-service/internal/seclog"
	"github.com/neopos/auth-service/internal/storage"
	"github.com/neopos/auth-service/internal/util"
)

var ErrIPRateLimited = errors.New("too many requests from this IP, please try again after an hour")

// AccountLockedError reports a rejected attempt against a locked account and
// how long the caller has to wait for the lock to expire.
type AccountLockedError struct {
	Wait time.Duration
}

func (e *AccountLockedError) Error() string {
	minutes := int(e.Wait.Minutes())
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("account is locked, try again in %d minutes", minutes)
}

const (
	ipKeyPrefix          = "bruteforce:ip:"
	usernameIPKeyPrefix  = "bruteforce:username:"
	accountLockKeyPrefix = "bruteforce:accountlock:"
	rapidRequestsPrefix  = "requests:"
	usernamesPrefix      = "usernames:"
	ipsPrefix            = "ips:"

	rapidRequestWindow = time.Minute
	monitorSetTTL      = time.Hour

	maxUsernamesPerIP = 5
	maxIPsPerUsername = 3
)

// BruteForceGuard is the counter state machine in front of the login
// endpoint. Three checks run in strict order, each short-circuiting the rest:
// account lock, per-IP throttle, per-username+IP throttle. Counters increment
// before credentials are validated; the guard protects the endpoint, not just
// failed logins. Store errors propagate so the guard fails closed.
type BruteForceGuard struct {
	cfg      *util.BruteForceConfig
	counters storage.CounterStore
	events   *seclog.Recorder
}

func NewBruteForceGuard(cfg *util.BruteForceConfig, counters storage.CounterStore, events *seclog.Recorder) *BruteForceGuard {
	return &BruteForceGuard{
		cfg:      cfg,
		counters: counters,
		events:   events,
	}
}

func ipKey(ip string) string { return ipKeyPrefix + ip }

func usernameIPKey(username, ip string) string {
	return usernameIPKeyPrefix + username + ":ip:" + ip
}

func accountLockKey(username string) string { return accountLockKeyPrefix + username }

// Check runs the three-stage decision for one login attempt.
func (g *BruteForceGuard) Check(ctx context.Context, ip, username string) error {
	// 1. Account lock: rejects for the username from any IP.
	_, locked, err := g.counters.GetFlag(ctx, accountLockKey(username))
	if err != nil {
		return fmt.Errorf("check account lock: %w", err)
	}
	if locked {
		wait, err := g.counters.FlagTTL(ctx, accountLockKey(username))
		if err != nil {
			return fmt.Errorf("account lock ttl: %w", err)
		}
		g.events.Event(seclog.EventAccountLockedAttempt,
			"username", username, "ip", ip, "remainingTime", wait.Seconds())
		return &AccountLockedError{Wait: wait}
	}

	// 2. IP throttle across all usernames.
	ipAttempts, err := g.counters.Increment(ctx, ipKey(ip), g.cfg.IPWindow)
	if err != nil {
		return fmt.Errorf("increment ip counter: %w", err)
	}
	if ipAttempts > g.cfg.IPMaxAttempts {
		g.events.Event(seclog.EventIPBlocked, "ip", ip, "attempts", ipAttempts)
		return ErrIPRateLimited
	}

	// 3. Consecutive fails per username+IP; crossing the limit sets the
	// account lock for the whole username.
	pairAttempts, err := g.counters.Increment(ctx, usernameIPKey(username, ip), g.cfg.LoginWindow)
	if err != nil {
		return fmt.Errorf("increment username+ip counter: %w", err)
	}
	if pairAttempts > g.cfg.LoginMaxAttempts {
		if err := g.counters.SetFlag(ctx, accountLockKey(username), "locked", g.cfg.AccountLockTTL); err != nil {
			return fmt.Errorf("set account lock: %w", err)
		}
		g.events.Event(seclog.EventAccountLocked,
			"username", username, "ip", ip, "attempts", pairAttempts)
		return &AccountLockedError{Wait: g.cfg.AccountLockTTL}
	}

	return nil
}

// Reset clears the IP and username+IP counters after verified-correct
// credentials. An existing account lock is deliberately left to expire on its
// own; a later success does not lift it.
func (g *BruteForceGuard) Reset(ctx context.Context, ip, username string) error {
	if err := g.counters.Delete(ctx, ipKey(ip), usernameIPKey(username, ip)); err != nil {
		return fmt.Errorf("reset login attempts: %w", err)
	}
	return nil
}

// Observe is the advisory suspicious-activity monitor. It never blocks a
// request and never fails it: detection problems are logged and swallowed.
func (g *BruteForceGuard) Observe(ctx context.Context, ip, username string) {
	var patterns []string

	requests, err := g.counters.RecordTimestamp(ctx, rapidRequestsPrefix+ip, time.Now(), rapidRequestWindow)
	if err == nil && requests > g.cfg.RapidRequestLimit {
		patterns = append(patterns, "rapidRequests")
	}

	if username != "" {
		usernames, err := g.counters.AddToSet(ctx, usernamesPrefix+ip, username, monitorSetTTL)
		if err == nil && usernames > maxUsernamesPerIP {
			patterns = append(patterns, "multipleUsernames")
		}

		ips, err := g.counters.AddToSet(ctx, ipsPrefix+username, ip, monitorSetTTL)
		if err == nil && ips > maxIPsPerUsername {
			patterns = append(patterns, "distributedAttempts")
		}
	}

	if len(patterns) > 0 {
		g.events.Event(seclog.EventSuspiciousActivity,
			"ip", ip, "username", username, "patterns", patterns)
	}
}
