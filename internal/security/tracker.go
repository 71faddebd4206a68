package security

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// EventKind categorizes a logged security event.
type EventKind string

const (
	EventRateLimit        EventKind = "rate_limit_violation"
	EventCaptchaFailure   EventKind = "captcha_failure"
	EventValidation       EventKind = "validation_error"
	EventBlacklistHit     EventKind = "blacklist_hit"
	EventSuspiciousClient EventKind = "suspicious_client"
)

// countsTowardBlacklist marks the kinds that feed the failure counter.
var countsTowardBlacklist = map[EventKind]struct{}{
	EventRateLimit:      {},
	EventCaptchaFailure: {},
	EventValidation:     {},
}

// Event is one recorded suspicious activity.
type Event struct {
	Kind       EventKind
	Identifier string
	Detail     string
}

// EventObserver receives a copy of every logged event (metrics hook).
type EventObserver interface {
	IncSecurityEvent(kind string)
}

// TrackerConfig tunes the failure counter and blacklist.
type TrackerConfig struct {
	FailureThreshold int
	FailureWindow    time.Duration
	BanDuration      time.Duration
}

type failureEntry struct {
	failedAttempts int
	lastAttempt    time.Time
}

// Tracker counts per-identifier failures and maintains the temporary
// blacklist. State is process-local and in-memory; Redis, when configured,
// only mirrors aggregate counters for dashboards.
type Tracker struct {
	mu        sync.Mutex
	failures  map[string]*failureEntry
	blacklist map[string]time.Time

	cfg      TrackerConfig
	now      func() time.Time
	logger   *zap.Logger
	redis    *redis.Client
	observer EventObserver
}

// NewTracker constructs a tracker. Logger, redis, and observer are optional.
func NewTracker(cfg TrackerConfig, logger *zap.Logger, rdb *redis.Client, observer EventObserver) *Tracker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 10
	}
	if cfg.FailureWindow <= 0 {
		cfg.FailureWindow = time.Hour
	}
	if cfg.BanDuration <= 0 {
		cfg.BanDuration = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		failures:  make(map[string]*failureEntry),
		blacklist: make(map[string]time.Time),
		cfg:       cfg,
		now:       time.Now,
		logger:    logger,
		redis:     rdb,
		observer:  observer,
	}
}

// LogEvent records the event and, for the qualifying kinds, advances the
// identifier's failure counter. Reaching the threshold within the rolling
// window blacklists the identifier for the ban duration and clears its
// counter.
func (t *Tracker) LogEvent(ctx context.Context, ev Event) {
	t.logger.Warn("security_event",
		zap.String("kind", string(ev.Kind)),
		zap.String("identifier", ev.Identifier),
		zap.String("detail", ev.Detail),
	)
	if t.observer != nil {
		t.observer.IncSecurityEvent(string(ev.Kind))
	}
	t.mirrorToRedis(ev)

	if _, qualifies := countsTowardBlacklist[ev.Kind]; !qualifies || ev.Identifier == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	entry, ok := t.failures[ev.Identifier]
	if !ok || now.Sub(entry.lastAttempt) > t.cfg.FailureWindow {
		entry = &failureEntry{}
		t.failures[ev.Identifier] = entry
		entry.failedAttempts = 1
	} else {
		entry.failedAttempts++
	}
	entry.lastAttempt = now

	if entry.failedAttempts >= t.cfg.FailureThreshold {
		t.blacklist[ev.Identifier] = now.Add(t.cfg.BanDuration)
		delete(t.failures, ev.Identifier)
		t.logger.Warn("identifier_blacklisted",
			zap.String("identifier", ev.Identifier),
			zap.Duration("duration", t.cfg.BanDuration),
		)
	}
}

// IsBlacklisted reports whether the identifier is currently blocked. Expired
// entries are removed on the way through.
func (t *Tracker) IsBlacklisted(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	until, ok := t.blacklist[id]
	if !ok {
		return false
	}
	if t.now().After(until) {
		delete(t.blacklist, id)
		return false
	}
	return true
}

// Blacklist blocks the identifier for the given duration.
func (t *Tracker) Blacklist(id string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.blacklist[id] = t.now().Add(d)
}

// mirrorToRedis pushes aggregate counters for the admin dashboard; failures
// here never affect the in-memory decision path.
func (t *Tracker) mirrorToRedis(ev Event) {
	if t.redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	t.redis.Incr(ctx, "security:events:"+string(ev.Kind))
	if ev.Identifier != "" {
		t.redis.ZIncrBy(ctx, "security:flagged_ids", 1, ev.Identifier)
	}
}

// SuspiciousClient flags client-identification strings that look automated:
// absent, shorter than 10 characters, or containing "bot" or "crawler".
// Flagged requests are logged, never blocked.
func SuspiciousClient(signature string) (bool, string) {
	if signature == "" {
		return true, "missing_client_signature"
	}
	if len(signature) < 10 {
		return true, "short_client_signature"
	}
	lowered := strings.ToLower(signature)
	if strings.Contains(lowered, "bot") || strings.Contains(lowered, "crawler") {
		return true, "bot_client_signature"
	}
	return false, ""
}
