package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestTracker() (*Tracker, *time.Time) {
	clock := time.Unix(10000, 0)
	tr := NewTracker(TrackerConfig{}, nil, nil, nil)
	tr.now = func() time.Time { return clock }
	return tr, &clock
}

func TestTrackerAutoBlacklistAfterTenFailures(t *testing.T) {
	tr, _ := newTestTracker()
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		tr.LogEvent(ctx, Event{Kind: EventCaptchaFailure, Identifier: "9.9.9.9"})
		assert.False(t, tr.IsBlacklisted("9.9.9.9"), "after %d failures", i+1)
	}
	tr.LogEvent(ctx, Event{Kind: EventValidation, Identifier: "9.9.9.9"})
	assert.True(t, tr.IsBlacklisted("9.9.9.9"))

	// the failure counter was cleared on blacklisting
	assert.Empty(t, tr.failures)
}

func TestTrackerGapResetsCounter(t *testing.T) {
	tr, clock := newTestTracker()
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		tr.LogEvent(ctx, Event{Kind: EventRateLimit, Identifier: "ip"})
	}
	*clock = clock.Add(time.Hour + time.Minute)
	// counter restarts at 1 after the quiet hour
	tr.LogEvent(ctx, Event{Kind: EventRateLimit, Identifier: "ip"})
	assert.False(t, tr.IsBlacklisted("ip"))
	assert.Equal(t, 1, tr.failures["ip"].failedAttempts)
}

func TestTrackerBlacklistExpires(t *testing.T) {
	tr, clock := newTestTracker()

	tr.Blacklist("ip", 24*time.Hour)
	assert.True(t, tr.IsBlacklisted("ip"))

	*clock = clock.Add(24*time.Hour + time.Second)
	assert.False(t, tr.IsBlacklisted("ip"))
	// lazy expiry removed the entry
	assert.Empty(t, tr.blacklist)
}

func TestTrackerNonQualifyingKindsDoNotCount(t *testing.T) {
	tr, _ := newTestTracker()
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		tr.LogEvent(ctx, Event{Kind: EventSuspiciousClient, Identifier: "ip"})
		tr.LogEvent(ctx, Event{Kind: EventBlacklistHit, Identifier: "ip"})
	}
	assert.False(t, tr.IsBlacklisted("ip"))
	assert.Empty(t, tr.failures)
}

type countingObserver struct {
	kinds []string
}

func (o *countingObserver) IncSecurityEvent(kind string) {
	o.kinds = append(o.kinds, kind)
}

func TestTrackerNotifiesObserver(t *testing.T) {
	obs := &countingObserver{}
	tr := NewTracker(TrackerConfig{}, nil, nil, obs)
	tr.LogEvent(context.Background(), Event{Kind: EventCaptchaFailure, Identifier: "ip"})
	assert.Equal(t, []string{string(EventCaptchaFailure)}, obs.kinds)
}

func TestSuspiciousClient(t *testing.T) {
	cases := []struct {
		signature string
		flagged   bool
		reason    string
	}{
		{"", true, "missing_client_signature"},
		{"short", true, "short_client_signature"},
		{"Mozilla/5.0 (Windows NT 10.0) Gecko/20100101", false, ""},
		{"my-friendly-bot/1.0", true, "bot_client_signature"},
		{"SuperCrawler agent v2", true, "bot_client_signature"},
	}
	for _, tc := range cases {
		flagged, reason := SuspiciousClient(tc.signature)
		assert.Equal(t, tc.flagged, flagged, "signature %q", tc.signature)
		assert.Equal(t, tc.reason, reason, "signature %q", tc.signature)
	}
}
