// Package schedule owns the time boundaries of the bot. Crypto perpetual
// markets trade around the clock, so the only boundary that matters is
// the UTC day roll used to reset the daily risk counters.
package schedule

import (
	"context"
	"fmt"
	"log"
	"time"
)

// NextReset returns the next 00:00 UTC strictly after t.
func NextReset(t time.Time) time.Time {
	u := t.UTC()
	midnight := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.AddDate(0, 0, 1)
}

// TimeUntilReset returns the duration from t to the next UTC day roll.
func TimeUntilReset(t time.Time) time.Duration {
	return NextReset(t).Sub(t.UTC())
}

// SameUTCDay reports whether a and b fall on the same UTC calendar day.
// Used to decide whether persisted daily counters are still valid after a
// restart.
func SameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// StatusString returns a human-readable description of the next reset.
func StatusString(t time.Time) string {
	return fmt.Sprintf("daily reset at 00:00 UTC in %s", fmtDur(TimeUntilReset(t)))
}

// RunDailyReset invokes fn at every 00:00 UTC boundary until ctx is done.
// The first firing is aligned to the next midnight, not to an interval, so
// a bot started at 23:55 resets five minutes later.
func RunDailyReset(ctx context.Context, fn func()) {
	for {
		wait := TimeUntilReset(time.Now())
		log.Printf("[schedule] next daily reset in %s", fmtDur(wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			log.Printf("[schedule] daily reset fired")
			fn()
		}
	}
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
