package security

import "time"

// NowFunc supplies the current time. Stores accept one so tests can
// substitute a deterministic clock instead of relying on wall-clock sleeps.
type NowFunc func() time.Time

// IsExpiredAt reports whether an entry created at createdAt has outlived ttl
// as of now. TTLs are measured from creation time only; reading an entry
// never extends its life.
func IsExpiredAt(now, createdAt time.Time, ttl time.Duration) bool {
	if createdAt.IsZero() {
		return false
	}
	return now.After(createdAt.Add(ttl))
}

// IsExpired is IsExpiredAt against the wall clock.
func IsExpired(createdAt time.Time, ttl time.Duration) bool {
	return IsExpiredAt(time.Now(), createdAt, ttl)
}
