package models

import "time"

// EffectiveStatus derives the status a card is treated as having on the given day.
// A card whose expiry date is strictly before today is EXPIRED regardless of the
// stored status; otherwise an explicit block wins, and everything else is ACTIVE.
func EffectiveStatus(stored CardStatus, expiry, today time.Time) CardStatus {
	if DateOnly(today).After(DateOnly(expiry)) {
		return CardStatusExpired
	}
	if stored == CardStatusBlocked {
		return CardStatusBlocked
	}
	return CardStatusActive
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar day in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return DateOnly(now.In(loc))
}
