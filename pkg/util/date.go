package util

import (
	"time"
)

// DonationIntervalDays minimum spacing between two donations by the same donor.
const DonationIntervalDays = 56

// DateOnly truncates t to midnight in t's location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween counts calendar days from a to b. The result is negative when b is before a.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// DaysUntilEligible returns how many days remain before a donor who last gave on
// lastDonation may donate again at now. Zero means eligible.
func DaysUntilEligible(lastDonation *time.Time, now time.Time) int {
	if lastDonation == nil {
		return 0
	}
	elapsed := DaysBetween(*lastDonation, now)
	if elapsed >= DonationIntervalDays {
		return 0
	}
	return DonationIntervalDays - elapsed
}

// AgeOn returns completed years between dob and now.
func AgeOn(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}
