// Package estimate computes queue positions and wait times. Everything here
// is deterministic and side-effect-free; results are recomputed on demand
// because the current token may move between reads.
package estimate

import "time"

// Position returns how many tokens stand between the appointment and the
// currently served token. Never negative: a token at or behind the current
// token has position 0.
func Position(tokenNumber, currentToken int64) int64 {
	position := tokenNumber - currentToken
	if position < 0 {
		return 0
	}
	return position
}

// WaitMinutes converts a queue position into an advisory wait estimate.
func WaitMinutes(position int64, avgMinutesPerPatient int) int64 {
	return position * int64(avgMinutesPerPatient)
}

// ETA returns the advisory service time for a position as of now.
func ETA(now time.Time, position int64, avgMinutesPerPatient int) time.Time {
	return now.Add(time.Duration(WaitMinutes(position, avgMinutesPerPatient)) * time.Minute)
}
