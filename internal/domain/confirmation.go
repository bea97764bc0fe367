package domain

import "time"

// ConfirmationLevel grades how settled an attested event is, based on how far
// behind the admission clock its source timestamp sits.
type ConfirmationLevel string

const (
	ConfirmationFast      ConfirmationLevel = "fast"
	ConfirmationSafe      ConfirmationLevel = "safe"
	ConfirmationUltraSafe ConfirmationLevel = "ultra_safe"
)

func ConfirmationFromAge(age time.Duration) ConfirmationLevel {
	switch {
	case age < 30*time.Second:
		return ConfirmationFast
	case age < 2*time.Minute:
		return ConfirmationSafe
	default:
		return ConfirmationUltraSafe
	}
}
