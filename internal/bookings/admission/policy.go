package admission

import "shelterbook/pkg/config"

// IsTypeAllowed reports whether a shelter with the given policy may ever
// admit a booking of type t. Unknown policies and types admit nothing.
func IsTypeAllowed(policy config.BookingPolicy, t config.BookingType) bool {
	switch policy {
	case config.ExclusiveOnly:
		return t == config.Exclusive
	case config.InclusiveOnly:
		return t == config.Inclusive
	case config.Both:
		return t == config.Exclusive || t == config.Inclusive
	default:
		return false
	}
}
