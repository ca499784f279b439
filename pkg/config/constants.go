package config

type BookingStatus = string

const (
	Pending   BookingStatus = "pending"
	Confirmed BookingStatus = "confirmed"
	Cancelled BookingStatus = "cancelled"
)

type BookingType = string

const (
	Exclusive BookingType = "exclusive"
	Inclusive BookingType = "inclusive"
)

type BookingPolicy = string

const (
	ExclusiveOnly BookingPolicy = "exclusive_only"
	InclusiveOnly BookingPolicy = "inclusive_only"
	Both          BookingPolicy = "both"
)
