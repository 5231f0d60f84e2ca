package domain

import "time"

type Mode string

const (
	ModePrice Mode = "price"
	ModeCart  Mode = "cart"
)

func (m Mode) Valid() bool {
	return m == ModePrice || m == ModeCart
}

// Detection is a decoded barcode payload. It is never stored, only compared
// against the previous acceptance.
type Detection struct {
	Code string
	At   time.Time
}
